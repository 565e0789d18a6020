// Package pay adapts the Stripe hosted-checkout flow to the narrow
// gateway contract the reservation lifecycle depends on.
package pay

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"gorental/internal/config"
	"gorental/internal/models"
)

type StripeClient struct {
	cfg config.StripeConfig
	log zerolog.Logger
}

func NewStripeClient(cfg config.StripeConfig, logger *zerolog.Logger) *StripeClient {
	stripe.Key = cfg.SecretKey

	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "stripe").Logger()
	}
	return &StripeClient{cfg: cfg, log: log}
}

// CreateCheckoutSession requests a hosted checkout page for the
// reservation total and returns its redirect URL. The reservation id
// travels as the client reference; the webhook carries it back.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, booking *models.Booking, car *models.Car) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(c.cfg.SuccessURL),
		CancelURL:          stripe.String(c.cfg.CancelURL),
		ClientReferenceID:  stripe.String(strconv.FormatInt(booking.ID, 10)),
		CustomerEmail:      stripe.String(booking.Customer.Email),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(c.cfg.Currency),
					UnitAmount: stripe.Int64(minorUnits(booking.Amount.Total)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(car.Name),
						Description: stripe.String(car.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	s, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	c.log.Info().Int64("booking_id", booking.ID).Str("session_id", s.ID).Msg("checkout session created")
	return s.URL, nil
}

// ParseNotification verifies the delivery signature against the shared
// webhook secret and extracts the completed-checkout payload. Deliveries
// of other event types return (nil, nil) and are acknowledged unused.
func (c *StripeClient) ParseNotification(payload []byte, signatureHeader string) (*models.PaymentNotification, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, c.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	if event.Type != "checkout.session.completed" {
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	bookingID, err := strconv.ParseInt(sess.ClientReferenceID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid client reference id %q: %w", sess.ClientReferenceID, err)
	}

	paymentID := ""
	if sess.PaymentIntent != nil {
		paymentID = sess.PaymentIntent.ID
	}
	method := models.PaymentMethodCard
	if len(sess.PaymentMethodTypes) > 0 {
		method = string(sess.PaymentMethodTypes[0])
	}

	return &models.PaymentNotification{
		EventID:   event.ID,
		BookingID: bookingID,
		PaymentID: paymentID,
		Status:    string(sess.PaymentStatus),
		Method:    method,
	}, nil
}

// minorUnits converts a display amount to the gateway's smallest
// denomination.
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
