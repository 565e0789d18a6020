package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gorental/internal/database"
	"gorental/internal/domain"
	"gorental/internal/events"
	"gorental/internal/metrics"
	"gorental/internal/models"
	"gorental/internal/pricing"
)

// BookingInput is what a client submits. Amounts are intentionally
// absent: the engine re-derives the breakdown from the stored car rate
// and never trusts client arithmetic.
type BookingInput struct {
	CarID           int64           `json:"car_id"`
	StartDate       time.Time       `json:"-"`
	EndDate         time.Time       `json:"-"`
	Customer        models.Customer `json:"customer"`
	DiscountPercent float64         `json:"discount_percent"`
	AdditionalNotes string          `json:"additional_notes"`
}

// BookingUpdate carries the mutable fields of a reservation. Nil means
// "leave unchanged".
type BookingUpdate struct {
	AdditionalNotes *string
	PaymentInfo     *models.PaymentInfo
}

type BookingService struct {
	repo           domain.Repository
	eventBus       domain.EventPublisher
	gateway        domain.CheckoutGateway
	idempotency    domain.IdempotencyStore
	ledger         domain.LedgerQueue
	maxBookingDays int
	cashGrace      time.Duration
	log            zerolog.Logger
}

func NewBookingService(
	repo domain.Repository,
	eventBus domain.EventPublisher,
	gateway domain.CheckoutGateway,
	idempotency domain.IdempotencyStore,
	ledger domain.LedgerQueue,
	maxBookingDays int,
	cashGraceHours int,
	logger *zerolog.Logger,
) *BookingService {
	if maxBookingDays <= 0 {
		maxBookingDays = models.MaxBookingDays
	}
	if cashGraceHours <= 0 {
		cashGraceHours = models.CashGraceHours
	}
	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "booking").Logger()
	}
	return &BookingService{
		repo:           repo,
		eventBus:       eventBus,
		gateway:        gateway,
		idempotency:    idempotency,
		ledger:         ledger,
		maxBookingDays: maxBookingDays,
		cashGrace:      time.Duration(cashGraceHours) * time.Hour,
		log:            log,
	}
}

func (s *BookingService) validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return database.ErrInvalidDateRange
	}
	if end.Before(start) {
		return database.ErrInvalidDateRange
	}
	if start.Before(pricing.StartOfDay(time.Now())) {
		return database.ErrPastDate
	}
	if start.After(time.Now().AddDate(0, 0, s.maxBookingDays)) {
		return database.ErrDateTooFar
	}
	return nil
}

func validateInput(in BookingInput) error {
	if in.CarID == 0 {
		return fmt.Errorf("%w: car_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Customer.Name) == "" ||
		strings.TrimSpace(in.Customer.Email) == "" ||
		strings.TrimSpace(in.Customer.Phone) == "" {
		return fmt.Errorf("%w: customer name, email and phone are required", ErrInvalidInput)
	}
	if in.DiscountPercent < 0 || in.DiscountPercent > 100 {
		return fmt.Errorf("%w: discount percent must be in [0,100]", ErrInvalidInput)
	}
	return nil
}

// Create runs the booking transition: validate, re-derive the price from
// the current car rate, insert behind the transactional overlap check,
// then fan out the operator alert. Nothing is persisted on any failure
// before the insert, and alert delivery never fails the booking.
func (s *BookingService) Create(ctx context.Context, in BookingInput, requester models.Identity) (*models.Booking, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := s.validateRange(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	car, err := s.repo.GetCar(ctx, in.CarID)
	if err != nil {
		return nil, err
	}

	days := pricing.DaysOfRent(in.StartDate, in.EndDate)
	if days <= 0 {
		return nil, database.ErrInvalidDateRange
	}

	booking := &models.Booking{
		CarID:           car.ID,
		CarName:         car.Name,
		UserID:          requester.UserID,
		StartDate:       pricing.StartOfDay(in.StartDate),
		EndDate:         pricing.StartOfDay(in.EndDate),
		Customer:        in.Customer,
		Amount:          pricing.Quote(car.RentPerDay, days, in.DiscountPercent),
		DaysOfRent:      days,
		RentPerDay:      car.RentPerDay,
		PaymentInfo:     models.PaymentInfo{Status: models.PaymentStatusPending},
		AdditionalNotes: in.AdditionalNotes,
	}

	if err := s.repo.CreateReservationTx(ctx, booking); err != nil {
		if err == database.ErrNotAvailable {
			metrics.IncBookingConflict()
		}
		return nil, err
	}

	metrics.IncBookingCreated()
	s.publishAlert(events.EventBookingCreated, booking)

	return booking, nil
}

// Availability answers the single-resource pre-check: the holding
// reservations overlapping the window. Empty means bookable.
func (s *BookingService) Availability(ctx context.Context, carID int64, start, end time.Time) ([]*models.Booking, error) {
	if end.Before(start) {
		return nil, database.ErrInvalidDateRange
	}
	if _, err := s.repo.GetCar(ctx, carID); err != nil {
		return nil, err
	}
	return s.repo.OverlappingReservations(ctx, carID, start, end)
}

func (s *BookingService) Get(ctx context.Context, id int64, requester models.Identity) (*models.Booking, error) {
	booking, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !requester.IsAdmin() && booking.UserID != requester.UserID {
		return nil, ErrPermissionDenied
	}
	return booking, nil
}

// Update rewrites the mutable reservation fields. Owner or admin only;
// an operator marking a cash reservation paid goes through here.
func (s *BookingService) Update(ctx context.Context, id int64, update BookingUpdate, requester models.Identity) (*models.Booking, error) {
	booking, err := s.Get(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	notes := booking.AdditionalNotes
	if update.AdditionalNotes != nil {
		notes = *update.AdditionalNotes
	}
	pay := booking.PaymentInfo
	if update.PaymentInfo != nil {
		pay = *update.PaymentInfo
	}

	if err := s.repo.UpdateReservationWithVersion(ctx, id, booking.Version, notes, pay); err != nil {
		return nil, err
	}
	return s.repo.GetReservation(ctx, id)
}

// Delete is the explicit admin removal, valid in any state.
func (s *BookingService) Delete(ctx context.Context, id int64, requester models.Identity) error {
	if !requester.IsAdmin() {
		return ErrPermissionDenied
	}
	return s.repo.DeleteReservation(ctx, id)
}

// PaymentMethodResult tells the caller what the selection did: for cash,
// how long the hold is honored; for card, where to redirect.
type PaymentMethodResult struct {
	Method      string        `json:"method"`
	CheckoutURL string        `json:"checkout_url,omitempty"`
	HoldFor     time.Duration `json:"-"`
}

// SelectPaymentMethod fixes the payment method. Cash keeps the
// reservation pending under the grace hold. Card requests a hosted
// checkout session and changes no local state; the gateway's webhook
// advances the reservation later. A failed session request leaves the
// reservation untouched so the user can retry.
func (s *BookingService) SelectPaymentMethod(ctx context.Context, id int64, method string, requester models.Identity) (*PaymentMethodResult, error) {
	booking, err := s.Get(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	if booking.PaymentInfo.Method != "" && booking.PaymentInfo.Method != method {
		return nil, ErrMethodAlreadySelected
	}

	switch method {
	case models.PaymentMethodCash:
		pay := booking.PaymentInfo
		pay.Method = models.PaymentMethodCash
		if err := s.repo.UpdateReservationWithVersion(ctx, id, booking.Version, booking.AdditionalNotes, pay); err != nil {
			return nil, err
		}
		return &PaymentMethodResult{Method: method, HoldFor: s.cashGrace}, nil

	case models.PaymentMethodCard:
		if s.gateway == nil {
			return nil, ErrPaymentsUnavailable
		}
		car, err := s.repo.GetCar(ctx, booking.CarID)
		if err != nil {
			return nil, err
		}
		url, err := s.gateway.CreateCheckoutSession(ctx, booking, car)
		if err != nil {
			s.log.Error().Err(err).Int64("booking_id", id).Msg("checkout session failed")
			return nil, fmt.Errorf("%w: %v", ErrPaymentsUnavailable, err)
		}
		return &PaymentMethodResult{Method: method, CheckoutURL: url}, nil

	default:
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, method)
	}
}

// HandleNotification reconciles a verified gateway notification.
// Idempotent: recorded event ids short-circuit, and the storage update
// itself only moves forward, so a replay that sneaks past the dedup
// store still cannot double-apply. The event id is recorded only after
// the payment update is durable; a delivery that fails returns an error
// (the webhook answers non-2xx) and the gateway's retry of the same id
// is processed, not suppressed. Unmatched reservation ids are rejected
// so the gateway retries and an operator can investigate.
func (s *BookingService) HandleNotification(ctx context.Context, n *models.PaymentNotification) error {
	if n == nil {
		return nil
	}

	if s.idempotency != nil {
		seen, err := s.idempotency.Seen(ctx, n.EventID)
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", n.EventID).Msg("idempotency check failed, relying on storage guard")
		} else if seen {
			metrics.IncWebhookEvent("duplicate")
			s.log.Info().Str("event_id", n.EventID).Msg("duplicate webhook delivery ignored")
			return nil
		}
	}

	if n.Status != models.PaymentStatusPaid {
		// Not a forward transition; acknowledge without mutating.
		metrics.IncWebhookEvent("ignored")
		return nil
	}

	applied, err := s.repo.ApplyPaymentUpdate(ctx, n.BookingID, n.PaymentID, models.PaymentStatusPaid, n.Method)
	if err != nil {
		if err == database.ErrNotFound {
			metrics.IncWebhookEvent("unmatched")
			s.log.Error().Int64("booking_id", n.BookingID).Str("event_id", n.EventID).Msg("webhook references unknown reservation")
		} else {
			metrics.IncWebhookEvent("error")
		}
		return err
	}
	s.recordDelivery(ctx, n.EventID)
	if !applied {
		metrics.IncWebhookEvent("duplicate")
		return nil
	}

	metrics.IncWebhookEvent("applied")

	booking, err := s.repo.GetReservation(ctx, n.BookingID)
	if err == nil {
		s.publishAlert(events.EventBookingPaid, booking)
		if s.ledger != nil {
			if err := s.ledger.EnqueueReservation(ctx, booking); err != nil {
				s.log.Error().Err(err).Int64("booking_id", booking.ID).Msg("ledger enqueue failed")
			}
		}
	}

	return nil
}

// recordDelivery marks the event id as processed. Called only once the
// state change is durable, never before.
func (s *BookingService) recordDelivery(ctx context.Context, eventID string) {
	if s.idempotency == nil {
		return
	}
	if _, err := s.idempotency.FirstDelivery(ctx, eventID); err != nil {
		s.log.Warn().Err(err).Str("event_id", eventID).Msg("failed to record webhook event id")
	}
}

// MyBookings returns one page of the requester's reservations with the
// cross-page summary.
func (s *BookingService) MyBookings(ctx context.Context, requester models.Identity, page, perPage int) ([]*models.Booking, models.BookingSummary, int, error) {
	summary, err := s.repo.UserReservationSummary(ctx, requester.UserID)
	if err != nil {
		return nil, models.BookingSummary{}, 0, err
	}
	bookings, total, err := s.repo.UserReservations(ctx, requester.UserID, page, perPage)
	if err != nil {
		return nil, models.BookingSummary{}, 0, err
	}
	return bookings, summary, total, nil
}

// AllBookings is the back-office list. Admin only.
func (s *BookingService) AllBookings(ctx context.Context, requester models.Identity, page, perPage int) ([]*models.Booking, int, error) {
	if !requester.IsAdmin() {
		return nil, 0, ErrPermissionDenied
	}
	return s.repo.AllReservations(ctx, page, perPage)
}

// BookedDates lists the occupied calendar days of a car.
func (s *BookingService) BookedDates(ctx context.Context, carID int64) ([]time.Time, error) {
	if _, err := s.repo.GetCar(ctx, carID); err != nil {
		return nil, err
	}
	return s.repo.BookedDates(ctx, carID)
}

func (s *BookingService) publishAlert(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingAlert{
		BookingID: booking.ID,
		CarName:   booking.CarName,
		Total:     booking.Amount.Total,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}
