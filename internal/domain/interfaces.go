package domain

import (
	"context"
	"time"

	"gorental/internal/database"
	"gorental/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Repository is the persistence boundary for reservations and the
// read-only catalog.
type Repository interface {
	GetCar(ctx context.Context, id int64) (*models.Car, error)
	SearchCars(ctx context.Context, f models.CarFilter) ([]*models.Car, int, error)

	CreateReservation(ctx context.Context, b *models.Booking) error
	CreateReservationTx(ctx context.Context, b *models.Booking) error
	GetReservation(ctx context.Context, id int64) (*models.Booking, error)
	UpdateReservationWithVersion(ctx context.Context, id, fromVersion int64, notes string, pay models.PaymentInfo) error
	ApplyPaymentUpdate(ctx context.Context, id int64, paymentID, status, method string) (bool, error)
	DeleteReservation(ctx context.Context, id int64) error

	OverlappingReservations(ctx context.Context, carID int64, start, end time.Time) ([]*models.Booking, error)
	ConflictingCarIDs(ctx context.Context, start, end time.Time) ([]int64, error)
	BookedDates(ctx context.Context, carID int64) ([]time.Time, error)

	UserReservations(ctx context.Context, userID int64, page, perPage int) ([]*models.Booking, int, error)
	UserReservationSummary(ctx context.Context, userID int64) (models.BookingSummary, error)
	AllReservations(ctx context.Context, page, perPage int) ([]*models.Booking, int, error)

	ReapStalePending(ctx context.Context, cutoff time.Time) (int64, error)
	SalesTotals(ctx context.Context, start, end time.Time) ([]database.DailySales, float64, float64, error)
}

// EventPublisher is the fire-and-forget notification capability the
// lifecycle depends on; a concrete bus is injected, never imported.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// CheckoutGateway requests a hosted checkout session from the payment
// provider and returns the redirect URL. No local state changes.
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, booking *models.Booking, car *models.Car) (string, error)
}

// WebhookVerifier authenticates a raw gateway notification against the
// shared secret and extracts the payload. A nil notification with nil
// error means the event type is not of interest.
type WebhookVerifier interface {
	ParseNotification(payload []byte, signatureHeader string) (*models.PaymentNotification, error)
}

// IdempotencyStore suppresses duplicate webhook deliveries. Seen is a
// read-only probe; FirstDelivery records the id and returns true exactly
// once per event id. Ids are recorded only after the delivery's effects
// are durable, so a failed delivery stays retryable.
type IdempotencyStore interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	FirstDelivery(ctx context.Context, eventID string) (bool, error)
}

// LedgerSink receives paid reservations for the back-office ledger.
type LedgerSink interface {
	AppendReservation(ctx context.Context, b *models.Booking) error
}

// LedgerQueue decouples ledger writes from the request path.
type LedgerQueue interface {
	EnqueueReservation(ctx context.Context, b *models.Booking) error
}

// TelegramSender is the slice of the bot API used by the operator alert
// feed; fakes implement it in tests.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
