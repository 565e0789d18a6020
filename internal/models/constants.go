package models

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
)

const (
	CarStatusDraft  = "Draft"
	CarStatusActive = "Active"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// TaxRate is applied to the pre-discount rent.
const TaxRate = 0.15

const (
	// PendingRetentionHours is how long an unpaid reservation holds a car
	// before the reaper removes it.
	PendingRetentionHours = 48

	// CashGraceHours is the hold honored after choosing cash; enforcement
	// is the reaper's job, the selection itself changes nothing else.
	CashGraceHours = 6

	// ReaperIntervalMinutes keeps the staleness window small enough that
	// expired-but-unswept rows are not user-visible.
	ReaperIntervalMinutes = 10
)

const (
	// DefaultCarsPerPage is the catalog search page size.
	DefaultCarsPerPage = 3

	// DefaultBookingsPerPage is the page size of a user's booking list.
	DefaultBookingsPerPage = 2

	// DefaultAdminBookingsPerPage is the back-office list page size.
	DefaultAdminBookingsPerPage = 3
)

const (
	// MaxBookingDays bounds how far ahead a reservation may start.
	MaxBookingDays = 365

	// LedgerQueueSize is the in-memory ledger worker queue capacity.
	LedgerQueueSize = 1000

	// WebhookEventTTL (seconds) is how long processed gateway event ids
	// are remembered for duplicate suppression.
	WebhookEventTTL = 72 * 60 * 60
)

// Identity is the requester identity supplied by the auth boundary.
type Identity struct {
	UserID int64
	Role   string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
