package models

import "time"

// DateOnly is the calendar-day layout used for reservation date ranges.
// Ranges are inclusive on both ends at day granularity.
const DateOnly = "2006-01-02"

// Customer is the contact snapshot captured at booking time. It is
// intentionally decoupled from the live user record: later profile edits
// must not rewrite historical reservations.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Amount is the price breakdown persisted with every reservation.
// Invariant: Total = Tax + Rent - Discount, with Tax computed on the
// pre-discount rent.
type Amount struct {
	Rent     float64 `json:"rent"`
	Discount float64 `json:"discount"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// PaymentInfo tracks reconciliation with the payment gateway. ID is the
// gateway's payment identifier, empty until the webhook lands.
type PaymentInfo struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status"` // pending, paid
	Method string `json:"method,omitempty"`
}

type Booking struct {
	ID              int64       `json:"id"`
	CarID           int64       `json:"car_id"`
	CarName         string      `json:"car_name"`
	UserID          int64       `json:"user_id"`
	StartDate       time.Time   `json:"start_date"`
	EndDate         time.Time   `json:"end_date"`
	Customer        Customer    `json:"customer"`
	Amount          Amount      `json:"amount"`
	DaysOfRent      int         `json:"days_of_rent"`
	RentPerDay      float64     `json:"rent_per_day"`
	PaymentInfo     PaymentInfo `json:"payment_info"`
	AdditionalNotes string      `json:"additional_notes,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Version         int64       `json:"version"`
}

// HoldsCar reports whether the reservation counts toward availability
// conflicts.
func (b *Booking) HoldsCar() bool {
	return b.PaymentInfo.Status == PaymentStatusPending || b.PaymentInfo.Status == PaymentStatusPaid
}

// PaymentNotification is the verified payload extracted from a gateway
// webhook delivery.
type PaymentNotification struct {
	EventID   string
	BookingID int64
	PaymentID string
	Status    string
	Method    string
}

// BookingSummary accompanies a user's booking list.
type BookingSummary struct {
	TotalAmount         float64 `json:"total_amount"`
	TotalBookings       int64   `json:"total_bookings"`
	TotalUnpaidBookings int64   `json:"total_unpaid_bookings"`
}

// Pagination reports the post-filter total so clients can render "N of M".
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalCount int `json:"total_count"`
}
