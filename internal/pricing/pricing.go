// Package pricing derives the reservation amount breakdown. It is pure:
// no I/O, no rounding, so recomputing from the same inputs is exact.
package pricing

import (
	"time"

	"gorental/internal/models"
)

// DaysOfRent counts calendar days in the inclusive range [start, end].
// Both boundary days count, so a same-day rental is 1 day. Returns 0 for
// an inverted range; the caller rejects that upstream.
func DaysOfRent(start, end time.Time) int {
	s := truncateToDay(start)
	e := truncateToDay(end)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

// Quote computes the amount breakdown from the daily rate, duration and
// an already-resolved discount percentage. Tax is charged on the
// pre-discount rent.
func Quote(rentPerDay float64, daysOfRent int, discountPercent float64) models.Amount {
	rent := rentPerDay * float64(daysOfRent)
	discount := rent * discountPercent / 100
	tax := rent * models.TaxRate

	return models.Amount{
		Rent:     rent,
		Discount: discount,
		Tax:      tax,
		Total:    tax + (rent - discount),
	}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfDay normalizes to 00:00:00 UTC of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	return truncateToDay(t)
}

// EndOfDay normalizes to the last instant of t's calendar day in UTC, so
// a half-open day at a window edge is fully included.
func EndOfDay(t time.Time) time.Time {
	return truncateToDay(t).Add(24*time.Hour - time.Nanosecond)
}
