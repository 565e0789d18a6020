package database

import "errors"

var (
	// ErrNotFound distinguishes a missing car or reservation from other
	// failures so callers can render a 404 instead of a generic error.
	ErrNotFound = errors.New("not found")

	// ErrNotAvailable is the conflict outcome: the requested dates
	// overlap a reservation that still holds the car.
	ErrNotAvailable = errors.New("car is not available for the requested dates")

	ErrInvalidDateRange = errors.New("end date is before start date")
	ErrPastDate         = errors.New("start date is in the past")
	ErrDateTooFar       = errors.New("start date is too far in the future")

	ErrConcurrentModification = errors.New("reservation was modified concurrently")
)
