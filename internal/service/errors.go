package service

import "errors"

var (
	// ErrPermissionDenied marks a non-owner, non-admin mutation attempt.
	// Distinct from not-found and from validation failures.
	ErrPermissionDenied = errors.New("you do not have permission to access this booking")

	ErrInvalidInput = errors.New("invalid input")

	// ErrMethodAlreadySelected: the payment method is fixed once chosen.
	ErrMethodAlreadySelected = errors.New("payment method already selected")

	// ErrPaymentsUnavailable surfaces a missing or failing gateway; the
	// reservation stays pending and the caller may retry.
	ErrPaymentsUnavailable = errors.New("payment gateway unavailable")
)
