// Package service implements the market sales use cases on top of the
// repositories: the mercadillo lifecycle, balance carry-over, sales and
// expenses, the article catalog and user settings.
package service

import "errors"

var (
	// ErrValidation wraps every input problem; handlers answer 400.
	ErrValidation = errors.New("validation error")
	// ErrInvalidState means the action is not allowed in the event's
	// current lifecycle state; handlers answer 409.
	ErrInvalidState = errors.New("action not allowed in current state")
	// ErrHasSales blocks cancelling or removing an event with tickets.
	ErrHasSales = errors.New("mercadillo has sales")
	// ErrPremiumRequired is returned when the free tier limit is reached.
	ErrPremiumRequired = errors.New("premium required")
)
