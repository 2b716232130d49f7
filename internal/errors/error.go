package errors

import "github.com/pkg/errors"

var (
	// common errors
	ErrInvalidInput = errors.New("invalid input")

	// waitlist errors
	ErrAlreadyOnWaitlist = errors.New("email already on waitlist")
	ErrEntryNotFound     = errors.New("waitlist entry not found")
)
