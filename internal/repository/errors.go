package repository

import "errors"

var (
	ErrEntryNotFound  = errors.New("waitlist entry not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrInvalidInput   = errors.New("invalid input parameters")
)
