package errors

import (
	"net/http"

	"github.com/customeros/waitlist/internal/intake"
)

const (
	MsgMissingEmail      = "Missing required field: email"
	MsgInvalidFormat     = "Invalid email format"
	MsgInvalidDomain     = "Invalid email domain"
	MsgFlaggedScam       = "Email flagged as suspicious"
	MsgAlreadyOnWaitlist = "Email already on waitlist"
	MsgRateLimited       = "Too many requests"
	MsgEntryNotFound     = "Waitlist entry not found"
	MsgInternal          = "Internal server error"
)

// Rejection maps a verdict reason to the status and message returned to the client.
func Rejection(reason intake.Reason) (int, string) {
	switch reason {
	case intake.ReasonInvalidFormat:
		return http.StatusBadRequest, MsgInvalidFormat
	case intake.ReasonInvalidDomain:
		return http.StatusBadRequest, MsgInvalidDomain
	case intake.ReasonFlaggedScam:
		return http.StatusBadRequest, MsgFlaggedScam
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}
