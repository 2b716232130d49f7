package dto

import (
	"github.com/customeros/waitlist/internal/intake"
	"github.com/customeros/waitlist/internal/models"
)

type JoinRequest struct {
	Email     string
	Source    string
	IPAddress string
	// Metadata is free-form client data stored with the entry.
	Metadata map[string]interface{}
}

type JoinResult struct {
	Verdict intake.Result
	Entry   *models.WaitlistEntry
	// ConfirmationQueued is false when the confirmation could not be sent or published.
	ConfirmationQueued bool
}

type OutgoingMessage struct {
	To        string
	Subject   string
	Text      string
	HTML      string
	MessageID string
}
