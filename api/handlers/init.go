package handlers

import (
	"github.com/customeros/waitlist/interfaces"
	"github.com/customeros/waitlist/internal/logger"
)

type APIHandlers struct {
	Waitlist *WaitlistHandler
	Admin    *AdminHandler
}

func InitHandlers(waitlist interfaces.WaitlistService, log logger.Logger) *APIHandlers {
	return &APIHandlers{
		Waitlist: NewWaitlistHandler(waitlist, log),
		Admin:    NewAdminHandler(waitlist, log),
	}
}
