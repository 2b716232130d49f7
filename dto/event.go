package dto

import "github.com/customeros/waitlist/internal/enum"

type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id         string          `json:"id"`
	EntityId   string          `json:"entityId"`
	EntityType enum.EntityType `json:"entityType"`
	EventType  string          `json:"eventType"`
	Data       interface{}     `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	ClientIP    string `json:"clientIp,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// SendConfirmation asks a listener to mail the confirmation for an entry.
type SendConfirmation struct {
	EntryID string `json:"entryId"`
}

type WaitlistJoined struct {
	EntryID        string `json:"entryId"`
	Email          string `json:"email"`
	Domain         string `json:"domain"`
	Classification string `json:"classification"`
	Source         string `json:"source,omitempty"`
}

type ScamFlagged struct {
	LogID       string `json:"logId"`
	Domain      string `json:"domain"`
	MatchedRule string `json:"matchedRule"`
}
