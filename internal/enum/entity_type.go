package enum

// EntityType names the record an event is about.
type EntityType string

const (
	WAITLIST_ENTRY EntityType = "WAITLIST_ENTRY"
	SCAM_LOG_ENTRY EntityType = "SCAM_LOG_ENTRY"
)

func (entityType EntityType) String() string {
	return string(entityType)
}

func (entityType EntityType) Valid() bool {
	return entityType == WAITLIST_ENTRY || entityType == SCAM_LOG_ENTRY
}
