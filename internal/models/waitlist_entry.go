package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/customeros/waitlist/internal/enum"
	"github.com/customeros/waitlist/internal/utils"
)

type WaitlistEntry struct {
	ID                   string                     `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Email                string                     `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	Domain               string                     `gorm:"column:domain;type:varchar(255);index" json:"domain"`
	Classification       enum.AddressClassification `gorm:"column:classification;type:varchar(50)" json:"classification"`
	ClassificationReason string                     `gorm:"column:classification_reason;type:varchar(255)" json:"classificationReason,omitempty"`
	Source               string                     `gorm:"column:source;type:varchar(100)" json:"source,omitempty"`
	IPAddress            string                     `gorm:"column:ip_address;type:varchar(64)" json:"ipAddress,omitempty"`
	MXHosts              pq.StringArray             `gorm:"column:mx_hosts;type:text[]" json:"mxHosts,omitempty"`
	Metadata             JSONMap                    `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	ConfirmationQueuedAt *time.Time                 `gorm:"column:confirmation_queued_at;type:timestamp" json:"confirmationQueuedAt,omitempty"`
	ConfirmationSentAt   *time.Time                 `gorm:"column:confirmation_sent_at;type:timestamp" json:"confirmationSentAt,omitempty"`
	ConfirmationAttempts int                        `gorm:"column:confirmation_attempts;type:integer;default:0" json:"confirmationAttempts"`
	LastConfirmationErr  string                     `gorm:"column:last_confirmation_error;type:text" json:"lastConfirmationError,omitempty"`
	CreatedAt            time.Time                  `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt            time.Time                  `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (WaitlistEntry) TableName() string {
	return "waitlist_entries"
}

func (m *WaitlistEntry) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("wl", 16)
	}
	return nil
}

func (m *WaitlistEntry) ConfirmationPending() bool {
	return m.ConfirmationSentAt == nil
}
