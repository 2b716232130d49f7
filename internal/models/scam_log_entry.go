package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/waitlist/internal/utils"
)

// ScamLogEntry records an intake attempt rejected as a likely scam.
type ScamLogEntry struct {
	ID          string    `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Email       string    `gorm:"column:email;type:varchar(255);index" json:"email"`
	Domain      string    `gorm:"column:domain;type:varchar(255);index" json:"domain"`
	MatchedRule string    `gorm:"column:matched_rule;type:varchar(255)" json:"matchedRule"`
	Source      string    `gorm:"column:source;type:varchar(100)" json:"source,omitempty"`
	IPAddress   string    `gorm:"column:ip_address;type:varchar(64)" json:"ipAddress,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp;index" json:"createdAt"`
}

func (ScamLogEntry) TableName() string {
	return "scam_log_entries"
}

func (m *ScamLogEntry) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIDWithPrefix("scam", 16)
	}
	return nil
}
