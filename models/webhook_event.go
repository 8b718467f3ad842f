package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent records each processed provider event once.
type WebhookEvent struct {
	Base
	Provider    string         `gorm:"type:varchar(20);not null;uniqueIndex:idx_provider_event,priority:1"`
	EventID     string         `gorm:"not null;uniqueIndex:idx_provider_event,priority:2"`
	EventType   string         `gorm:"not null"`
	Payload     datatypes.JSON `gorm:"type:jsonb"`
	ProcessedAt time.Time
}
