package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// NotificationLog records one outbound email or SMS attempt.
type NotificationLog struct {
	Base
	WorkspaceID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"workspaceId"`
	AppointmentID *uuid.UUID `gorm:"type:uuid;index" json:"appointmentId,omitempty"`
	Kind          string     `gorm:"type:varchar(40)" json:"kind"`
	Channel       string     `gorm:"type:varchar(20)" json:"channel"`
	Recipient     string     `json:"recipient"`
	Message       string     `gorm:"type:text" json:"message"`
	Status        string     `gorm:"type:varchar(20)" json:"status"` // sent, failed
	ErrorMessage  string     `gorm:"type:text" json:"errorMessage,omitempty"`
	SentAt        time.Time  `json:"sentAt"`
}
