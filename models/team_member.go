package models

import "github.com/google/uuid"

// TeamMember is a bookable staff profile. It may be linked to a user account.
type TeamMember struct {
	Base
	WorkspaceID uuid.UUID  `gorm:"type:uuid;index;not null" json:"workspaceId"`
	UserID      *uuid.UUID `gorm:"type:uuid;index" json:"userId,omitempty"`
	Name        string     `gorm:"not null" json:"name"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Title       string     `json:"title,omitempty"`
	Bio         string     `gorm:"type:text" json:"bio,omitempty"`
	IsActive    bool       `gorm:"default:true" json:"isActive"`
}
