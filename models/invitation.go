package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRevoked  = "revoked"
)

const InvitationTTL = 7 * 24 * time.Hour

type WorkspaceInvitation struct {
	Base
	WorkspaceID uuid.UUID  `gorm:"type:uuid;index;not null" json:"workspaceId"`
	Email       string     `gorm:"not null;index" json:"email"`
	Role        Role       `gorm:"type:varchar(20);not null" json:"role"`
	Token       string     `gorm:"uniqueIndex;not null" json:"-"`
	Status      string     `gorm:"type:varchar(20);not null" json:"status"`
	InvitedBy   uuid.UUID  `gorm:"type:uuid;not null" json:"invitedBy"`
	ExpiresAt   time.Time  `gorm:"not null" json:"expiresAt"`
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`

	Workspace *Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
}

// NewInvitation builds a pending invitation with a random token.
func NewInvitation(workspaceID uuid.UUID, email string, role Role, invitedBy uuid.UUID, now time.Time) *WorkspaceInvitation {
	return &WorkspaceInvitation{
		WorkspaceID: workspaceID,
		Email:       email,
		Role:        role,
		Token:       newToken(),
		Status:      InvitationPending,
		InvitedBy:   invitedBy,
		ExpiresAt:   now.Add(InvitationTTL),
	}
}

func (i *WorkspaceInvitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

const (
	JoinRequestPending  = "pending"
	JoinRequestApproved = "approved"
	JoinRequestRejected = "rejected"
)

// WorkspaceJoinRequest is a user asking to be let into a workspace.
type WorkspaceJoinRequest struct {
	Base
	WorkspaceID uuid.UUID  `gorm:"type:uuid;index;not null" json:"workspaceId"`
	UserID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"userId"`
	Message     string     `gorm:"type:text" json:"message,omitempty"`
	Status      string     `gorm:"type:varchar(20);not null" json:"status"`
	ReviewedBy  *uuid.UUID `gorm:"type:uuid" json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
