package models

import (
	"time"

	"github.com/google/uuid"
)

type Service struct {
	Base
	WorkspaceID     uuid.UUID `gorm:"type:uuid;index;not null" json:"workspaceId"`
	Name            string    `gorm:"not null" json:"name"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `gorm:"not null" json:"durationMinutes"`
	PriceCents      int64     `gorm:"not null;default:0" json:"priceCents"`
	Currency        string    `gorm:"type:varchar(3);default:'usd'" json:"currency"`
	IsActive        bool      `gorm:"default:true" json:"isActive"`

	Variants []ServiceVariant `gorm:"foreignKey:ServiceID;constraint:OnDelete:CASCADE" json:"variants"`
}

// ServiceVariant overrides a service's duration and price, e.g. "Long hair".
type ServiceVariant struct {
	Base
	ServiceID       uuid.UUID `gorm:"type:uuid;index;not null" json:"serviceId"`
	Name            string    `gorm:"not null" json:"name"`
	DurationMinutes int       `gorm:"not null" json:"durationMinutes"`
	PriceCents      int64     `gorm:"not null;default:0" json:"priceCents"`
}

// Variant returns the variant with the given id, if the service has it.
func (s *Service) Variant(id uuid.UUID) (*ServiceVariant, bool) {
	for i := range s.Variants {
		if s.Variants[i].ID == id {
			return &s.Variants[i], true
		}
	}
	return nil, false
}

// Duration is the booked length for the service, or for the variant when one is given.
func (s *Service) Duration(v *ServiceVariant) time.Duration {
	if v != nil && v.DurationMinutes > 0 {
		return time.Duration(v.DurationMinutes) * time.Minute
	}
	return time.Duration(s.DurationMinutes) * time.Minute
}
