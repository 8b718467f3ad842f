package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PlanFree    = "free"
	PlanStarter = "starter"
	PlanPro     = "pro"
)

const (
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

// SubscriptionPlan is a seeded catalog row with the limits it grants.
type SubscriptionPlan struct {
	Code                   string    `gorm:"primaryKey;type:varchar(32)" json:"code"`
	Name                   string    `gorm:"not null" json:"name"`
	PriceCents             int64     `gorm:"not null;default:0" json:"priceCents"`
	Currency               string    `gorm:"type:varchar(3);default:'usd'" json:"currency"`
	Interval               string    `gorm:"type:varchar(10);default:'month'" json:"interval"`
	StripePriceID          string    `json:"-"`
	MaxTeamMembers         int       `gorm:"not null" json:"maxTeamMembers"`
	MaxServices            int       `gorm:"not null" json:"maxServices"`
	MaxMonthlyAppointments int       `gorm:"not null" json:"maxMonthlyAppointments"`
	CreatedAt              time.Time `json:"-"`
	UpdatedAt              time.Time `json:"-"`
}

// DefaultPlans is the catalog seeded at startup.
func DefaultPlans() []SubscriptionPlan {
	return []SubscriptionPlan{
		{Code: PlanFree, Name: "Free", PriceCents: 0, Currency: "usd", Interval: "month",
			MaxTeamMembers: 1, MaxServices: 5, MaxMonthlyAppointments: 50},
		{Code: PlanStarter, Name: "Starter", PriceCents: 1900, Currency: "usd", Interval: "month",
			MaxTeamMembers: 5, MaxServices: 25, MaxMonthlyAppointments: 500},
		{Code: PlanPro, Name: "Pro", PriceCents: 4900, Currency: "usd", Interval: "month",
			MaxTeamMembers: 50, MaxServices: 200, MaxMonthlyAppointments: 5000},
	}
}

// FindPlan looks a plan up in a catalog slice.
func FindPlan(plans []SubscriptionPlan, code string) (SubscriptionPlan, bool) {
	for _, p := range plans {
		if p.Code == code {
			return p, true
		}
	}
	return SubscriptionPlan{}, false
}

type Subscription struct {
	Base
	WorkspaceID          uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"workspaceId"`
	PlanCode             string     `gorm:"type:varchar(32);not null" json:"plan"`
	Status               string     `gorm:"type:varchar(20);not null" json:"status"`
	StripeCustomerID     string     `json:"-"`
	StripeSubscriptionID string     `gorm:"index" json:"-"`
	CurrentPeriodStart   *time.Time `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd,omitempty"`
	CanceledAt           *time.Time `json:"canceledAt,omitempty"`
}

// Entitled reports whether the subscription grants its plan's limits.
func (s *Subscription) Entitled() bool {
	return s.Status == SubscriptionActive || s.Status == SubscriptionTrialing || s.Status == SubscriptionPastDue
}
