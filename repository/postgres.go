package repository

import (
	"context"

	"bookingdesk-backend/models"

	"gorm.io/gorm"
)

// NewPostgresStore wires the gorm-backed repositories.
func NewPostgresStore(db *gorm.DB) *Store {
	return &Store{
		Users:         &userRepo{db: db},
		Workspaces:    &workspaceRepo{db: db},
		Members:       &memberRepo{db: db},
		Team:          &teamRepo{db: db},
		Services:      &serviceRepo{db: db},
		Appointments:  &appointmentRepo{db: db},
		Billing:       &billingRepo{db: db},
		Invitations:   &invitationRepo{db: db},
		Notifications: &notificationRepo{db: db},
	}
}

// Migrate creates or updates the schema and seeds the plan catalog.
func Migrate(ctx context.Context, db *gorm.DB, plans []models.SubscriptionPlan) error {
	if err := db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return err
	}
	return (&billingRepo{db: db}).SeedPlans(ctx, plans)
}
