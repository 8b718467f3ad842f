package repository

import (
	"context"

	"bookingdesk-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type billingRepo struct {
	db *gorm.DB
}

func (r *billingRepo) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := r.db.WithContext(ctx).Order("price_cents").Find(&plans).Error
	return plans, translate(err)
}

func (r *billingRepo) FindPlan(ctx context.Context, code string) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	if err := r.db.WithContext(ctx).First(&p, "code = ?", code).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *billingRepo) SeedPlans(ctx context.Context, plans []models.SubscriptionPlan) error {
	if len(plans) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "price_cents", "currency", "interval", "stripe_price_id",
			"max_team_members", "max_services", "max_monthly_appointments", "updated_at",
		}),
	}).Create(&plans).Error)
}

func (r *billingRepo) FindSubscription(ctx context.Context, workspaceID uuid.UUID) (*models.Subscription, error) {
	var s models.Subscription
	if err := r.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *billingRepo) FindSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	var s models.Subscription
	if err := r.db.WithContext(ctx).Where("stripe_subscription_id = ?", stripeSubscriptionID).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *billingRepo) SaveSubscription(ctx context.Context, s *models.Subscription) error {
	return translate(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "workspace_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_code", "status", "stripe_customer_id", "stripe_subscription_id",
			"current_period_start", "current_period_end", "canceled_at", "updated_at",
		}),
	}).Create(s).Error)
}

func (r *billingRepo) RecordWebhookEvent(ctx context.Context, e *models.WebhookEvent) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(e)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *billingRepo) InTx(ctx context.Context, fn func(BillingRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&billingRepo{db: tx})
	})
}
