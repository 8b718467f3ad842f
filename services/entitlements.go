package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookingdesk-backend/models"
	"bookingdesk-backend/repository"
	"bookingdesk-backend/utils"

	"github.com/google/uuid"
)

var ErrLimitReached = errors.New("plan limit reached")

// LimitError names the exhausted resource. It matches ErrLimitReached.
type LimitError struct {
	Resource string
	Plan     string
	Limit    int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s plan allows at most %d %s", e.Plan, e.Limit, e.Resource)
}

func (e *LimitError) Is(target error) bool {
	return target == ErrLimitReached
}

type Usage struct {
	TeamMembers         int64 `json:"teamMembers"`
	Services            int64 `json:"services"`
	MonthlyAppointments int64 `json:"monthlyAppointments"`
}

// Entitlements enforces the limits of a workspace's current plan.
type Entitlements struct {
	store *repository.Store
	now   func() time.Time
}

func NewEntitlements(store *repository.Store) *Entitlements {
	return &Entitlements{store: store, now: time.Now}
}

// Plan returns the plan whose limits apply to the workspace. Workspaces
// without an entitled subscription fall back to the free plan.
func (e *Entitlements) Plan(ctx context.Context, workspaceID uuid.UUID) (*models.SubscriptionPlan, *models.Subscription, error) {
	sub, err := e.store.Billing.FindSubscription(ctx, workspaceID)
	if errors.Is(err, repository.ErrNotFound) {
		sub = &models.Subscription{WorkspaceID: workspaceID, PlanCode: models.PlanFree, Status: models.SubscriptionActive}
	} else if err != nil {
		return nil, nil, err
	}

	code := sub.PlanCode
	if !sub.Entitled() {
		code = models.PlanFree
	}
	plan, err := e.store.Billing.FindPlan(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		p, _ := models.FindPlan(models.DefaultPlans(), models.PlanFree)
		return &p, sub, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return plan, sub, nil
}

func (e *Entitlements) CheckTeamMember(ctx context.Context, workspaceID uuid.UUID) error {
	plan, _, err := e.Plan(ctx, workspaceID)
	if err != nil {
		return err
	}
	n, err := e.store.Team.Count(ctx, workspaceID)
	if err != nil {
		return err
	}
	return check(n, plan.MaxTeamMembers, "team members", plan.Code)
}

func (e *Entitlements) CheckService(ctx context.Context, workspaceID uuid.UUID) error {
	plan, _, err := e.Plan(ctx, workspaceID)
	if err != nil {
		return err
	}
	n, err := e.store.Services.Count(ctx, workspaceID)
	if err != nil {
		return err
	}
	return check(n, plan.MaxServices, "services", plan.Code)
}

// CheckAppointment counts bookings in the calendar month (UTC) of start.
func (e *Entitlements) CheckAppointment(ctx context.Context, workspaceID uuid.UUID, start time.Time) error {
	plan, _, err := e.Plan(ctx, workspaceID)
	if err != nil {
		return err
	}
	from, to := utils.MonthBounds(start.UTC())
	n, err := e.store.Appointments.CountBetween(ctx, workspaceID, from, to)
	if err != nil {
		return err
	}
	return check(n, plan.MaxMonthlyAppointments, "appointments per month", plan.Code)
}

func (e *Entitlements) Usage(ctx context.Context, workspaceID uuid.UUID) (Usage, error) {
	var u Usage
	var err error
	if u.TeamMembers, err = e.store.Team.Count(ctx, workspaceID); err != nil {
		return u, err
	}
	if u.Services, err = e.store.Services.Count(ctx, workspaceID); err != nil {
		return u, err
	}
	from, to := utils.MonthBounds(e.now().UTC())
	u.MonthlyAppointments, err = e.store.Appointments.CountBetween(ctx, workspaceID, from, to)
	return u, err
}

func check(current int64, limit int, resource, plan string) error {
	if current >= int64(limit) {
		return &LimitError{Resource: resource, Plan: plan, Limit: limit}
	}
	return nil
}
