// Package repository holds the data access layer. Every query on tenant data
// is scoped by workspace id.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"bookingdesk-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrInUse means other rows still reference the record.
	ErrInUse = errors.New("record is referenced by other records")
	// ErrSlotTaken means the team member already has a live appointment
	// intersecting the requested time.
	ErrSlotTaken = errors.New("time slot is already booked")
	ErrLastOwner = errors.New("workspace must keep at least one owner")
	// ErrStale means the row changed since it was read.
	ErrStale = errors.New("record was modified concurrently")
)

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type WorkspaceRepository interface {
	// CreateWithOwner inserts the workspace, the owner membership and the
	// initial subscription in one transaction.
	CreateWithOwner(ctx context.Context, ws *models.Workspace, ownerID uuid.UUID, sub *models.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
	FindBySlug(ctx context.Context, slug string) (*models.Workspace, error)
	Update(ctx context.Context, ws *models.Workspace) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type MemberRepository interface {
	FindMember(ctx context.Context, workspaceID, userID uuid.UUID) (*models.WorkspaceMember, error)
	ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]models.WorkspaceMember, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.WorkspaceMember, error)
	AddMember(ctx context.Context, m *models.WorkspaceMember) error
	// UpdateRole and RemoveMember return ErrLastOwner instead of leaving the
	// workspace without an owner.
	UpdateRole(ctx context.Context, workspaceID, userID uuid.UUID, role models.Role) error
	RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error
}

type TeamRepository interface {
	List(ctx context.Context, workspaceID uuid.UUID, activeOnly bool) ([]models.TeamMember, error)
	Find(ctx context.Context, workspaceID, id uuid.UUID) (*models.TeamMember, error)
	Create(ctx context.Context, tm *models.TeamMember) error
	Update(ctx context.Context, tm *models.TeamMember) error
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
	Count(ctx context.Context, workspaceID uuid.UUID) (int64, error)
}

type ServiceRepository interface {
	List(ctx context.Context, workspaceID uuid.UUID, activeOnly bool) ([]models.Service, error)
	Find(ctx context.Context, workspaceID, id uuid.UUID) (*models.Service, error)
	Create(ctx context.Context, s *models.Service) error
	Update(ctx context.Context, s *models.Service) error
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
	Count(ctx context.Context, workspaceID uuid.UUID) (int64, error)

	CreateVariant(ctx context.Context, v *models.ServiceVariant) error
	UpdateVariant(ctx context.Context, v *models.ServiceVariant) error
	DeleteVariant(ctx context.Context, serviceID, variantID uuid.UUID) error
}

// AppointmentFilter narrows List. Zero values mean "any".
type AppointmentFilter struct {
	Status       models.AppointmentStatus
	From         *time.Time
	To           *time.Time
	TeamMemberID *uuid.UUID
}

// Create and Update reject a live appointment that would overlap another one
// of the same team member with ErrSlotTaken. Update writes only when the row
// is unchanged since it was read and returns ErrStale otherwise.
type AppointmentRepository interface {
	Create(ctx context.Context, a *models.Appointment) error
	Find(ctx context.Context, workspaceID, id uuid.UUID) (*models.Appointment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	List(ctx context.Context, workspaceID uuid.UUID, f AppointmentFilter) ([]models.Appointment, error)
	Update(ctx context.Context, a *models.Appointment) error
	// MarkReminderSent stamps a confirmed, not yet reminded appointment and
	// reports whether it did.
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
	// HasOverlap reports a non-cancelled appointment of the team member
	// intersecting [start, end), ignoring excludeID.
	HasOverlap(ctx context.Context, workspaceID, teamMemberID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
	// CountBetween counts non-cancelled appointments starting in [from, to).
	CountBetween(ctx context.Context, workspaceID uuid.UUID, from, to time.Time) (int64, error)
	// ListStartingBetween returns confirmed appointments of all workspaces
	// starting in [from, to), with Service and Workspace loaded.
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
}

type BillingRepository interface {
	ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
	FindPlan(ctx context.Context, code string) (*models.SubscriptionPlan, error)
	SeedPlans(ctx context.Context, plans []models.SubscriptionPlan) error
	FindSubscription(ctx context.Context, workspaceID uuid.UUID) (*models.Subscription, error)
	FindSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error)
	SaveSubscription(ctx context.Context, s *models.Subscription) error
	// RecordWebhookEvent returns ErrDuplicate when the event was seen before.
	RecordWebhookEvent(ctx context.Context, e *models.WebhookEvent) error
	// InTx runs fn against a repository bound to a single transaction.
	InTx(ctx context.Context, fn func(BillingRepository) error) error
}

type InvitationRepository interface {
	CreateInvitation(ctx context.Context, inv *models.WorkspaceInvitation) error
	FindInvitation(ctx context.Context, workspaceID, id uuid.UUID) (*models.WorkspaceInvitation, error)
	FindInvitationByToken(ctx context.Context, token string) (*models.WorkspaceInvitation, error)
	FindPendingInvitation(ctx context.Context, workspaceID uuid.UUID, email string) (*models.WorkspaceInvitation, error)
	ListInvitations(ctx context.Context, workspaceID uuid.UUID) ([]models.WorkspaceInvitation, error)
	UpdateInvitation(ctx context.Context, inv *models.WorkspaceInvitation) error
	// AcceptInvitation saves the invitation and inserts the membership atomically.
	AcceptInvitation(ctx context.Context, inv *models.WorkspaceInvitation, m *models.WorkspaceMember) error

	CreateJoinRequest(ctx context.Context, r *models.WorkspaceJoinRequest) error
	FindJoinRequest(ctx context.Context, workspaceID, id uuid.UUID) (*models.WorkspaceJoinRequest, error)
	FindPendingJoinRequest(ctx context.Context, workspaceID, userID uuid.UUID) (*models.WorkspaceJoinRequest, error)
	ListJoinRequests(ctx context.Context, workspaceID uuid.UUID, status string) ([]models.WorkspaceJoinRequest, error)
	UpdateJoinRequest(ctx context.Context, r *models.WorkspaceJoinRequest) error
	// ApproveJoinRequest saves the request and inserts the membership atomically.
	ApproveJoinRequest(ctx context.Context, r *models.WorkspaceJoinRequest, m *models.WorkspaceMember) error
}

type NotificationLogRepository interface {
	Create(ctx context.Context, l *models.NotificationLog) error
}

// Store bundles the repositories the HTTP layer and jobs depend on.
type Store struct {
	Users         UserRepository
	Workspaces    WorkspaceRepository
	Members       MemberRepository
	Team          TeamRepository
	Services      ServiceRepository
	Appointments  AppointmentRepository
	Billing       BillingRepository
	Invitations   InvitationRepository
	Notifications NotificationLogRepository
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "SQLSTATE 23505"):
		return ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated), strings.Contains(err.Error(), "SQLSTATE 23503"):
		return ErrInUse
	}
	return err
}

// affected turns a zero-row mutation into ErrNotFound.
func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
