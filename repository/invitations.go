package repository

import (
	"context"
	"strings"

	"bookingdesk-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type invitationRepo struct {
	db *gorm.DB
}

func (r *invitationRepo) CreateInvitation(ctx context.Context, inv *models.WorkspaceInvitation) error {
	return translate(r.db.WithContext(ctx).Omit("Workspace").Create(inv).Error)
}

func (r *invitationRepo) FindInvitation(ctx context.Context, workspaceID, id uuid.UUID) (*models.WorkspaceInvitation, error) {
	var inv models.WorkspaceInvitation
	if err := r.db.WithContext(ctx).Where("workspace_id = ? AND id = ?", workspaceID, id).First(&inv).Error; err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (r *invitationRepo) FindInvitationByToken(ctx context.Context, token string) (*models.WorkspaceInvitation, error) {
	var inv models.WorkspaceInvitation
	if err := r.db.WithContext(ctx).Preload("Workspace").Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (r *invitationRepo) FindPendingInvitation(ctx context.Context, workspaceID uuid.UUID, email string) (*models.WorkspaceInvitation, error) {
	var inv models.WorkspaceInvitation
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND LOWER(email) = ? AND status = ?", workspaceID, strings.ToLower(email), models.InvitationPending).
		First(&inv).Error
	if err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (r *invitationRepo) ListInvitations(ctx context.Context, workspaceID uuid.UUID) ([]models.WorkspaceInvitation, error) {
	var invs []models.WorkspaceInvitation
	err := r.db.WithContext(ctx).Where("workspace_id = ?", workspaceID).Order("created_at DESC").Find(&invs).Error
	return invs, translate(err)
}

func (r *invitationRepo) UpdateInvitation(ctx context.Context, inv *models.WorkspaceInvitation) error {
	return translate(r.db.WithContext(ctx).Omit("Workspace").Save(inv).Error)
}

func (r *invitationRepo) AcceptInvitation(ctx context.Context, inv *models.WorkspaceInvitation, m *models.WorkspaceMember) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Workspace").Save(inv).Error; err != nil {
			return err
		}
		return tx.Omit("User", "Workspace").Create(m).Error
	}))
}

func (r *invitationRepo) CreateJoinRequest(ctx context.Context, jr *models.WorkspaceJoinRequest) error {
	return translate(r.db.WithContext(ctx).Omit("User").Create(jr).Error)
}

func (r *invitationRepo) FindJoinRequest(ctx context.Context, workspaceID, id uuid.UUID) (*models.WorkspaceJoinRequest, error) {
	var jr models.WorkspaceJoinRequest
	if err := r.db.WithContext(ctx).Where("workspace_id = ? AND id = ?", workspaceID, id).First(&jr).Error; err != nil {
		return nil, translate(err)
	}
	return &jr, nil
}

func (r *invitationRepo) FindPendingJoinRequest(ctx context.Context, workspaceID, userID uuid.UUID) (*models.WorkspaceJoinRequest, error) {
	var jr models.WorkspaceJoinRequest
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ? AND status = ?", workspaceID, userID, models.JoinRequestPending).
		First(&jr).Error
	if err != nil {
		return nil, translate(err)
	}
	return &jr, nil
}

func (r *invitationRepo) ListJoinRequests(ctx context.Context, workspaceID uuid.UUID, status string) ([]models.WorkspaceJoinRequest, error) {
	q := r.db.WithContext(ctx).Preload("User").Where("workspace_id = ?", workspaceID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reqs []models.WorkspaceJoinRequest
	err := q.Order("created_at DESC").Find(&reqs).Error
	return reqs, translate(err)
}

func (r *invitationRepo) UpdateJoinRequest(ctx context.Context, jr *models.WorkspaceJoinRequest) error {
	return translate(r.db.WithContext(ctx).Omit("User").Save(jr).Error)
}

func (r *invitationRepo) ApproveJoinRequest(ctx context.Context, jr *models.WorkspaceJoinRequest, m *models.WorkspaceMember) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("User").Save(jr).Error; err != nil {
			return err
		}
		return tx.Omit("User", "Workspace").Create(m).Error
	}))
}

type notificationRepo struct {
	db *gorm.DB
}

func (r *notificationRepo) Create(ctx context.Context, l *models.NotificationLog) error {
	return translate(r.db.WithContext(ctx).Create(l).Error)
}
