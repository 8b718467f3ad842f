package repository

import (
	"context"

	"bookingdesk-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type workspaceRepo struct {
	db *gorm.DB
}

func (r *workspaceRepo) CreateWithOwner(ctx context.Context, ws *models.Workspace, ownerID uuid.UUID, sub *models.Subscription) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ws).Error; err != nil {
			return err
		}
		owner := &models.WorkspaceMember{WorkspaceID: ws.ID, UserID: ownerID, Role: models.RoleOwner}
		if err := tx.Create(owner).Error; err != nil {
			return err
		}
		if sub != nil {
			sub.WorkspaceID = ws.ID
			if err := tx.Create(sub).Error; err != nil {
				return err
			}
		}
		return nil
	}))
}

func (r *workspaceRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	var ws models.Workspace
	if err := r.db.WithContext(ctx).First(&ws, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &ws, nil
}

func (r *workspaceRepo) FindBySlug(ctx context.Context, slug string) (*models.Workspace, error) {
	var ws models.Workspace
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&ws).Error; err != nil {
		return nil, translate(err)
	}
	return &ws, nil
}

func (r *workspaceRepo) Update(ctx context.Context, ws *models.Workspace) error {
	return translate(r.db.WithContext(ctx).Save(ws).Error)
}

func (r *workspaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return affected(r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Workspace{}))
}

type memberRepo struct {
	db *gorm.DB
}

func (r *memberRepo) FindMember(ctx context.Context, workspaceID, userID uuid.UUID) (*models.WorkspaceMember, error) {
	var m models.WorkspaceMember
	err := r.db.WithContext(ctx).
		Joins("JOIN workspaces ON workspaces.id = workspace_members.workspace_id AND workspaces.deleted_at IS NULL").
		Where("workspace_members.workspace_id = ? AND workspace_members.user_id = ?", workspaceID, userID).
		First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *memberRepo) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]models.WorkspaceMember, error) {
	var members []models.WorkspaceMember
	err := r.db.WithContext(ctx).Preload("User").
		Where("workspace_id = ?", workspaceID).
		Order("created_at").
		Find(&members).Error
	return members, translate(err)
}

func (r *memberRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.WorkspaceMember, error) {
	var members []models.WorkspaceMember
	err := r.db.WithContext(ctx).Preload("Workspace").
		Joins("JOIN workspaces ON workspaces.id = workspace_members.workspace_id AND workspaces.deleted_at IS NULL").
		Where("workspace_members.user_id = ?", userID).
		Order("workspace_members.created_at").
		Find(&members).Error
	return members, translate(err)
}

func (r *memberRepo) AddMember(ctx context.Context, m *models.WorkspaceMember) error {
	return translate(r.db.WithContext(ctx).Create(m).Error)
}

func (r *memberRepo) UpdateRole(ctx context.Context, workspaceID, userID uuid.UUID, role models.Role) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if role != models.RoleOwner {
			if err := keepOwner(tx, workspaceID, userID); err != nil {
				return err
			}
		}
		return affected(tx.Model(&models.WorkspaceMember{}).
			Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
			Update("role", role))
	}))
}

func (r *memberRepo) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := keepOwner(tx, workspaceID, userID); err != nil {
			return err
		}
		return affected(tx.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
			Delete(&models.WorkspaceMember{}))
	}))
}

// keepOwner locks the workspace's owner rows and returns ErrLastOwner when
// userID holds the only one.
func keepOwner(tx *gorm.DB, workspaceID, userID uuid.UUID) error {
	var owners []models.WorkspaceMember
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("workspace_id = ? AND role = ?", workspaceID, models.RoleOwner).
		Find(&owners).Error
	if err != nil {
		return err
	}
	if len(owners) == 1 && owners[0].UserID == userID {
		return ErrLastOwner
	}
	return nil
}
