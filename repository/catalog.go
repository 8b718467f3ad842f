package repository

import (
	"context"

	"bookingdesk-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type teamRepo struct {
	db *gorm.DB
}

func (r *teamRepo) List(ctx context.Context, workspaceID uuid.UUID, activeOnly bool) ([]models.TeamMember, error) {
	q := r.db.WithContext(ctx).Where("workspace_id = ?", workspaceID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var team []models.TeamMember
	err := q.Order("name").Find(&team).Error
	return team, translate(err)
}

func (r *teamRepo) Find(ctx context.Context, workspaceID, id uuid.UUID) (*models.TeamMember, error) {
	var tm models.TeamMember
	if err := r.db.WithContext(ctx).Where("workspace_id = ? AND id = ?", workspaceID, id).First(&tm).Error; err != nil {
		return nil, translate(err)
	}
	return &tm, nil
}

func (r *teamRepo) Create(ctx context.Context, tm *models.TeamMember) error {
	return translate(r.db.WithContext(ctx).Create(tm).Error)
}

func (r *teamRepo) Update(ctx context.Context, tm *models.TeamMember) error {
	return translate(r.db.WithContext(ctx).Save(tm).Error)
}

func (r *teamRepo) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	return affected(r.db.WithContext(ctx).Where("workspace_id = ? AND id = ?", workspaceID, id).Delete(&models.TeamMember{}))
}

func (r *teamRepo) Count(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.TeamMember{}).Where("workspace_id = ?", workspaceID).Count(&n).Error
	return n, translate(err)
}

type serviceRepo struct {
	db *gorm.DB
}

func (r *serviceRepo) List(ctx context.Context, workspaceID uuid.UUID, activeOnly bool) ([]models.Service, error) {
	q := r.db.WithContext(ctx).Preload("Variants").Where("workspace_id = ?", workspaceID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var services []models.Service
	err := q.Order("name").Find(&services).Error
	return services, translate(err)
}

func (r *serviceRepo) Find(ctx context.Context, workspaceID, id uuid.UUID) (*models.Service, error) {
	var s models.Service
	err := r.db.WithContext(ctx).Preload("Variants").
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *serviceRepo) Create(ctx context.Context, s *models.Service) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *serviceRepo) Update(ctx context.Context, s *models.Service) error {
	return translate(r.db.WithContext(ctx).Omit("Variants").Save(s).Error)
}

func (r *serviceRepo) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	return affected(r.db.WithContext(ctx).Where("workspace_id = ? AND id = ?", workspaceID, id).Delete(&models.Service{}))
}

func (r *serviceRepo) Count(ctx context.Context, workspaceID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Service{}).Where("workspace_id = ?", workspaceID).Count(&n).Error
	return n, translate(err)
}

func (r *serviceRepo) CreateVariant(ctx context.Context, v *models.ServiceVariant) error {
	return translate(r.db.WithContext(ctx).Create(v).Error)
}

func (r *serviceRepo) UpdateVariant(ctx context.Context, v *models.ServiceVariant) error {
	return translate(r.db.WithContext(ctx).Save(v).Error)
}

func (r *serviceRepo) DeleteVariant(ctx context.Context, serviceID, variantID uuid.UUID) error {
	return affected(r.db.WithContext(ctx).
		Where("service_id = ? AND id = ?", serviceID, variantID).
		Delete(&models.ServiceVariant{}))
}
