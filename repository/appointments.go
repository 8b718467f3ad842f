package repository

import (
	"context"
	"time"

	"bookingdesk-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type appointmentRepo struct {
	db *gorm.DB
}

func (r *appointmentRepo) Create(ctx context.Context, a *models.Appointment) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := claimSlot(ctx, tx, a); err != nil {
			return err
		}
		return tx.Omit("Service", "TeamMember", "Workspace").Create(a).Error
	}))
}

// claimSlot locks the team member row so bookings for one member are
// serialized, then rejects an overlap with any other live appointment.
func claimSlot(ctx context.Context, tx *gorm.DB, a *models.Appointment) error {
	if a.TeamMemberID == nil || a.Status == models.StatusCancelled {
		return nil
	}
	var tm models.TeamMember
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("workspace_id = ? AND id = ?", a.WorkspaceID, *a.TeamMemberID).
		First(&tm).Error
	if err != nil {
		return err
	}
	overlap, err := (&appointmentRepo{db: tx}).HasOverlap(ctx, a.WorkspaceID, tm.ID, a.StartTime, a.EndTime, &a.ID)
	if err != nil {
		return err
	}
	if overlap {
		return ErrSlotTaken
	}
	return nil
}

func (r *appointmentRepo) Find(ctx context.Context, workspaceID, id uuid.UUID) (*models.Appointment, error) {
	var a models.Appointment
	err := r.db.WithContext(ctx).Preload("Service").Preload("TeamMember").
		Where("workspace_id = ? AND id = ?", workspaceID, id).
		First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *appointmentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	var a models.Appointment
	err := r.db.WithContext(ctx).Preload("Service").Preload("Workspace").
		Where("id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *appointmentRepo) List(ctx context.Context, workspaceID uuid.UUID, f AppointmentFilter) ([]models.Appointment, error) {
	q := r.db.WithContext(ctx).Preload("Service.Variants").Preload("TeamMember").
		Where("workspace_id = ?", workspaceID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("start_time >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("start_time < ?", *f.To)
	}
	if f.TeamMemberID != nil {
		q = q.Where("team_member_id = ?", *f.TeamMemberID)
	}
	var appts []models.Appointment
	err := q.Order("start_time").Find(&appts).Error
	return appts, translate(err)
}

func (r *appointmentRepo) Update(ctx context.Context, a *models.Appointment) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := claimSlot(ctx, tx, a); err != nil {
			return err
		}
		res := tx.Model(a).
			Where("workspace_id = ? AND updated_at = ?", a.WorkspaceID, a.UpdatedAt).
			Select("*").
			Omit("id", "workspace_id", "created_at", "Service", "TeamMember", "Workspace").
			Updates(a)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		var n int64
		if err := tx.Model(&models.Appointment{}).Where("workspace_id = ? AND id = ?", a.WorkspaceID, a.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrStale
	}))
}

func (r *appointmentRepo) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, models.StatusConfirmed).
		Where("metadata->>'reminderSentAt' IS NULL").
		Update("metadata", gorm.Expr("jsonb_set(COALESCE(metadata, '{}'::jsonb), '{reminderSentAt}', to_jsonb(?::text))", at.UTC().Format(time.RFC3339Nano)))
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *appointmentRepo) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	return affected(r.db.WithContext(ctx).Where("workspace_id = ? AND id = ?", workspaceID, id).Delete(&models.Appointment{}))
}

func (r *appointmentRepo) HasOverlap(ctx context.Context, workspaceID, teamMemberID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("workspace_id = ? AND team_member_id = ? AND status <> ?", workspaceID, teamMemberID, models.StatusCancelled).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

func (r *appointmentRepo) CountBetween(ctx context.Context, workspaceID uuid.UUID, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("workspace_id = ? AND status <> ?", workspaceID, models.StatusCancelled).
		Where("start_time >= ? AND start_time < ?", from, to).
		Count(&n).Error
	return n, translate(err)
}

func (r *appointmentRepo) ListStartingBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := r.db.WithContext(ctx).Preload("Service").Preload("Workspace").
		Where("status = ?", models.StatusConfirmed).
		Where("start_time >= ? AND start_time < ?", from, to).
		Order("start_time").
		Find(&appts).Error
	return appts, translate(err)
}
