package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"bookingdesk-backend/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestUserRepoFindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &userRepo{db: db}
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE LOWER\(email\) = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password", "is_active"}).
			AddRow(id.String(), "ada@example.com", "Ada", "hash", true))

	u, err := repo.FindByEmail(context.Background(), "Ada@Example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "Ada", u.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoFindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &userRepo{db: db}

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepoUpdateRoleKeepsLastOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &memberRepo{db: db}
	wsID, userID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "workspace_members" WHERE workspace_id = \$1 AND role = \$2 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "user_id", "role"}).
			AddRow(uuid.New().String(), wsID.String(), userID.String(), "owner"))
	mock.ExpectRollback()

	err := repo.UpdateRole(context.Background(), wsID, userID, models.RoleStaff)
	assert.ErrorIs(t, err, ErrLastOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepoRemoveMemberWithSecondOwner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &memberRepo{db: db}
	wsID, userID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "workspace_members" WHERE workspace_id = \$1 AND role = \$2 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "user_id", "role"}).
			AddRow(uuid.New().String(), wsID.String(), userID.String(), "owner").
			AddRow(uuid.New().String(), wsID.String(), uuid.New().String(), "owner"))
	mock.ExpectExec(`DELETE FROM "workspace_members" WHERE workspace_id = \$1 AND user_id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.RemoveMember(context.Background(), wsID, userID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepoFindMemberSkipsDeletedWorkspace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &memberRepo{db: db}

	mock.ExpectQuery(`SELECT "workspace_members".* FROM "workspace_members" JOIN workspaces ON workspaces.id = workspace_members.workspace_id AND workspaces.deleted_at IS NULL WHERE workspace_members.workspace_id = \$1 AND workspace_members.user_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindMember(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepoHasOverlap(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &appointmentRepo{db: db}
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "appointments" WHERE .*team_member_id = .*start_time < .*end_time > .*id <> `).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exclude := uuid.New()
	overlap, err := repo.HasOverlap(context.Background(), uuid.New(), uuid.New(), start, start.Add(time.Hour), &exclude)
	require.NoError(t, err)
	assert.True(t, overlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepoCreateLocksTeamMember(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &appointmentRepo{db: db}
	wsID, tmID := uuid.New(), uuid.New()
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "team_members" WHERE workspace_id = \$1 AND id = \$2 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "name"}).AddRow(tmID.String(), wsID.String(), "Sam"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "appointments" WHERE .*team_member_id = .*start_time < .*end_time > `).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Appointment{
		WorkspaceID: wsID, TeamMemberID: &tmID, ServiceID: uuid.New(), CustomerName: "Lin",
		StartTime: start, EndTime: start.Add(time.Hour), Status: models.StatusPending,
	})
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepoUpdateDoesNotResurrect(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &appointmentRepo{db: db}
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "appointments" SET .* WHERE \(workspace_id = \$\d+ AND updated_at = \$\d+\) AND .*"id" = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "appointments" WHERE workspace_id = \$1 AND id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	a := &models.Appointment{
		Base:        models.Base{ID: uuid.New(), UpdatedAt: start},
		WorkspaceID: uuid.New(), ServiceID: uuid.New(), CustomerName: "Lin",
		StartTime: start, EndTime: start.Add(time.Hour), Status: models.StatusCancelled,
	}
	assert.ErrorIs(t, repo.Update(context.Background(), a), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepoMarkReminderSentIsTargeted(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &appointmentRepo{db: db}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "appointments" SET "metadata"=jsonb_set\(COALESCE\(metadata, '\{\}'::jsonb\), '\{reminderSentAt\}', .*WHERE .*status = .*metadata->>'reminderSentAt' IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	claimed, err := repo.MarkReminderSent(context.Background(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.False(t, claimed, "cancelled or already reminded rows are left alone")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepoCountBetweenError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &appointmentRepo{db: db}

	mock.ExpectQuery(`SELECT count\(\*\) FROM "appointments"`).WillReturnError(errors.New("connection reset"))

	_, err := repo.CountBetween(context.Background(), uuid.New(), time.Now(), time.Now().Add(time.Hour))
	assert.EqualError(t, err, "connection reset")
}

func TestBillingRepoFindPlan(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &billingRepo{db: db}

	mock.ExpectQuery(`SELECT \* FROM "subscription_plans" WHERE code = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"code", "name", "price_cents", "max_team_members", "max_services", "max_monthly_appointments"}).
			AddRow("starter", "Starter", 1900, 5, 25, 500))

	p, err := repo.FindPlan(context.Background(), models.PlanStarter)
	require.NoError(t, err)
	assert.Equal(t, 5, p.MaxTeamMembers)
	assert.EqualValues(t, 1900, p.PriceCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamRepoDeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &teamRepo{db: db}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "team_members" WHERE workspace_id = \$1 AND id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey), ErrDuplicate)
	assert.ErrorIs(t, translate(fmt.Errorf("insert: ERROR: duplicate key value (SQLSTATE 23505)")), ErrDuplicate)
	assert.ErrorIs(t, translate(gorm.ErrForeignKeyViolated), ErrInUse)

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}
