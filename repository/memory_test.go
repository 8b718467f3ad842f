package repository

import (
	"context"
	"testing"
	"time"

	"bookingdesk-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWorkspace(t *testing.T, s *Store, slug string) (*models.Workspace, *models.User) {
	t.Helper()
	ctx := context.Background()
	owner := &models.User{Email: slug + "@example.com", Name: "Owner", Password: "x"}
	require.NoError(t, s.Users.Create(ctx, owner))
	ws := &models.Workspace{Name: slug, Slug: slug}
	sub := &models.Subscription{PlanCode: models.PlanFree, Status: models.SubscriptionActive}
	require.NoError(t, s.Workspaces.CreateWithOwner(ctx, ws, owner.ID, sub))
	return ws, owner
}

func TestMemoryUsersUniqueEmail(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Users.Create(ctx, &models.User{Email: "ada@example.com", Name: "Ada"}))
	err := s.Users.Create(ctx, &models.User{Email: "ADA@example.com", Name: "Other"})
	assert.ErrorIs(t, err, ErrDuplicate)

	u, err := s.Users.FindByEmail(ctx, "Ada@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
}

func TestMemoryCreateWithOwner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	ws, owner := seedWorkspace(t, s, "studio")

	m, err := s.Members.FindMember(ctx, ws.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, m.Role)

	sub, err := s.Billing.FindSubscription(ctx, ws.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, sub.PlanCode)

	other := &models.Workspace{Name: "Studio", Slug: "studio"}
	assert.ErrorIs(t, s.Workspaces.CreateWithOwner(ctx, other, owner.ID, nil), ErrDuplicate)
}

func TestMemorySoftDeleteHidesWorkspace(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	ws, owner := seedWorkspace(t, s, "gone")

	require.NoError(t, s.Workspaces.Delete(ctx, ws.ID))

	_, err := s.Workspaces.FindByID(ctx, ws.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Workspaces.FindBySlug(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)

	memberships, err := s.Members.ListForUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, memberships)

	_, err = s.Members.FindMember(ctx, ws.ID, owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Workspaces.Delete(ctx, ws.ID), ErrNotFound)
}

func TestMemoryAppointmentsScopedAndOverlap(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	ws, _ := seedWorkspace(t, s, "a")
	other, _ := seedWorkspace(t, s, "b")

	svc := &models.Service{WorkspaceID: ws.ID, Name: "Cut", DurationMinutes: 30}
	require.NoError(t, s.Services.Create(ctx, svc))
	tm := &models.TeamMember{WorkspaceID: ws.ID, Name: "Sam", IsActive: true}
	require.NoError(t, s.Team.Create(ctx, tm))

	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	a := &models.Appointment{
		WorkspaceID: ws.ID, ServiceID: svc.ID, TeamMemberID: &tm.ID,
		CustomerName: "Lin", StartTime: start, EndTime: start.Add(30 * time.Minute),
		Status: models.StatusConfirmed,
	}
	require.NoError(t, s.Appointments.Create(ctx, a))

	_, err := s.Appointments.Find(ctx, other.ID, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.Appointments.Find(ctx, ws.ID, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Service)
	require.NotNil(t, got.TeamMember)
	assert.Equal(t, "Sam", got.TeamMember.Name)

	overlap, err := s.Appointments.HasOverlap(ctx, ws.ID, tm.ID, start.Add(15*time.Minute), start.Add(45*time.Minute), nil)
	require.NoError(t, err)
	assert.True(t, overlap)

	overlap, err = s.Appointments.HasOverlap(ctx, ws.ID, tm.ID, start.Add(30*time.Minute), start.Add(time.Hour), nil)
	require.NoError(t, err)
	assert.False(t, overlap, "back to back slots do not overlap")

	overlap, err = s.Appointments.HasOverlap(ctx, ws.ID, tm.ID, start, start.Add(30*time.Minute), &a.ID)
	require.NoError(t, err)
	assert.False(t, overlap)

	assert.ErrorIs(t, s.Team.Delete(ctx, ws.ID, tm.ID), ErrInUse)
	assert.ErrorIs(t, s.Services.Delete(ctx, ws.ID, svc.ID), ErrInUse)
}

func TestMemoryAppointmentListFilters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	ws, _ := seedWorkspace(t, s, "list")
	svc := &models.Service{WorkspaceID: ws.ID, Name: "Cut", DurationMinutes: 30}
	require.NoError(t, s.Services.Create(ctx, svc))

	base := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	statuses := []models.AppointmentStatus{models.StatusConfirmed, models.StatusPending, models.StatusCancelled}
	for i, st := range statuses {
		start := base.Add(time.Duration(2-i) * time.Hour)
		require.NoError(t, s.Appointments.Create(ctx, &models.Appointment{
			WorkspaceID: ws.ID, ServiceID: svc.ID, CustomerName: "C",
			StartTime: start, EndTime: start.Add(30 * time.Minute), Status: st,
		}))
	}

	all, err := s.Appointments.List(ctx, ws.ID, AppointmentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].StartTime.Before(all[1].StartTime))

	pending, err := s.Appointments.List(ctx, ws.ID, AppointmentFilter{Status: models.StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	from := base.Add(time.Hour)
	later, err := s.Appointments.List(ctx, ws.ID, AppointmentFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, later, 2)

	n, err := s.Appointments.CountBetween(ctx, ws.ID, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	upcoming, err := s.Appointments.ListStartingBetween(ctx, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	require.NotNil(t, upcoming[0].Workspace)
	assert.Equal(t, ws.ID, upcoming[0].Workspace.ID)
}

func TestMemoryServiceVariants(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	ws, _ := seedWorkspace(t, s, "svc")

	svc := &models.Service{WorkspaceID: ws.ID, Name: "Colour", DurationMinutes: 60,
		Variants: []models.ServiceVariant{{Name: "Short", DurationMinutes: 45}}}
	require.NoError(t, s.Services.Create(ctx, svc))
	require.NoError(t, s.Services.CreateVariant(ctx, &models.ServiceVariant{ServiceID: svc.ID, Name: "Long", DurationMinutes: 90}))

	got, err := s.Services.Find(ctx, ws.ID, svc.ID)
	require.NoError(t, err)
	require.Len(t, got.Variants, 2)

	require.NoError(t, s.Services.DeleteVariant(ctx, svc.ID, got.Variants[0].ID))
	assert.ErrorIs(t, s.Services.DeleteVariant(ctx, uuid.New(), got.Variants[1].ID), ErrNotFound)

	got, err = s.Services.Find(ctx, ws.ID, svc.ID)
	require.NoError(t, err)
	assert.Len(t, got.Variants, 1)
}

func TestMemoryWebhookEventsRecordedOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Billing.RecordWebhookEvent(ctx, &models.WebhookEvent{Provider: "stripe", EventID: "evt_1", EventType: "x"}))
	err := s.Billing.RecordWebhookEvent(ctx, &models.WebhookEvent{Provider: "stripe", EventID: "evt_1", EventType: "x"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryAcceptInvitationRejectsExistingMember(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	ws, owner := seedWorkspace(t, s, "inv")

	inv := models.NewInvitation(ws.ID, owner.Email, models.RoleStaff, owner.ID, time.Now())
	require.NoError(t, s.Invitations.CreateInvitation(ctx, inv))

	inv.Status = models.InvitationAccepted
	err := s.Invitations.AcceptInvitation(ctx, inv, &models.WorkspaceMember{WorkspaceID: ws.ID, UserID: owner.ID, Role: models.RoleStaff})
	assert.ErrorIs(t, err, ErrDuplicate)

	stored, err := s.Invitations.FindInvitation(ctx, ws.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationPending, stored.Status)
}

func TestMemoryAppointmentWritesRejectOverlap(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	ws, _ := seedWorkspace(t, s, "slots")
	svc := &models.Service{WorkspaceID: ws.ID, Name: "Cut", DurationMinutes: 60}
	require.NoError(t, s.Services.Create(ctx, svc))
	tm := &models.TeamMember{WorkspaceID: ws.ID, Name: "Sam", IsActive: true}
	require.NoError(t, s.Team.Create(ctx, tm))

	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	book := func(at time.Time) *models.Appointment {
		return &models.Appointment{
			WorkspaceID: ws.ID, ServiceID: svc.ID, TeamMemberID: &tm.ID, CustomerName: "C",
			StartTime: at, EndTime: at.Add(time.Hour), Status: models.StatusPending,
		}
	}
	first := book(start)
	require.NoError(t, s.Appointments.Create(ctx, first))
	assert.ErrorIs(t, s.Appointments.Create(ctx, book(start.Add(30*time.Minute))), ErrSlotTaken)

	second := book(start.Add(2 * time.Hour))
	require.NoError(t, s.Appointments.Create(ctx, second))
	second.StartTime, second.EndTime = start.Add(45*time.Minute), start.Add(105*time.Minute)
	assert.ErrorIs(t, s.Appointments.Update(ctx, second), ErrSlotTaken)

	// a cancelled booking frees the slot and is never itself rejected
	cancelled, err := s.Appointments.Find(ctx, ws.ID, first.ID)
	require.NoError(t, err)
	require.NoError(t, cancelled.Cancel("", nil, time.Now()))
	require.NoError(t, s.Appointments.Update(ctx, cancelled))
	require.NoError(t, s.Appointments.Create(ctx, book(start.Add(30*time.Minute))))
}

func TestMemoryAppointmentUpdateGuards(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	ws, _ := seedWorkspace(t, s, "guards")
	svc := &models.Service{WorkspaceID: ws.ID, Name: "Cut", DurationMinutes: 30}
	require.NoError(t, s.Services.Create(ctx, svc))

	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	a := &models.Appointment{
		WorkspaceID: ws.ID, ServiceID: svc.ID, CustomerName: "C",
		StartTime: start, EndTime: start.Add(30 * time.Minute), Status: models.StatusConfirmed,
	}
	require.NoError(t, s.Appointments.Create(ctx, a))

	reader1, err := s.Appointments.Find(ctx, ws.ID, a.ID)
	require.NoError(t, err)
	reader2, err := s.Appointments.Find(ctx, ws.ID, a.ID)
	require.NoError(t, err)

	require.NoError(t, reader1.Cancel("", nil, time.Now()))
	require.NoError(t, s.Appointments.Update(ctx, reader1))
	reader2.Notes = "late edit"
	assert.ErrorIs(t, s.Appointments.Update(ctx, reader2), ErrStale)

	require.NoError(t, s.Appointments.Delete(ctx, ws.ID, a.ID))
	assert.ErrorIs(t, s.Appointments.Update(ctx, reader1), ErrNotFound)
	_, err = s.Appointments.Find(ctx, ws.ID, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryMarkReminderSent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	ws, _ := seedWorkspace(t, s, "remind")
	svc := &models.Service{WorkspaceID: ws.ID, Name: "Cut", DurationMinutes: 30}
	require.NoError(t, s.Services.Create(ctx, svc))

	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	mk := func(status models.AppointmentStatus) *models.Appointment {
		a := &models.Appointment{
			WorkspaceID: ws.ID, ServiceID: svc.ID, CustomerName: "C",
			StartTime: start, EndTime: start.Add(30 * time.Minute), Status: status,
		}
		require.NoError(t, s.Appointments.Create(ctx, a))
		return a
	}
	confirmed := mk(models.StatusConfirmed)
	cancelled := mk(models.StatusCancelled)

	ok, err := s.Appointments.MarkReminderSent(ctx, confirmed.ID, start)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Appointments.MarkReminderSent(ctx, confirmed.ID, start)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Appointments.MarkReminderSent(ctx, cancelled.ID, start)
	require.NoError(t, err)
	assert.False(t, ok)
	got, err := s.Appointments.Find(ctx, ws.ID, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	ok, err = s.Appointments.MarkReminderSent(ctx, uuid.New(), start)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryMembersKeepLastOwner(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	ws, owner := seedWorkspace(t, s, "owners")

	assert.ErrorIs(t, s.Members.UpdateRole(ctx, ws.ID, owner.ID, models.RoleStaff), ErrLastOwner)
	assert.ErrorIs(t, s.Members.RemoveMember(ctx, ws.ID, owner.ID), ErrLastOwner)
	require.NoError(t, s.Members.UpdateRole(ctx, ws.ID, owner.ID, models.RoleOwner))

	second := &models.User{Email: "second@example.com", Name: "Second"}
	require.NoError(t, s.Users.Create(ctx, second))
	require.NoError(t, s.Members.AddMember(ctx, &models.WorkspaceMember{WorkspaceID: ws.ID, UserID: second.ID, Role: models.RoleOwner}))

	require.NoError(t, s.Members.UpdateRole(ctx, ws.ID, owner.ID, models.RoleStaff))
	assert.ErrorIs(t, s.Members.UpdateRole(ctx, ws.ID, second.ID, models.RoleStaff), ErrLastOwner)
	require.NoError(t, s.Members.RemoveMember(ctx, ws.ID, owner.ID))
	assert.ErrorIs(t, s.Members.RemoveMember(ctx, ws.ID, second.ID), ErrLastOwner)
}
