package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAppointment(status AppointmentStatus) *Appointment {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return &Appointment{
		CustomerName: "Ada",
		StartTime:    start,
		EndTime:      start.Add(45 * time.Minute),
		Status:       status,
	}
}

func TestConfirm(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	a := newAppointment(StatusPending)
	require.NoError(t, a.Confirm(now))
	assert.Equal(t, StatusConfirmed, a.Status)
	m, err := a.Meta()
	require.NoError(t, err)
	require.NotNil(t, m.ConfirmedAt)
	assert.True(t, m.ConfirmedAt.Equal(now))

	assert.ErrorIs(t, a.Confirm(now), ErrInvalidTransition)
	assert.ErrorIs(t, newAppointment(StatusCancelled).Confirm(now), ErrInvalidTransition)
}

func TestCancel(t *testing.T) {
	now := time.Now().UTC()
	by := uuid.New()

	a := newAppointment(StatusConfirmed)
	require.NoError(t, a.Cancel("sick", &by, now))
	assert.Equal(t, StatusCancelled, a.Status)

	m, err := a.Meta()
	require.NoError(t, err)
	require.NotNil(t, m.Cancellation)
	assert.Equal(t, "sick", m.Cancellation.Reason)
	assert.Equal(t, by, *m.Cancellation.CancelledBy)

	assert.ErrorIs(t, a.Cancel("again", nil, now), ErrInvalidTransition)
}

func TestRescheduleHappyPath(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	a := newAppointment(StatusConfirmed)
	origStart := a.StartTime
	newStart := origStart.Add(24 * time.Hour)
	newEnd := newStart.Add(45 * time.Minute)

	r, err := a.ProposeReschedule(newStart, newEnd, "staff out", uuid.New(), now)
	require.NoError(t, err)
	assert.Equal(t, ReschedulePending, r.Status)
	assert.NotEmpty(t, r.Token)
	assert.True(t, r.PreviousStart.Equal(origStart))

	// Times do not move until the reschedule is completed.
	assert.True(t, a.StartTime.Equal(origStart))

	require.NoError(t, a.ConfirmReschedule(r.Token, now.Add(time.Hour)))
	m, err := a.Meta()
	require.NoError(t, err)
	assert.Equal(t, RescheduleCustomerConfirmed, m.Reschedule.Status)

	require.NoError(t, a.CompleteReschedule(now.Add(2*time.Hour)))
	assert.True(t, a.StartTime.Equal(newStart))
	assert.True(t, a.EndTime.Equal(newEnd))
	assert.Equal(t, StatusConfirmed, a.Status)

	m, err = a.Meta()
	require.NoError(t, err)
	assert.Equal(t, RescheduleCompleted, m.Reschedule.Status)
	require.NotNil(t, m.Reschedule.CompletedAt)
}

func TestRescheduleRejected(t *testing.T) {
	now := time.Now().UTC()
	a := newAppointment(StatusPending)
	start := a.StartTime.Add(2 * time.Hour)

	r, err := a.ProposeReschedule(start, start.Add(time.Hour), "", uuid.New(), now)
	require.NoError(t, err)

	assert.ErrorIs(t, a.RejectReschedule("wrong", now), ErrRescheduleToken)
	require.NoError(t, a.RejectReschedule(r.Token, now))

	// Answered already; neither answer may be given twice.
	assert.ErrorIs(t, a.ConfirmReschedule(r.Token, now), ErrInvalidTransition)
	assert.ErrorIs(t, a.CompleteReschedule(now), ErrInvalidTransition)

	// A rejected reschedule does not block a new proposal.
	_, err = a.ProposeReschedule(start, start.Add(time.Hour), "", uuid.New(), now)
	assert.NoError(t, err)
}

func TestRescheduleTokenMustMatchExactly(t *testing.T) {
	now := time.Now().UTC()
	a := newAppointment(StatusConfirmed)
	start := a.StartTime.Add(2 * time.Hour)
	r, err := a.ProposeReschedule(start, start.Add(time.Hour), "", uuid.New(), now)
	require.NoError(t, err)

	flipped := []byte(r.Token)
	flipped[len(flipped)-1] ^= 1
	for _, tok := range []string{"", string(flipped), r.Token[:len(r.Token)-1], r.Token + "0"} {
		assert.ErrorIs(t, a.ConfirmReschedule(tok, now), ErrRescheduleToken, "token %q", tok)
	}
	m, err := a.Meta()
	require.NoError(t, err)
	assert.Equal(t, ReschedulePending, m.Reschedule.Status)
	require.NoError(t, a.ConfirmReschedule(r.Token, now))
}

func TestProposeRescheduleGuards(t *testing.T) {
	now := time.Now().UTC()
	start := now.Add(48 * time.Hour)

	_, err := newAppointment(StatusCancelled).ProposeReschedule(start, start.Add(time.Hour), "", uuid.New(), now)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = newAppointment(StatusConfirmed).ProposeReschedule(start, start, "", uuid.New(), now)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	a := newAppointment(StatusConfirmed)
	_, err = a.ProposeReschedule(start, start.Add(time.Hour), "", uuid.New(), now)
	require.NoError(t, err)
	_, err = a.ProposeReschedule(start, start.Add(time.Hour), "", uuid.New(), now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelClosesOpenReschedule(t *testing.T) {
	now := time.Now().UTC()
	a := newAppointment(StatusConfirmed)
	start := a.StartTime.Add(time.Hour)
	_, err := a.ProposeReschedule(start, start.Add(time.Hour), "", uuid.New(), now)
	require.NoError(t, err)

	require.NoError(t, a.Cancel("", nil, now))
	m, err := a.Meta()
	require.NoError(t, err)
	assert.Equal(t, RescheduleRejected, m.Reschedule.Status)
}

func TestOverlaps(t *testing.T) {
	a := newAppointment(StatusConfirmed)
	assert.True(t, a.Overlaps(a.StartTime.Add(10*time.Minute), a.EndTime.Add(time.Hour)))
	assert.False(t, a.Overlaps(a.EndTime, a.EndTime.Add(time.Hour)))
	assert.False(t, a.Overlaps(a.StartTime.Add(-time.Hour), a.StartTime))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "studio-nine", Slugify("  Studio Nine! "))
	assert.Equal(t, "barber-co-42", Slugify("Barber & Co. 42"))
}
