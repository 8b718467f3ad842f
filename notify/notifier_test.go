package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bookingdesk-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sent struct {
	to, subject, body string
}

type fakeEmail struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeEmail) SendEmail(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{to, subject, body})
	return f.err
}

type fakeSMS struct {
	msgs []sent
	err  error
}

func (f *fakeSMS) SendSMS(_ context.Context, to, body string) error {
	f.msgs = append(f.msgs, sent{to: to, body: body})
	return f.err
}

type fakeLogs struct {
	entries []models.NotificationLog
}

func (f *fakeLogs) Create(_ context.Context, l *models.NotificationLog) error {
	f.entries = append(f.entries, *l)
	return nil
}

func fixtures() (*models.Workspace, *models.Appointment) {
	ws := &models.Workspace{Name: "Studio Nine", Timezone: "UTC", Email: "desk@studio9.test"}
	ws.ID = uuid.New()
	start := time.Date(2026, 6, 1, 14, 30, 0, 0, time.UTC)
	a := &models.Appointment{
		WorkspaceID:   ws.ID,
		CustomerName:  "Lin",
		CustomerEmail: "lin@example.com",
		CustomerPhone: "+15550100",
		StartTime:     start,
		EndTime:       start.Add(time.Hour),
		Status:        models.StatusConfirmed,
		Service:       &models.Service{Name: "Haircut"},
	}
	a.ID = uuid.New()
	return ws, a
}

func TestBookedGoesToBothChannels(t *testing.T) {
	email, sms, logs := &fakeEmail{}, &fakeSMS{}, &fakeLogs{}
	n := New(email, sms, logs, zap.NewNop(), "https://book.test")
	ws, a := fixtures()

	n.AppointmentBooked(context.Background(), ws, a)

	require.Len(t, email.msgs, 1)
	assert.Equal(t, "lin@example.com", email.msgs[0].to)
	assert.Contains(t, email.msgs[0].body, "Haircut")
	assert.Contains(t, email.msgs[0].body, "Mon Jun 1, 2026 at 2:30 PM UTC")
	require.Len(t, sms.msgs, 1)
	assert.Equal(t, "+15550100", sms.msgs[0].to)

	require.Len(t, logs.entries, 2)
	for _, e := range logs.entries {
		assert.Equal(t, KindBooked, e.Kind)
		assert.Equal(t, "sent", e.Status)
		assert.Equal(t, a.ID, *e.AppointmentID)
	}
}

func TestFailuresAreRecordedNotReturned(t *testing.T) {
	email := &fakeEmail{err: errors.New("smtp down")}
	logs := &fakeLogs{}
	n := New(email, nil, logs, zap.NewNop(), "")
	ws, a := fixtures()

	n.AppointmentCancelled(context.Background(), ws, a, "closed for holiday")

	require.Len(t, logs.entries, 1, "sms is not configured so only email is attempted")
	assert.Equal(t, "failed", logs.entries[0].Status)
	assert.Equal(t, "smtp down", logs.entries[0].ErrorMessage)
	assert.Contains(t, logs.entries[0].Message, "closed for holiday")
}

func TestMissingRecipientSkipped(t *testing.T) {
	email, sms, logs := &fakeEmail{}, &fakeSMS{}, &fakeLogs{}
	n := New(email, sms, logs, zap.NewNop(), "")
	ws, a := fixtures()
	a.CustomerEmail = ""
	a.CustomerPhone = ""

	n.Reminder(context.Background(), ws, a)

	assert.Empty(t, email.msgs)
	assert.Empty(t, sms.msgs)
	assert.Empty(t, logs.entries)
}

func TestRescheduleLinks(t *testing.T) {
	email, logs := &fakeEmail{}, &fakeLogs{}
	n := New(email, nil, logs, zap.NewNop(), "https://book.test")
	ws, a := fixtures()

	r, err := a.ProposeReschedule(a.StartTime.Add(24*time.Hour), a.EndTime.Add(24*time.Hour), "", uuid.New(), time.Now())
	require.NoError(t, err)
	n.RescheduleProposed(context.Background(), ws, a, r)

	require.Len(t, email.msgs, 1)
	assert.Contains(t, email.msgs[0].body, "https://book.test/appointments/"+a.ID.String()+"/reschedule?token="+r.Token)

	r.Status = models.RescheduleRejected
	n.RescheduleAnswered(context.Background(), ws, a, r)
	require.Len(t, email.msgs, 2)
	assert.Equal(t, "desk@studio9.test", email.msgs[1].to)
	assert.Contains(t, email.msgs[1].subject, "declined")
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("a@x.test", "b@y.test", "Hello", "Body")
	assert.Contains(t, msg, "From: a@x.test\r\n")
	assert.Contains(t, msg, "Subject: Hello\r\n")
	assert.Contains(t, msg, "\r\n\r\nBody\r\n")
}
