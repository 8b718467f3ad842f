// Package notify delivers customer and staff messages over email and SMS.
// Delivery is best effort: failures are logged and recorded, never returned.
package notify

import (
	"context"
	"fmt"
	"time"

	"bookingdesk-backend/metrics"
	"bookingdesk-backend/models"
	"bookingdesk-backend/repository"
	"bookingdesk-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Message kinds recorded in the notification log.
const (
	KindBooked             = "appointment_booked"
	KindConfirmed          = "appointment_confirmed"
	KindCancelled          = "appointment_cancelled"
	KindRescheduleProposed = "reschedule_proposed"
	KindRescheduleAnswered = "reschedule_answered"
	KindReminder           = "appointment_reminder"
	KindInvitation         = "workspace_invitation"
)

const (
	statusSent   = "sent"
	statusFailed = "failed"
)

const timeLayout = "Mon Jan 2, 2006 at 3:04 PM MST"

type Notifier struct {
	email   EmailSender
	sms     SMSSender
	logs    repository.NotificationLogRepository
	logger  *zap.Logger
	baseURL string
	now     func() time.Time
}

// New builds a Notifier. A nil sender disables its channel.
func New(email EmailSender, sms SMSSender, logs repository.NotificationLogRepository, logger *zap.Logger, baseURL string) *Notifier {
	return &Notifier{
		email:   email,
		sms:     sms,
		logs:    logs,
		logger:  logger,
		baseURL: baseURL,
		now:     time.Now,
	}
}

type message struct {
	workspaceID   uuid.UUID
	appointmentID *uuid.UUID
	kind          string
	email         string
	phone         string
	subject       string
	body          string
}

func (n *Notifier) AppointmentBooked(ctx context.Context, ws *models.Workspace, a *models.Appointment) {
	verb := "is confirmed"
	if a.Status == models.StatusPending {
		verb = "was received and is awaiting confirmation"
	}
	n.toCustomer(ctx, KindBooked, ws, a,
		fmt.Sprintf("Your booking at %s", ws.Name),
		fmt.Sprintf("Hi %s, your %s appointment at %s on %s %s.",
			a.CustomerName, serviceName(a), ws.Name, n.when(ws, a.StartTime), verb))
}

func (n *Notifier) AppointmentConfirmed(ctx context.Context, ws *models.Workspace, a *models.Appointment) {
	n.toCustomer(ctx, KindConfirmed, ws, a,
		fmt.Sprintf("Appointment confirmed at %s", ws.Name),
		fmt.Sprintf("Hi %s, %s confirmed your %s appointment on %s.",
			a.CustomerName, ws.Name, serviceName(a), n.when(ws, a.StartTime)))
}

func (n *Notifier) AppointmentCancelled(ctx context.Context, ws *models.Workspace, a *models.Appointment, reason string) {
	body := fmt.Sprintf("Hi %s, your appointment at %s on %s has been cancelled.",
		a.CustomerName, ws.Name, n.when(ws, a.StartTime))
	if reason != "" {
		body += " Reason: " + reason
	}
	n.toCustomer(ctx, KindCancelled, ws, a, fmt.Sprintf("Appointment cancelled at %s", ws.Name), body)
}

func (n *Notifier) RescheduleProposed(ctx context.Context, ws *models.Workspace, a *models.Appointment, r *models.Reschedule) {
	link := fmt.Sprintf("%s/appointments/%s/reschedule?token=%s", n.baseURL, a.ID, r.Token)
	body := fmt.Sprintf("Hi %s, %s would like to move your appointment from %s to %s.",
		a.CustomerName, ws.Name, n.when(ws, r.PreviousStart), n.when(ws, r.ProposedStart))
	if r.Reason != "" {
		body += " Reason: " + r.Reason + "."
	}
	body += " Accept or decline here: " + link
	n.toCustomer(ctx, KindRescheduleProposed, ws, a, fmt.Sprintf("New time proposed by %s", ws.Name), body)
}

// RescheduleAnswered tells the workspace how the customer responded.
func (n *Notifier) RescheduleAnswered(ctx context.Context, ws *models.Workspace, a *models.Appointment, r *models.Reschedule) {
	answer := "accepted"
	if r.Status == models.RescheduleRejected {
		answer = "declined"
	}
	n.deliver(ctx, message{
		workspaceID:   ws.ID,
		appointmentID: &a.ID,
		kind:          KindRescheduleAnswered,
		email:         ws.Email,
		phone:         ws.Phone,
		subject:       fmt.Sprintf("%s %s the new time", a.CustomerName, answer),
		body: fmt.Sprintf("%s %s the proposed move of their %s appointment to %s.",
			a.CustomerName, answer, serviceName(a), n.when(ws, r.ProposedStart)),
	})
}

func (n *Notifier) Reminder(ctx context.Context, ws *models.Workspace, a *models.Appointment) {
	n.toCustomer(ctx, KindReminder, ws, a,
		fmt.Sprintf("Reminder: upcoming appointment at %s", ws.Name),
		fmt.Sprintf("Hi %s, this is a reminder of your %s appointment at %s on %s.",
			a.CustomerName, serviceName(a), ws.Name, n.when(ws, a.StartTime)))
}

func (n *Notifier) Invitation(ctx context.Context, ws *models.Workspace, inv *models.WorkspaceInvitation) {
	link := fmt.Sprintf("%s/invitations/accept?token=%s", n.baseURL, inv.Token)
	n.deliver(ctx, message{
		workspaceID: ws.ID,
		kind:        KindInvitation,
		email:       inv.Email,
		subject:     fmt.Sprintf("You are invited to join %s", ws.Name),
		body: fmt.Sprintf("You have been invited to join %s as %s. The invitation expires on %s.\n\n%s",
			ws.Name, inv.Role, inv.ExpiresAt.UTC().Format(timeLayout), link),
	})
}

func (n *Notifier) toCustomer(ctx context.Context, kind string, ws *models.Workspace, a *models.Appointment, subject, body string) {
	n.deliver(ctx, message{
		workspaceID:   ws.ID,
		appointmentID: &a.ID,
		kind:          kind,
		email:         a.CustomerEmail,
		phone:         a.CustomerPhone,
		subject:       subject,
		body:          body,
	})
}

func (n *Notifier) deliver(ctx context.Context, m message) {
	if m.email != "" && n.email != nil {
		err := n.email.SendEmail(ctx, m.email, m.subject, m.body)
		n.record(ctx, m, models.ChannelEmail, m.email, err)
	}
	if m.phone != "" && n.sms != nil {
		err := n.sms.SendSMS(ctx, m.phone, m.body)
		n.record(ctx, m, models.ChannelSMS, m.phone, err)
	}
}

func (n *Notifier) record(ctx context.Context, m message, channel, recipient string, sendErr error) {
	entry := &models.NotificationLog{
		WorkspaceID:   m.workspaceID,
		AppointmentID: m.appointmentID,
		Kind:          m.kind,
		Channel:       channel,
		Recipient:     recipient,
		Message:       m.body,
		Status:        statusSent,
		SentAt:        n.now().UTC(),
	}
	if sendErr != nil {
		entry.Status = statusFailed
		entry.ErrorMessage = sendErr.Error()
		n.logger.Warn("notification failed",
			zap.String("kind", m.kind),
			zap.String("channel", channel),
			zap.String("workspace_id", m.workspaceID.String()),
			zap.Error(sendErr))
	}
	metrics.RecordNotification(channel, entry.Status)

	if n.logs == nil {
		return
	}
	if err := n.logs.Create(ctx, entry); err != nil {
		n.logger.Error("failed to record notification", zap.String("kind", m.kind), zap.Error(err))
	}
}

func (n *Notifier) when(ws *models.Workspace, t time.Time) string {
	return utils.InZone(t, ws.Timezone).Format(timeLayout)
}

func serviceName(a *models.Appointment) string {
	if a.Service != nil && a.Service.Name != "" {
		return a.Service.Name
	}
	return "upcoming"
}
