package models

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

const (
	SourceStaff  = "staff"
	SourcePublic = "public"
)

var (
	ErrInvalidTransition = errors.New("transition not allowed in current state")
	ErrRescheduleToken   = errors.New("reschedule token mismatch")
	ErrInvalidTimeRange  = errors.New("end time must be after start time")
)

type Appointment struct {
	Base
	WorkspaceID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_appointments_workspace_start,priority:1" json:"workspaceId"`
	ServiceID     uuid.UUID         `gorm:"type:uuid;not null;index" json:"serviceId"`
	VariantID     *uuid.UUID        `gorm:"type:uuid" json:"variantId,omitempty"`
	TeamMemberID  *uuid.UUID        `gorm:"type:uuid;index" json:"teamMemberId,omitempty"`
	CustomerName  string            `gorm:"not null" json:"customerName"`
	CustomerEmail string            `json:"customerEmail,omitempty"`
	CustomerPhone string            `json:"customerPhone,omitempty"`
	StartTime     time.Time         `gorm:"not null;index:idx_appointments_workspace_start,priority:2" json:"startTime"`
	EndTime       time.Time         `gorm:"not null" json:"endTime"`
	Status        AppointmentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Source        string            `gorm:"type:varchar(20);default:'staff'" json:"source"`
	Notes         string            `gorm:"type:text" json:"notes,omitempty"`
	Metadata      datatypes.JSON    `gorm:"type:jsonb" json:"metadata,omitempty"`

	Service    *Service    `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	TeamMember *TeamMember `gorm:"foreignKey:TeamMemberID" json:"teamMember,omitempty"`
	Workspace  *Workspace  `gorm:"foreignKey:WorkspaceID" json:"-"`
}

// AppointmentMetadata is the document stored in the metadata column.
type AppointmentMetadata struct {
	Reschedule     *Reschedule   `json:"reschedule,omitempty"`
	Cancellation   *Cancellation `json:"cancellation,omitempty"`
	ConfirmedAt    *time.Time    `json:"confirmedAt,omitempty"`
	ReminderSentAt *time.Time    `json:"reminderSentAt,omitempty"`
}

type Cancellation struct {
	Reason      string     `json:"reason,omitempty"`
	CancelledBy *uuid.UUID `json:"cancelledBy,omitempty"`
	CancelledAt time.Time  `json:"cancelledAt"`
}

type RescheduleStatus string

const (
	ReschedulePending           RescheduleStatus = "pending"
	RescheduleCustomerConfirmed RescheduleStatus = "customer_confirmed"
	RescheduleCompleted         RescheduleStatus = "completed"
	RescheduleRejected          RescheduleStatus = "rejected"
)

// Reschedule is a proposed move of an appointment, answered by the customer.
type Reschedule struct {
	Status        RescheduleStatus `json:"status"`
	Token         string           `json:"token"`
	ProposedStart time.Time        `json:"proposedStart"`
	ProposedEnd   time.Time        `json:"proposedEnd"`
	PreviousStart time.Time        `json:"previousStart"`
	PreviousEnd   time.Time        `json:"previousEnd"`
	Reason        string           `json:"reason,omitempty"`
	RequestedBy   uuid.UUID        `json:"requestedBy"`
	RequestedAt   time.Time        `json:"requestedAt"`
	RespondedAt   *time.Time       `json:"respondedAt,omitempty"`
	CompletedAt   *time.Time       `json:"completedAt,omitempty"`
}

// Open reports whether the reschedule still awaits an answer or completion.
func (r *Reschedule) Open() bool {
	return r != nil && (r.Status == ReschedulePending || r.Status == RescheduleCustomerConfirmed)
}

// Meta decodes the metadata column. An empty column yields a zero document.
func (a *Appointment) Meta() (AppointmentMetadata, error) {
	var m AppointmentMetadata
	if len(a.Metadata) == 0 || string(a.Metadata) == "null" {
		return m, nil
	}
	err := json.Unmarshal(a.Metadata, &m)
	return m, err
}

// SetMeta replaces the metadata column.
func (a *Appointment) SetMeta(m AppointmentMetadata) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	a.Metadata = datatypes.JSON(raw)
	return nil
}

// Overlaps uses half-open intervals.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && start.Before(a.EndTime)
}

// Confirm moves a pending appointment to confirmed.
func (a *Appointment) Confirm(now time.Time) error {
	if a.Status != StatusPending {
		return ErrInvalidTransition
	}
	m, err := a.Meta()
	if err != nil {
		return err
	}
	a.Status = StatusConfirmed
	m.ConfirmedAt = &now
	return a.SetMeta(m)
}

// Cancel moves a pending or confirmed appointment to cancelled. An open
// reschedule is rejected along with it.
func (a *Appointment) Cancel(reason string, by *uuid.UUID, now time.Time) error {
	if a.Status == StatusCancelled {
		return ErrInvalidTransition
	}
	m, err := a.Meta()
	if err != nil {
		return err
	}
	a.Status = StatusCancelled
	m.Cancellation = &Cancellation{Reason: reason, CancelledBy: by, CancelledAt: now}
	if m.Reschedule.Open() {
		m.Reschedule.Status = RescheduleRejected
		m.Reschedule.RespondedAt = &now
	}
	return a.SetMeta(m)
}

// ProposeReschedule opens a reschedule request and returns it with a fresh token.
func (a *Appointment) ProposeReschedule(start, end time.Time, reason string, by uuid.UUID, now time.Time) (*Reschedule, error) {
	if !end.After(start) {
		return nil, ErrInvalidTimeRange
	}
	if a.Status == StatusCancelled {
		return nil, ErrInvalidTransition
	}
	m, err := a.Meta()
	if err != nil {
		return nil, err
	}
	if m.Reschedule.Open() {
		return nil, ErrInvalidTransition
	}
	m.Reschedule = &Reschedule{
		Status:        ReschedulePending,
		Token:         newToken(),
		ProposedStart: start.UTC(),
		ProposedEnd:   end.UTC(),
		PreviousStart: a.StartTime,
		PreviousEnd:   a.EndTime,
		Reason:        reason,
		RequestedBy:   by,
		RequestedAt:   now,
	}
	if err := a.SetMeta(m); err != nil {
		return nil, err
	}
	return m.Reschedule, nil
}

// ConfirmReschedule records the customer's acceptance of a pending reschedule.
func (a *Appointment) ConfirmReschedule(token string, now time.Time) error {
	return a.answerReschedule(token, RescheduleCustomerConfirmed, now)
}

// RejectReschedule records the customer's refusal; the original times stand.
func (a *Appointment) RejectReschedule(token string, now time.Time) error {
	return a.answerReschedule(token, RescheduleRejected, now)
}

func (a *Appointment) answerReschedule(token string, to RescheduleStatus, now time.Time) error {
	m, err := a.Meta()
	if err != nil {
		return err
	}
	r := m.Reschedule
	if r == nil || r.Status != ReschedulePending {
		return ErrInvalidTransition
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(r.Token)) != 1 {
		return ErrRescheduleToken
	}
	r.Status = to
	r.RespondedAt = &now
	return a.SetMeta(m)
}

// CompleteReschedule applies a customer-confirmed reschedule to the appointment.
func (a *Appointment) CompleteReschedule(now time.Time) error {
	if a.Status == StatusCancelled {
		return ErrInvalidTransition
	}
	m, err := a.Meta()
	if err != nil {
		return err
	}
	r := m.Reschedule
	if r == nil || r.Status != RescheduleCustomerConfirmed {
		return ErrInvalidTransition
	}
	a.StartTime = r.ProposedStart
	a.EndTime = r.ProposedEnd
	a.Status = StatusConfirmed
	r.Status = RescheduleCompleted
	r.CompletedAt = &now
	return a.SetMeta(m)
}

// MarkReminderSent stamps the reminder time so the job does not resend.
func (a *Appointment) MarkReminderSent(now time.Time) error {
	m, err := a.Meta()
	if err != nil {
		return err
	}
	m.ReminderSentAt = &now
	return a.SetMeta(m)
}

func newToken() string {
	var b [24]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
