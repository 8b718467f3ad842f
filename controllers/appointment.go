// controllers/appointment.go
package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"bookingdesk-backend/metrics"
	"bookingdesk-backend/middleware"
	"bookingdesk-backend/models"
	"bookingdesk-backend/repository"
	"bookingdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookAppointmentInput struct {
	ServiceID     uuid.UUID  `json:"serviceId" binding:"required"`
	VariantID     *uuid.UUID `json:"variantId"`
	TeamMemberID  *uuid.UUID `json:"teamMemberId"`
	StartTime     time.Time  `json:"startTime" binding:"required"`
	CustomerName  string     `json:"customerName" binding:"required"`
	CustomerEmail string     `json:"customerEmail" binding:"omitempty,email"`
	CustomerPhone string     `json:"customerPhone"`
	Notes         string     `json:"notes"`
}

type UpdateAppointmentInput struct {
	TeamMemberID  *uuid.UUID `json:"teamMemberId"`
	CustomerName  *string    `json:"customerName"`
	CustomerEmail *string    `json:"customerEmail"`
	CustomerPhone *string    `json:"customerPhone"`
	Notes         *string    `json:"notes"`
}

type CancelInput struct {
	Reason string `json:"reason"`
}

type RescheduleInput struct {
	StartTime time.Time `json:"startTime" binding:"required"`
	Reason    string    `json:"reason"`
}

type AppointmentController struct {
	*Deps
}

// bookingError carries the status for a rejected booking.
type bookingError struct {
	status  int
	message string
}

func (e *bookingError) Error() string { return e.message }

// book validates and stores a new appointment for ws. Staff bookings are
// confirmed right away; public ones wait for the business.
func (d *Deps) book(c *gin.Context, ws *models.Workspace, input BookAppointmentInput, source string) (*models.Appointment, error) {
	ctx := c.Request.Context()
	now := time.Now().UTC()

	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, &bookingError{http.StatusBadRequest, "Customer name is required"}
	}
	if input.CustomerPhone != "" && !utils.ValidatePhone(input.CustomerPhone) {
		return nil, &bookingError{http.StatusBadRequest, "Invalid phone number"}
	}

	service, err := d.Store.Services.Find(ctx, ws.ID, input.ServiceID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && source == models.SourcePublic && !service.IsActive) {
		return nil, &bookingError{http.StatusBadRequest, "Service does not belong to this workspace"}
	}
	if err != nil {
		return nil, err
	}

	var variant *models.ServiceVariant
	if input.VariantID != nil {
		v, ok := service.Variant(*input.VariantID)
		if !ok {
			return nil, &bookingError{http.StatusBadRequest, "Variant does not belong to this service"}
		}
		variant = v
	}

	if input.TeamMemberID != nil {
		tm, err := d.Store.Team.Find(ctx, ws.ID, *input.TeamMemberID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !tm.IsActive) {
			return nil, &bookingError{http.StatusBadRequest, "Team member does not belong to this workspace"}
		}
		if err != nil {
			return nil, err
		}
	}

	start := input.StartTime.UTC()
	end := start.Add(service.Duration(variant))
	if !end.After(start) {
		return nil, &bookingError{http.StatusBadRequest, models.ErrInvalidTimeRange.Error()}
	}
	if source == models.SourcePublic && !start.After(now) {
		return nil, &bookingError{http.StatusBadRequest, "Start time must be in the future"}
	}

	if err := d.Entitlements.CheckAppointment(ctx, ws.ID, start); err != nil {
		return nil, err
	}
	appt := models.Appointment{
		WorkspaceID:   ws.ID,
		ServiceID:     service.ID,
		VariantID:     input.VariantID,
		TeamMemberID:  input.TeamMemberID,
		CustomerName:  strings.TrimSpace(input.CustomerName),
		CustomerEmail: utils.NormalizeEmail(input.CustomerEmail),
		CustomerPhone: input.CustomerPhone,
		StartTime:     start,
		EndTime:       end,
		Status:        models.StatusPending,
		Source:        source,
		Notes:         input.Notes,
	}
	if source == models.SourceStaff {
		appt.Status = models.StatusConfirmed
		if err := appt.SetMeta(models.AppointmentMetadata{ConfirmedAt: &now}); err != nil {
			return nil, err
		}
	}
	if err := d.Store.Appointments.Create(ctx, &appt); err != nil {
		return nil, err
	}
	appt.Service = service

	metrics.RecordAppointmentBooked(source)
	d.Logger.Info("appointment booked",
		zap.String("workspace_id", ws.ID.String()),
		zap.String("appointment_id", appt.ID.String()),
		zap.String("source", source))
	d.Notifier.AppointmentBooked(ctx, ws, &appt)
	return &appt, nil
}

// respondBookingError answers a failed book call.
func (d *Deps) respondBookingError(c *gin.Context, err error) {
	var be *bookingError
	if errors.As(err, &be) {
		utils.RespondWithError(c, be.status, be.message)
		return
	}
	d.respondError(c, err, "")
}

func (ac *AppointmentController) CreateAppointment(c *gin.Context) {
	var input BookAppointmentInput
	if !bindJSON(c, &input) {
		return
	}
	ws, ok := ac.workspace(c)
	if !ok {
		return
	}
	appt, err := ac.book(c, ws, input, models.SourceStaff)
	if err != nil {
		ac.respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

// ListAppointments filters by ?status, ?from, ?to (RFC3339) and ?teamMemberId.
func (ac *AppointmentController) ListAppointments(c *gin.Context) {
	var f repository.AppointmentFilter
	if s := c.Query("status"); s != "" {
		f.Status = models.AppointmentStatus(s)
		if !f.Status.Valid() {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid status")
			return
		}
	}
	for _, q := range []struct {
		name string
		dst  **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+q.name+" time, expected RFC3339")
			return
		}
		t = t.UTC()
		*q.dst = &t
	}
	if raw := c.Query("teamMemberId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid teamMemberId")
			return
		}
		f.TeamMemberID = &id
	}

	appts, err := ac.Store.Appointments.List(c.Request.Context(), middleware.WorkspaceID(c), f)
	if err != nil {
		ac.respondError(c, err, "")
		return
	}
	if appts == nil {
		appts = []models.Appointment{}
	}
	c.JSON(http.StatusOK, appts)
}

func (ac *AppointmentController) GetAppointment(c *gin.Context) {
	appt, ok := ac.appointment(c, "Appointment not found")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (ac *AppointmentController) UpdateAppointment(c *gin.Context) {
	var input UpdateAppointmentInput
	if !bindJSON(c, &input) {
		return
	}
	appt, ok := ac.appointment(c, "Appointment not found")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if input.TeamMemberID != nil && (appt.TeamMemberID == nil || *appt.TeamMemberID != *input.TeamMemberID) {
		tm, err := ac.Store.Team.Find(ctx, appt.WorkspaceID, *input.TeamMemberID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				utils.RespondWithError(c, http.StatusBadRequest, "Team member does not belong to this workspace")
				return
			}
			ac.respondError(c, err, "")
			return
		}
		appt.TeamMemberID = &tm.ID
		appt.TeamMember = tm
	}
	if input.CustomerName != nil {
		if strings.TrimSpace(*input.CustomerName) == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "Customer name cannot be empty")
			return
		}
		appt.CustomerName = strings.TrimSpace(*input.CustomerName)
	}
	if input.CustomerEmail != nil {
		appt.CustomerEmail = utils.NormalizeEmail(*input.CustomerEmail)
	}
	if input.CustomerPhone != nil {
		if *input.CustomerPhone != "" && !utils.ValidatePhone(*input.CustomerPhone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
			return
		}
		appt.CustomerPhone = *input.CustomerPhone
	}
	if input.Notes != nil {
		appt.Notes = *input.Notes
	}

	if err := ac.Store.Appointments.Update(ctx, appt); err != nil {
		ac.respondError(c, err, "Appointment not found")
		return
	}
	c.JSON(http.StatusOK, appt)
}

func (ac *AppointmentController) DeleteAppointment(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := ac.Store.Appointments.Delete(c.Request.Context(), middleware.WorkspaceID(c), id); err != nil {
		ac.respondError(c, err, "Appointment not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Appointment deleted successfully"})
}

func (ac *AppointmentController) ConfirmAppointment(c *gin.Context) {
	const notPending = "Appointment not found or not pending"
	appt, ok := ac.appointment(c, notPending)
	if !ok {
		return
	}
	ws, ok := ac.workspace(c)
	if !ok {
		return
	}
	if err := appt.Confirm(time.Now().UTC()); err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			utils.RespondWithError(c, http.StatusNotFound, notPending)
			return
		}
		ac.respondError(c, err, "")
		return
	}
	if !ac.save(c, appt, "confirm") {
		return
	}
	ac.Notifier.AppointmentConfirmed(c.Request.Context(), ws, appt)
	c.JSON(http.StatusOK, appt)
}

func (ac *AppointmentController) CancelAppointment(c *gin.Context) {
	var input CancelInput
	if !bindOptionalJSON(c, &input) {
		return
	}
	appt, ok := ac.appointment(c, "Appointment not found")
	if !ok {
		return
	}
	ws, ok := ac.workspace(c)
	if !ok {
		return
	}
	by := utils.CurrentUserID(c)
	if err := appt.Cancel(strings.TrimSpace(input.Reason), &by, time.Now().UTC()); err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			utils.RespondWithError(c, http.StatusConflict, "Appointment is already cancelled")
			return
		}
		ac.respondError(c, err, "")
		return
	}
	if !ac.save(c, appt, "cancel") {
		return
	}
	ac.Notifier.AppointmentCancelled(c.Request.Context(), ws, appt, input.Reason)
	c.JSON(http.StatusOK, appt)
}

// ProposeReschedule keeps the appointment's length and asks the customer
// to accept the new start time.
func (ac *AppointmentController) ProposeReschedule(c *gin.Context) {
	var input RescheduleInput
	if !bindJSON(c, &input) {
		return
	}
	appt, ok := ac.appointment(c, "Appointment not found")
	if !ok {
		return
	}
	ws, ok := ac.workspace(c)
	if !ok {
		return
	}

	start := input.StartTime.UTC()
	end := start.Add(appt.EndTime.Sub(appt.StartTime))
	if !ac.slotFree(c, appt, start, end) {
		return
	}

	r, err := appt.ProposeReschedule(start, end, strings.TrimSpace(input.Reason), utils.CurrentUserID(c), time.Now().UTC())
	switch {
	case errors.Is(err, models.ErrInvalidTimeRange):
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, models.ErrInvalidTransition):
		utils.RespondWithError(c, http.StatusConflict, "Appointment cannot be rescheduled in its current state")
		return
	case err != nil:
		ac.respondError(c, err, "")
		return
	}
	if !ac.save(c, appt, "reschedule_propose") {
		return
	}
	ac.Notifier.RescheduleProposed(c.Request.Context(), ws, appt, r)
	c.JSON(http.StatusOK, appt)
}

// CompleteReschedule moves the appointment to the times the customer accepted.
func (ac *AppointmentController) CompleteReschedule(c *gin.Context) {
	appt, ok := ac.appointment(c, "Appointment not found")
	if !ok {
		return
	}
	meta, err := appt.Meta()
	if err != nil {
		ac.respondError(c, err, "")
		return
	}
	r := meta.Reschedule
	if r == nil || r.Status != models.RescheduleCustomerConfirmed || appt.Status == models.StatusCancelled {
		utils.RespondWithError(c, http.StatusConflict, "Reschedule has not been confirmed by the customer")
		return
	}
	if err := appt.CompleteReschedule(time.Now().UTC()); err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			utils.RespondWithError(c, http.StatusConflict, "Reschedule has not been confirmed by the customer")
			return
		}
		ac.respondError(c, err, "")
		return
	}
	if !ac.save(c, appt, "reschedule_complete") {
		return
	}
	c.JSON(http.StatusOK, appt)
}

// appointment loads :id within the current workspace.
func (ac *AppointmentController) appointment(c *gin.Context, notFound string) (*models.Appointment, bool) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return nil, false
	}
	appt, err := ac.Store.Appointments.Find(c.Request.Context(), middleware.WorkspaceID(c), id)
	if err != nil {
		ac.respondError(c, err, notFound)
		return nil, false
	}
	return appt, true
}

// slotFree answers 409 when [start, end) collides with another booking of
// the same team member.
func (ac *AppointmentController) slotFree(c *gin.Context, appt *models.Appointment, start, end time.Time) bool {
	if appt.TeamMemberID == nil {
		return true
	}
	overlap, err := ac.Store.Appointments.HasOverlap(c.Request.Context(), appt.WorkspaceID, *appt.TeamMemberID, start, end, &appt.ID)
	if err != nil {
		ac.respondError(c, err, "")
		return false
	}
	if overlap {
		utils.RespondWithError(c, http.StatusConflict, "Time slot is already booked")
		return false
	}
	return true
}

// save persists a status transition and records it.
func (d *Deps) save(c *gin.Context, appt *models.Appointment, action string) bool {
	if err := d.Store.Appointments.Update(c.Request.Context(), appt); err != nil {
		d.respondError(c, err, "Appointment not found")
		return false
	}
	metrics.RecordAppointmentTransition(action)
	return true
}
