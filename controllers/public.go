package controllers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"bookingdesk-backend/models"
	"bookingdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RescheduleAnswerInput struct {
	Token string `json:"token" binding:"required"`
}

// PublicController serves the unauthenticated booking page. Responses never
// include other customers' data.
type PublicController struct {
	*Deps
}

type publicWorkspace struct {
	Name         string             `json:"name"`
	Slug         string             `json:"slug"`
	Timezone     string             `json:"timezone"`
	WorkingHours interface{}        `json:"workingHours"`
	Services     []models.Service   `json:"services"`
	Team         []publicTeamMember `json:"team"`
}

type publicTeamMember struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Title string    `json:"title,omitempty"`
	Bio   string    `json:"bio,omitempty"`
}

type publicAppointment struct {
	ID         uuid.UUID                `json:"id"`
	Status     models.AppointmentStatus `json:"status"`
	StartTime  time.Time                `json:"startTime"`
	EndTime    time.Time                `json:"endTime"`
	Service    string                   `json:"service,omitempty"`
	Reschedule *publicReschedule        `json:"reschedule,omitempty"`
}

type publicReschedule struct {
	Status        models.RescheduleStatus `json:"status"`
	ProposedStart time.Time               `json:"proposedStart"`
	ProposedEnd   time.Time               `json:"proposedEnd"`
	Reason        string                  `json:"reason,omitempty"`
}

func toPublicAppointment(a *models.Appointment, r *models.Reschedule) publicAppointment {
	out := publicAppointment{ID: a.ID, Status: a.Status, StartTime: a.StartTime, EndTime: a.EndTime}
	if a.Service != nil {
		out.Service = a.Service.Name
	}
	if r != nil {
		out.Reschedule = &publicReschedule{
			Status:        r.Status,
			ProposedStart: r.ProposedStart,
			ProposedEnd:   r.ProposedEnd,
			Reason:        r.Reason,
		}
	}
	return out
}

func (pc *PublicController) GetWorkspacePage(c *gin.Context) {
	ctx := c.Request.Context()
	ws, err := pc.Store.Workspaces.FindBySlug(ctx, c.Param("slug"))
	if err != nil {
		pc.respondError(c, err, "Workspace not found")
		return
	}
	services, err := pc.Store.Services.List(ctx, ws.ID, true)
	if err != nil {
		pc.respondError(c, err, "")
		return
	}
	team, err := pc.Store.Team.List(ctx, ws.ID, true)
	if err != nil {
		pc.respondError(c, err, "")
		return
	}

	page := publicWorkspace{
		Name:         ws.Name,
		Slug:         ws.Slug,
		Timezone:     ws.Timezone,
		WorkingHours: ws.WorkingHours,
		Services:     services,
		Team:         make([]publicTeamMember, 0, len(team)),
	}
	if page.Services == nil {
		page.Services = []models.Service{}
	}
	for _, tm := range team {
		page.Team = append(page.Team, publicTeamMember{ID: tm.ID, Name: tm.Name, Title: tm.Title, Bio: tm.Bio})
	}
	c.JSON(http.StatusOK, page)
}

func (pc *PublicController) BookAppointment(c *gin.Context) {
	var input BookAppointmentInput
	if !bindJSON(c, &input) {
		return
	}
	ws, err := pc.Store.Workspaces.FindBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		pc.respondError(c, err, "Workspace not found")
		return
	}
	appt, err := pc.book(c, ws, input, models.SourcePublic)
	if err != nil {
		pc.respondBookingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPublicAppointment(appt, nil))
}

// GetReschedule shows the proposal behind a reschedule link.
func (pc *PublicController) GetReschedule(c *gin.Context) {
	appt, meta, ok := pc.rescheduleTarget(c, c.Query("token"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toPublicAppointment(appt, meta.Reschedule))
}

func (pc *PublicController) ConfirmReschedule(c *gin.Context) {
	pc.answerReschedule(c, true)
}

func (pc *PublicController) RejectReschedule(c *gin.Context) {
	pc.answerReschedule(c, false)
}

func (pc *PublicController) answerReschedule(c *gin.Context, accept bool) {
	var input RescheduleAnswerInput
	if !bindJSON(c, &input) {
		return
	}
	appt, _, ok := pc.rescheduleTarget(c, input.Token)
	if !ok {
		return
	}

	now := time.Now().UTC()
	answer, action := appt.RejectReschedule, "reschedule_reject"
	if accept {
		answer, action = appt.ConfirmReschedule, "reschedule_confirm"
	}
	if err := answer(input.Token, now); err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			utils.RespondWithError(c, http.StatusConflict, "Reschedule is no longer awaiting an answer")
			return
		}
		pc.respondError(c, err, "")
		return
	}
	if !pc.save(c, appt, action) {
		return
	}

	meta, _ := appt.Meta()
	if appt.Workspace != nil {
		pc.Notifier.RescheduleAnswered(c.Request.Context(), appt.Workspace, appt, meta.Reschedule)
	}
	c.JSON(http.StatusOK, toPublicAppointment(appt, meta.Reschedule))
}

// rescheduleTarget loads the appointment and checks the link token.
func (pc *PublicController) rescheduleTarget(c *gin.Context, token string) (*models.Appointment, models.AppointmentMetadata, bool) {
	var meta models.AppointmentMetadata
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return nil, meta, false
	}
	if token == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Token is required")
		return nil, meta, false
	}
	appt, err := pc.Store.Appointments.FindByID(c.Request.Context(), id)
	if err != nil {
		pc.respondError(c, err, "Appointment not found")
		return nil, meta, false
	}
	meta, err = appt.Meta()
	if err != nil {
		pc.respondError(c, err, "")
		return nil, meta, false
	}
	if meta.Reschedule == nil {
		utils.RespondWithError(c, http.StatusNotFound, "No reschedule request for this appointment")
		return nil, meta, false
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(meta.Reschedule.Token), []byte(token)) != 1 {
		utils.RespondWithError(c, http.StatusForbidden, "Invalid reschedule token")
		return nil, meta, false
	}
	return appt, meta, true
}
