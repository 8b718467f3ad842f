package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"bookingdesk-backend/billing"
	"bookingdesk-backend/middleware"
	"bookingdesk-backend/models"
	"bookingdesk-backend/repository"
	"bookingdesk-backend/services"
	"bookingdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Notifier is the outbound messaging the handlers trigger. Implementations
// must not fail the request.
type Notifier interface {
	AppointmentBooked(ctx context.Context, ws *models.Workspace, a *models.Appointment)
	AppointmentConfirmed(ctx context.Context, ws *models.Workspace, a *models.Appointment)
	AppointmentCancelled(ctx context.Context, ws *models.Workspace, a *models.Appointment, reason string)
	RescheduleProposed(ctx context.Context, ws *models.Workspace, a *models.Appointment, r *models.Reschedule)
	RescheduleAnswered(ctx context.Context, ws *models.Workspace, a *models.Appointment, r *models.Reschedule)
	Invitation(ctx context.Context, ws *models.Workspace, inv *models.WorkspaceInvitation)
}

// Deps carries everything the HTTP handlers need.
type Deps struct {
	Store        *repository.Store
	Entitlements *services.Entitlements
	Notifier     Notifier
	Billing      billing.Client
	Webhooks     *billing.WebhookProcessor
	Logger       *zap.Logger

	JWTSecret    string
	JWTExpiry    time.Duration
	SecureCookie bool

	// ReadyChecks are probed by /readyz, keyed by dependency name.
	ReadyChecks map[string]func(context.Context) error
}

// respondError maps repository and domain errors onto HTTP statuses.
// notFound is the message used for a 404.
func (d *Deps) respondError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.RespondWithError(c, http.StatusNotFound, notFound)
	case errors.Is(err, repository.ErrDuplicate):
		utils.RespondWithError(c, http.StatusConflict, "Record already exists")
	case errors.Is(err, repository.ErrInUse):
		utils.RespondWithError(c, http.StatusConflict, "Record is still referenced by appointments")
	case errors.Is(err, repository.ErrSlotTaken):
		utils.RespondWithError(c, http.StatusConflict, "Time slot is already booked")
	case errors.Is(err, repository.ErrLastOwner):
		utils.RespondWithError(c, http.StatusConflict, "A workspace must keep at least one owner")
	case errors.Is(err, repository.ErrStale):
		utils.RespondWithError(c, http.StatusConflict, "Record was changed by another request, reload and retry")
	case errors.Is(err, services.ErrLimitReached):
		utils.RespondWithError(c, http.StatusPaymentRequired, err.Error())
	default:
		d.Logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// workspace loads the workspace verified by RequireWorkspaceRole.
func (d *Deps) workspace(c *gin.Context) (*models.Workspace, bool) {
	ws, err := d.Store.Workspaces.FindByID(c.Request.Context(), middleware.WorkspaceID(c))
	if err != nil {
		d.respondError(c, err, "Workspace not found")
		return nil, false
	}
	return ws, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return false
	}
	return true
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, dst)
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
