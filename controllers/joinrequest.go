package controllers

import (
	"errors"
	"net/http"
	"time"

	"bookingdesk-backend/middleware"
	"bookingdesk-backend/models"
	"bookingdesk-backend/repository"
	"bookingdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

type CreateJoinRequestInput struct {
	WorkspaceSlug string `json:"workspaceSlug" binding:"required"`
	Message       string `json:"message" binding:"max=1000"`
}

type ApproveJoinRequestInput struct {
	Role models.Role `json:"role"`
}

type JoinRequestController struct {
	*Deps
}

func (jc *JoinRequestController) CreateJoinRequest(c *gin.Context) {
	var input CreateJoinRequestInput
	if !bindJSON(c, &input) {
		return
	}
	ctx := c.Request.Context()
	userID := utils.CurrentUserID(c)

	ws, err := jc.Store.Workspaces.FindBySlug(ctx, input.WorkspaceSlug)
	if err != nil {
		jc.respondError(c, err, "Workspace not found")
		return
	}

	if _, err := jc.Store.Members.FindMember(ctx, ws.ID, userID); err == nil {
		utils.RespondWithError(c, http.StatusConflict, "You are already a member of this workspace")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		jc.respondError(c, err, "")
		return
	}
	if _, err := jc.Store.Invitations.FindPendingJoinRequest(ctx, ws.ID, userID); err == nil {
		utils.RespondWithError(c, http.StatusConflict, "A join request is already pending")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		jc.respondError(c, err, "")
		return
	}

	jr := models.WorkspaceJoinRequest{
		WorkspaceID: ws.ID,
		UserID:      userID,
		Message:     input.Message,
		Status:      models.JoinRequestPending,
	}
	if err := jc.Store.Invitations.CreateJoinRequest(ctx, &jr); err != nil {
		jc.respondError(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, jr)
}

// ListJoinRequests accepts ?status=pending|approved|rejected.
func (jc *JoinRequestController) ListJoinRequests(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", models.JoinRequestPending, models.JoinRequestApproved, models.JoinRequestRejected:
	default:
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid status")
		return
	}
	reqs, err := jc.Store.Invitations.ListJoinRequests(c.Request.Context(), middleware.WorkspaceID(c), status)
	if err != nil {
		jc.respondError(c, err, "")
		return
	}
	if reqs == nil {
		reqs = []models.WorkspaceJoinRequest{}
	}
	c.JSON(http.StatusOK, reqs)
}

func (jc *JoinRequestController) ApproveJoinRequest(c *gin.Context) {
	var input ApproveJoinRequestInput
	if !bindOptionalJSON(c, &input) {
		return
	}
	if input.Role == "" {
		input.Role = models.RoleStaff
	}
	if !input.Role.Valid() {
		utils.RespondWithError(c, http.StatusBadRequest, "Role must be owner or staff")
		return
	}
	jr, ok := jc.pending(c)
	if !ok {
		return
	}

	now := time.Now().UTC()
	reviewer := utils.CurrentUserID(c)
	jr.Status = models.JoinRequestApproved
	jr.ReviewedBy = &reviewer
	jr.ReviewedAt = &now
	member := &models.WorkspaceMember{WorkspaceID: jr.WorkspaceID, UserID: jr.UserID, Role: input.Role}

	err := jc.Store.Invitations.ApproveJoinRequest(c.Request.Context(), jr, member)
	if errors.Is(err, repository.ErrDuplicate) {
		utils.RespondWithError(c, http.StatusConflict, "User is already a member of this workspace")
		return
	}
	if err != nil {
		jc.respondError(c, err, "Join request not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"joinRequest": jr, "member": member})
}

func (jc *JoinRequestController) RejectJoinRequest(c *gin.Context) {
	jr, ok := jc.pending(c)
	if !ok {
		return
	}
	now := time.Now().UTC()
	reviewer := utils.CurrentUserID(c)
	jr.Status = models.JoinRequestRejected
	jr.ReviewedBy = &reviewer
	jr.ReviewedAt = &now
	if err := jc.Store.Invitations.UpdateJoinRequest(c.Request.Context(), jr); err != nil {
		jc.respondError(c, err, "Join request not found")
		return
	}
	c.JSON(http.StatusOK, jr)
}

func (jc *JoinRequestController) pending(c *gin.Context) (*models.WorkspaceJoinRequest, bool) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return nil, false
	}
	jr, err := jc.Store.Invitations.FindJoinRequest(c.Request.Context(), middleware.WorkspaceID(c), id)
	if err != nil {
		jc.respondError(c, err, "Join request not found")
		return nil, false
	}
	if jr.Status != models.JoinRequestPending {
		utils.RespondWithError(c, http.StatusConflict, "Join request is not pending")
		return nil, false
	}
	return jr, true
}
