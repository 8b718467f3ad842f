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
	"go.uber.org/zap"
)

type CreateInvitationInput struct {
	Email string      `json:"email" binding:"required,email"`
	Role  models.Role `json:"role"`
}

type AcceptInvitationInput struct {
	Token string `json:"token" binding:"required"`
}

type InvitationController struct {
	*Deps
}

func (ic *InvitationController) CreateInvitation(c *gin.Context) {
	var input CreateInvitationInput
	if !bindJSON(c, &input) {
		return
	}
	if input.Role == "" {
		input.Role = models.RoleStaff
	}
	if !input.Role.Valid() {
		utils.RespondWithError(c, http.StatusBadRequest, "Role must be owner or staff")
		return
	}

	ctx := c.Request.Context()
	ws, ok := ic.workspace(c)
	if !ok {
		return
	}
	email := utils.NormalizeEmail(input.Email)

	if u, err := ic.Store.Users.FindByEmail(ctx, email); err == nil {
		if _, err := ic.Store.Members.FindMember(ctx, ws.ID, u.ID); err == nil {
			utils.RespondWithError(c, http.StatusConflict, "User is already a member of this workspace")
			return
		} else if !errors.Is(err, repository.ErrNotFound) {
			ic.respondError(c, err, "")
			return
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		ic.respondError(c, err, "")
		return
	}

	now := time.Now().UTC()
	if pending, err := ic.Store.Invitations.FindPendingInvitation(ctx, ws.ID, email); err == nil {
		if !pending.Expired(now) {
			utils.RespondWithError(c, http.StatusConflict, "An invitation is already pending for this email")
			return
		}
		pending.Status = models.InvitationRevoked
		if err := ic.Store.Invitations.UpdateInvitation(ctx, pending); err != nil {
			ic.respondError(c, err, "")
			return
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		ic.respondError(c, err, "")
		return
	}

	inv := models.NewInvitation(ws.ID, email, input.Role, utils.CurrentUserID(c), now)
	if err := ic.Store.Invitations.CreateInvitation(ctx, inv); err != nil {
		ic.respondError(c, err, "")
		return
	}
	ic.Logger.Info("invitation created",
		zap.String("workspace_id", ws.ID.String()),
		zap.String("invitation_id", inv.ID.String()))
	ic.Notifier.Invitation(ctx, ws, inv)

	c.JSON(http.StatusCreated, inv)
}

func (ic *InvitationController) ListInvitations(c *gin.Context) {
	invs, err := ic.Store.Invitations.ListInvitations(c.Request.Context(), middleware.WorkspaceID(c))
	if err != nil {
		ic.respondError(c, err, "")
		return
	}
	if invs == nil {
		invs = []models.WorkspaceInvitation{}
	}
	c.JSON(http.StatusOK, invs)
}

func (ic *InvitationController) RevokeInvitation(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	inv, err := ic.Store.Invitations.FindInvitation(ctx, middleware.WorkspaceID(c), id)
	if err != nil {
		ic.respondError(c, err, "Invitation not found")
		return
	}
	if inv.Status != models.InvitationPending {
		utils.RespondWithError(c, http.StatusConflict, "Invitation is not pending")
		return
	}
	inv.Status = models.InvitationRevoked
	if err := ic.Store.Invitations.UpdateInvitation(ctx, inv); err != nil {
		ic.respondError(c, err, "Invitation not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitation revoked"})
}

// AcceptInvitation joins the caller to the inviting workspace.
func (ic *InvitationController) AcceptInvitation(c *gin.Context) {
	var input AcceptInvitationInput
	if !bindJSON(c, &input) {
		return
	}
	ctx := c.Request.Context()
	userID := utils.CurrentUserID(c)

	inv, err := ic.Store.Invitations.FindInvitationByToken(ctx, input.Token)
	if err != nil {
		ic.respondError(c, err, "Invitation not found")
		return
	}
	now := time.Now().UTC()
	switch {
	case inv.Status != models.InvitationPending:
		utils.RespondWithError(c, http.StatusConflict, "Invitation is not pending")
		return
	case inv.Expired(now):
		utils.RespondWithError(c, http.StatusGone, "Invitation has expired")
		return
	}

	user, err := ic.Store.Users.FindByID(ctx, userID)
	if err != nil {
		ic.respondError(c, err, "User not found")
		return
	}
	if utils.NormalizeEmail(user.Email) != utils.NormalizeEmail(inv.Email) {
		utils.RespondWithError(c, http.StatusForbidden, "Invitation was sent to a different email")
		return
	}

	inv.Status = models.InvitationAccepted
	inv.AcceptedAt = &now
	member := &models.WorkspaceMember{WorkspaceID: inv.WorkspaceID, UserID: userID, Role: inv.Role}
	err = ic.Store.Invitations.AcceptInvitation(ctx, inv, member)
	if errors.Is(err, repository.ErrDuplicate) {
		utils.RespondWithError(c, http.StatusConflict, "You are already a member of this workspace")
		return
	}
	if err != nil {
		ic.respondError(c, err, "Invitation not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Invitation accepted",
		"workspaceId": inv.WorkspaceID,
		"role":        inv.Role,
	})
}
