package controllers

import (
	"errors"
	"net/http"
	"strings"

	"bookingdesk-backend/middleware"
	"bookingdesk-backend/models"
	"bookingdesk-backend/repository"
	"bookingdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type CreateWorkspaceInput struct {
	Name         string            `json:"name" binding:"required"`
	Slug         string            `json:"slug"`
	Timezone     string            `json:"timezone"`
	Email        string            `json:"email" binding:"omitempty,email"`
	Phone        string            `json:"phone"`
	WorkingHours datatypes.JSONMap `json:"workingHours"`
}

type UpdateWorkspaceInput struct {
	Name         *string           `json:"name"`
	Timezone     *string           `json:"timezone"`
	Email        *string           `json:"email"`
	Phone        *string           `json:"phone"`
	WorkingHours datatypes.JSONMap `json:"workingHours"`
	Settings     datatypes.JSONMap `json:"settings"`
}

type UpdateMemberInput struct {
	Role models.Role `json:"role" binding:"required"`
}

type WorkspaceController struct {
	*Deps
}

func (wc *WorkspaceController) CreateWorkspace(c *gin.Context) {
	var input CreateWorkspaceInput
	if !bindJSON(c, &input) {
		return
	}

	slug := models.Slugify(input.Slug)
	if input.Slug == "" {
		slug = models.Slugify(input.Name)
	}
	if slug == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Slug must contain letters or digits")
		return
	}
	tz := strings.TrimSpace(input.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	if !utils.ValidTimezone(tz) {
		utils.RespondWithError(c, http.StatusBadRequest, "Unknown timezone")
		return
	}
	if input.Phone != "" && !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
		return
	}

	ws := models.Workspace{
		Name:         strings.TrimSpace(input.Name),
		Slug:         slug,
		Timezone:     tz,
		Email:        utils.NormalizeEmail(input.Email),
		Phone:        input.Phone,
		WorkingHours: input.WorkingHours,
		Settings:     datatypes.JSONMap{},
	}
	if ws.WorkingHours == nil {
		ws.WorkingHours = models.DefaultWorkingHours()
	}
	sub := &models.Subscription{PlanCode: models.PlanFree, Status: models.SubscriptionActive}

	err := wc.Store.Workspaces.CreateWithOwner(c.Request.Context(), &ws, utils.CurrentUserID(c), sub)
	if errors.Is(err, repository.ErrDuplicate) {
		utils.RespondWithError(c, http.StatusConflict, "Slug already taken")
		return
	}
	if err != nil {
		wc.respondError(c, err, "")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"workspace": ws, "role": models.RoleOwner})
}

type workspaceListItem struct {
	models.Workspace
	Role models.Role `json:"role"`
}

func (wc *WorkspaceController) ListWorkspaces(c *gin.Context) {
	members, err := wc.Store.Members.ListForUser(c.Request.Context(), utils.CurrentUserID(c))
	if err != nil {
		wc.respondError(c, err, "")
		return
	}
	items := make([]workspaceListItem, 0, len(members))
	for _, m := range members {
		if m.Workspace != nil {
			items = append(items, workspaceListItem{Workspace: *m.Workspace, Role: m.Role})
		}
	}
	c.JSON(http.StatusOK, items)
}

func (wc *WorkspaceController) GetWorkspace(c *gin.Context) {
	ws, ok := wc.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspace": ws, "role": middleware.Role(c)})
}

func (wc *WorkspaceController) UpdateWorkspace(c *gin.Context) {
	var input UpdateWorkspaceInput
	if !bindJSON(c, &input) {
		return
	}
	ws, ok := wc.workspace(c)
	if !ok {
		return
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		ws.Name = strings.TrimSpace(*input.Name)
	}
	if input.Timezone != nil {
		if !utils.ValidTimezone(*input.Timezone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Unknown timezone")
			return
		}
		ws.Timezone = *input.Timezone
	}
	if input.Email != nil {
		ws.Email = utils.NormalizeEmail(*input.Email)
	}
	if input.Phone != nil {
		if *input.Phone != "" && !utils.ValidatePhone(*input.Phone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
			return
		}
		ws.Phone = *input.Phone
	}
	if input.WorkingHours != nil {
		ws.WorkingHours = input.WorkingHours
	}
	if input.Settings != nil {
		ws.Settings = input.Settings
	}

	if err := wc.Store.Workspaces.Update(c.Request.Context(), ws); err != nil {
		wc.respondError(c, err, "Workspace not found")
		return
	}
	c.JSON(http.StatusOK, ws)
}

func (wc *WorkspaceController) DeleteWorkspace(c *gin.Context) {
	if err := wc.Store.Workspaces.Delete(c.Request.Context(), middleware.WorkspaceID(c)); err != nil {
		wc.respondError(c, err, "Workspace not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Workspace deleted"})
}

func (wc *WorkspaceController) ListMembers(c *gin.Context) {
	members, err := wc.Store.Members.ListMembers(c.Request.Context(), middleware.WorkspaceID(c))
	if err != nil {
		wc.respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, members)
}

func (wc *WorkspaceController) UpdateMemberRole(c *gin.Context) {
	userID, ok := utils.ParamUUID(c, "userId")
	if !ok {
		return
	}
	var input UpdateMemberInput
	if !bindJSON(c, &input) {
		return
	}
	if !input.Role.Valid() {
		utils.RespondWithError(c, http.StatusBadRequest, "Role must be owner or staff")
		return
	}

	ctx := c.Request.Context()
	wsID := middleware.WorkspaceID(c)
	m, err := wc.Store.Members.FindMember(ctx, wsID, userID)
	if err != nil {
		wc.respondError(c, err, "Member not found")
		return
	}
	if err := wc.Store.Members.UpdateRole(ctx, wsID, userID, input.Role); err != nil {
		wc.respondError(c, err, "Member not found")
		return
	}
	m.Role = input.Role
	c.JSON(http.StatusOK, m)
}

func (wc *WorkspaceController) RemoveMember(c *gin.Context) {
	userID, ok := utils.ParamUUID(c, "userId")
	if !ok {
		return
	}
	if err := wc.Store.Members.RemoveMember(c.Request.Context(), middleware.WorkspaceID(c), userID); err != nil {
		wc.respondError(c, err, "Member not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}
