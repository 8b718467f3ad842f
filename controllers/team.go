// controllers/team.go
package controllers

import (
	"net/http"
	"strings"

	"bookingdesk-backend/middleware"
	"bookingdesk-backend/models"
	"bookingdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CreateTeamMemberInput struct {
	Name   string     `json:"name" binding:"required"`
	Email  string     `json:"email" binding:"omitempty,email"`
	Phone  string     `json:"phone"`
	Title  string     `json:"title"`
	Bio    string     `json:"bio"`
	UserID *uuid.UUID `json:"userId"`
}

type UpdateTeamMemberInput struct {
	Name     *string    `json:"name"`
	Email    *string    `json:"email"`
	Phone    *string    `json:"phone"`
	Title    *string    `json:"title"`
	Bio      *string    `json:"bio"`
	UserID   *uuid.UUID `json:"userId"`
	IsActive *bool      `json:"isActive"`
}

type TeamController struct {
	*Deps
}

func (tc *TeamController) CreateTeamMember(c *gin.Context) {
	var input CreateTeamMemberInput
	if !bindJSON(c, &input) {
		return
	}
	if input.Phone != "" && !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
		return
	}

	ctx := c.Request.Context()
	wsID := middleware.WorkspaceID(c)
	if input.UserID != nil && !tc.isMember(c, *input.UserID) {
		return
	}
	if err := tc.Entitlements.CheckTeamMember(ctx, wsID); err != nil {
		tc.respondError(c, err, "")
		return
	}

	tm := models.TeamMember{
		WorkspaceID: wsID,
		UserID:      input.UserID,
		Name:        strings.TrimSpace(input.Name),
		Email:       utils.NormalizeEmail(input.Email),
		Phone:       input.Phone,
		Title:       input.Title,
		Bio:         input.Bio,
		IsActive:    true,
	}
	if err := tc.Store.Team.Create(ctx, &tm); err != nil {
		tc.respondError(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, tm)
}

// ListTeamMembers supports ?active=true to hide inactive profiles.
func (tc *TeamController) ListTeamMembers(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	team, err := tc.Store.Team.List(c.Request.Context(), middleware.WorkspaceID(c), activeOnly)
	if err != nil {
		tc.respondError(c, err, "")
		return
	}
	if team == nil {
		team = []models.TeamMember{}
	}
	c.JSON(http.StatusOK, team)
}

func (tc *TeamController) GetTeamMember(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	tm, err := tc.Store.Team.Find(c.Request.Context(), middleware.WorkspaceID(c), id)
	if err != nil {
		tc.respondError(c, err, "Team member not found")
		return
	}
	c.JSON(http.StatusOK, tm)
}

func (tc *TeamController) UpdateTeamMember(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	var input UpdateTeamMemberInput
	if !bindJSON(c, &input) {
		return
	}

	ctx := c.Request.Context()
	tm, err := tc.Store.Team.Find(ctx, middleware.WorkspaceID(c), id)
	if err != nil {
		tc.respondError(c, err, "Team member not found")
		return
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		tm.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		tm.Email = utils.NormalizeEmail(*input.Email)
	}
	if input.Phone != nil {
		if *input.Phone != "" && !utils.ValidatePhone(*input.Phone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
			return
		}
		tm.Phone = *input.Phone
	}
	if input.Title != nil {
		tm.Title = *input.Title
	}
	if input.Bio != nil {
		tm.Bio = *input.Bio
	}
	if input.UserID != nil {
		if !tc.isMember(c, *input.UserID) {
			return
		}
		tm.UserID = input.UserID
	}
	if input.IsActive != nil {
		tm.IsActive = *input.IsActive
	}

	if err := tc.Store.Team.Update(ctx, tm); err != nil {
		tc.respondError(c, err, "Team member not found")
		return
	}
	c.JSON(http.StatusOK, tm)
}

func (tc *TeamController) DeleteTeamMember(c *gin.Context) {
	id, ok := utils.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := tc.Store.Team.Delete(c.Request.Context(), middleware.WorkspaceID(c), id); err != nil {
		tc.respondError(c, err, "Team member not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Team member deleted successfully"})
}

// isMember requires a linked user account to belong to the workspace.
func (tc *TeamController) isMember(c *gin.Context, userID uuid.UUID) bool {
	_, err := tc.Store.Members.FindMember(c.Request.Context(), middleware.WorkspaceID(c), userID)
	if err != nil {
		if errorsIsNotFound(err) {
			utils.RespondWithError(c, http.StatusBadRequest, "User is not a member of this workspace")
			return false
		}
		tc.respondError(c, err, "")
		return false
	}
	return true
}
