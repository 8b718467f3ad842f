package controllers

import (
	"errors"
	"net/http"
	"time"

	"bookingdesk-backend/models"
	"bookingdesk-backend/repository"
	"bookingdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthController struct {
	*Deps
}

// controllers/auth.go
func (ac *AuthController) Register(c *gin.Context) {
	var input RegisterInput
	if !bindJSON(c, &input) {
		return
	}
	if input.Phone != "" && !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
		return
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		ac.respondError(c, err, "")
		return
	}

	user := models.User{
		Email:    utils.NormalizeEmail(input.Email),
		Password: hash,
		Name:     input.Name,
		Phone:    input.Phone,
		IsActive: true,
	}
	if err := ac.Store.Users.Create(c.Request.Context(), &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			utils.RespondWithError(c, http.StatusConflict, "Email already registered")
			return
		}
		ac.respondError(c, err, "")
		return
	}

	token, ok := ac.issueToken(c, &user)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"token":   token,
		"user":    user,
	})
}

func (ac *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	user, err := ac.Store.Users.FindByEmail(c.Request.Context(), utils.NormalizeEmail(input.Email))
	if errors.Is(err, repository.ErrNotFound) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		ac.respondError(c, err, "")
		return
	}
	if !user.IsActive || !utils.CheckPasswordHash(input.Password, user.Password) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	now := time.Now().UTC()
	if err := ac.Store.Users.TouchLastLogin(c.Request.Context(), user.ID, now); err != nil {
		ac.Logger.Warn("failed to update last login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	user.LastLogin = &now

	token, ok := ac.issueToken(c, user)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

type membershipView struct {
	WorkspaceID string      `json:"workspaceId"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Role        models.Role `json:"role"`
}

func (ac *AuthController) Me(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := ac.Store.Users.FindByID(ctx, utils.CurrentUserID(c))
	if errors.Is(err, repository.ErrNotFound) {
		utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
		return
	}
	if err != nil {
		ac.respondError(c, err, "")
		return
	}

	members, err := ac.Store.Members.ListForUser(ctx, user.ID)
	if err != nil {
		ac.respondError(c, err, "")
		return
	}
	views := make([]membershipView, 0, len(members))
	for _, m := range members {
		if m.Workspace == nil {
			continue
		}
		views = append(views, membershipView{
			WorkspaceID: m.WorkspaceID.String(),
			Name:        m.Workspace.Name,
			Slug:        m.Workspace.Slug,
			Role:        m.Role,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        user,
		"memberships": views,
	})
}

func (ac *AuthController) issueToken(c *gin.Context, user *models.User) (string, bool) {
	token, err := utils.GenerateToken(user.ID, ac.JWTSecret, ac.JWTExpiry)
	if err != nil {
		ac.Logger.Error("failed to generate token", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return "", false
	}
	c.SetCookie(
		utils.TokenCookie,
		token,
		int(ac.JWTExpiry.Seconds()),
		"/",
		"",
		ac.SecureCookie,
		true,
	)
	return token, true
}
