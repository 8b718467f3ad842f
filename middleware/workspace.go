package middleware

import (
	"errors"
	"net/http"

	"bookingdesk-backend/models"
	"bookingdesk-backend/repository"
	"bookingdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ContextWorkspaceID = "workspaceId"
	ContextRole        = "role"
)

// RequireWorkspaceRole loads the caller's membership in :workspaceId and
// admits it only with one of roles. It must run after utils.AuthMiddleware.
func RequireWorkspaceRole(members repository.MemberRepository, logger *zap.Logger, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		wsID, ok := utils.ParamUUID(c, "workspaceId")
		if !ok {
			return
		}
		userID := utils.CurrentUserID(c)

		m, err := members.FindMember(c.Request.Context(), wsID, userID)
		if errors.Is(err, repository.ErrNotFound) {
			utils.RespondWithError(c, http.StatusForbidden, "Not a member of this workspace")
			return
		}
		if err != nil {
			logger.Error("membership lookup failed", zap.Error(err), zap.String("workspace_id", wsID.String()))
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to verify access")
			return
		}
		if !hasRole(m.Role, roles) {
			utils.RespondWithError(c, http.StatusForbidden, "Insufficient role")
			return
		}

		c.Set(ContextWorkspaceID, wsID)
		c.Set(ContextRole, m.Role)
		c.Next()
	}
}

func hasRole(role models.Role, allowed []models.Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// WorkspaceID returns the workspace verified by RequireWorkspaceRole.
func WorkspaceID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(ContextWorkspaceID); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func Role(c *gin.Context) models.Role {
	if v, ok := c.Get(ContextRole); ok {
		if r, ok := v.(models.Role); ok {
			return r
		}
	}
	return ""
}
