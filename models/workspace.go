package models

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
)

func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleStaff
}

// Workspace is the tenant boundary: one business account.
type Workspace struct {
	Base
	Name         string            `gorm:"not null" json:"name"`
	Slug         string            `gorm:"uniqueIndex;not null" json:"slug"`
	Timezone     string            `gorm:"default:'UTC'" json:"timezone"`
	Email        string            `json:"email,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	WorkingHours datatypes.JSONMap `gorm:"type:jsonb" json:"workingHours"`
	Settings     datatypes.JSONMap `gorm:"type:jsonb" json:"settings"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// WorkspaceMember is a user's role within a workspace.
type WorkspaceMember struct {
	Base
	WorkspaceID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_workspace_user,priority:1" json:"workspaceId"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_workspace_user,priority:2;index" json:"userId"`
	Role        Role      `gorm:"type:varchar(20);not null" json:"role"`

	User      *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Workspace *Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
}

// DefaultWorkingHours is applied to new workspaces that do not send their own.
func DefaultWorkingHours() datatypes.JSONMap {
	return datatypes.JSONMap{
		"monday":    map[string]interface{}{"open": "09:00", "close": "18:00", "closed": false},
		"tuesday":   map[string]interface{}{"open": "09:00", "close": "18:00", "closed": false},
		"wednesday": map[string]interface{}{"open": "09:00", "close": "18:00", "closed": false},
		"thursday":  map[string]interface{}{"open": "09:00", "close": "18:00", "closed": false},
		"friday":    map[string]interface{}{"open": "09:00", "close": "18:00", "closed": false},
		"saturday":  map[string]interface{}{"open": "10:00", "close": "16:00", "closed": false},
		"sunday":    map[string]interface{}{"open": "10:00", "close": "16:00", "closed": true},
	}
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a display name into a url-safe workspace slug.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugInvalid.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
