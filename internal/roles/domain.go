package roles

import (
	"time"

	"github.com/czhcheng27/project-playground/internal/permission"
)

// Role groups route permissions under a unique name.
type Role struct {
	ID          string                       `json:"id"`
	Name        string                       `json:"roleName"`
	Description string                       `json:"description"`
	Permissions []permission.RoutePermission `json:"permissions"`
	CreatedAt   time.Time                    `json:"createdAt"`
	UpdatedAt   time.Time                    `json:"updatedAt"`
}
