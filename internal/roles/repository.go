package roles

import (
	"context"

	"github.com/czhcheng27/project-playground/internal/permission"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context, limit, offset int) ([]Role, int, error)
	FindByID(ctx context.Context, id string) (*Role, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	Create(ctx context.Context, role *Role) error
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id string) error
	FindRolePermissions(ctx context.Context, roleName string) ([]permission.RoutePermission, error)
	GrantRoutePermission(ctx context.Context, roleName, route string, actions permission.ActionSet) error
}
