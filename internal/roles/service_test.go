package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/czhcheng27/project-playground/internal/permission"
	"github.com/czhcheng27/project-playground/internal/platform/httpx"
	"github.com/czhcheng27/project-playground/internal/shared"
)

type memoryRoleRepo struct {
	roles map[string]*Role
}

func newMemoryRoleRepo(seed ...*Role) *memoryRoleRepo {
	repo := &memoryRoleRepo{roles: make(map[string]*Role)}
	for _, role := range seed {
		if role.ID == "" {
			role.ID = uuid.NewString()
		}
		repo.roles[role.ID] = role
	}
	return repo
}

func (r *memoryRoleRepo) ListRoles(ctx context.Context, limit, offset int) ([]Role, int, error) {
	var out []Role
	for _, role := range r.roles {
		out = append(out, *role)
	}
	return out, len(r.roles), nil
}

func (r *memoryRoleRepo) FindByID(ctx context.Context, id string) (*Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *role
	return &copied, nil
}

func (r *memoryRoleRepo) FindByName(ctx context.Context, name string) (*Role, error) {
	for _, role := range r.roles {
		if role.Name == name {
			copied := *role
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRoleRepo) Create(ctx context.Context, role *Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	copied := *role
	r.roles[role.ID] = &copied
	return nil
}

func (r *memoryRoleRepo) Update(ctx context.Context, role *Role) error {
	if _, ok := r.roles[role.ID]; !ok {
		return shared.ErrNotFound
	}
	copied := *role
	r.roles[role.ID] = &copied
	return nil
}

func (r *memoryRoleRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.roles, id)
	return nil
}

func (r *memoryRoleRepo) FindRolePermissions(ctx context.Context, roleName string) ([]permission.RoutePermission, error) {
	role, err := r.FindByName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	return role.Permissions, nil
}

func (r *memoryRoleRepo) GrantRoutePermission(ctx context.Context, roleName, route string, actions permission.ActionSet) error {
	role, err := r.FindByName(ctx, roleName)
	if err != nil {
		return err
	}
	stored := r.roles[role.ID]
	for i := range stored.Permissions {
		if stored.Permissions[i].Route == route {
			stored.Permissions[i].Actions = stored.Permissions[i].Actions.Union(actions)
			return nil
		}
	}
	stored.Permissions = append(stored.Permissions, permission.RoutePermission{
		Route:   route,
		Actions: permission.NewActionSet(actions...),
	})
	return nil
}

func TestUpsertRejectsDuplicateName(t *testing.T) {
	repo := newMemoryRoleRepo(&Role{Name: "manager"})
	service := NewService(repo)

	_, err := service.Upsert(context.Background(), UpsertInput{Name: "manager"})
	require.True(t, errors.Is(err, httpx.ErrDuplicate))
}

func TestUpsertRejectsAdminRename(t *testing.T) {
	admin := &Role{Name: shared.AdminRoleName}
	repo := newMemoryRoleRepo(admin)
	service := NewService(repo)

	_, err := service.Upsert(context.Background(), UpsertInput{ID: admin.ID, Name: "superuser"})
	require.True(t, errors.Is(err, httpx.ErrForbidden))

	stored, findErr := repo.FindByID(context.Background(), admin.ID)
	require.NoError(t, findErr)
	require.Equal(t, shared.AdminRoleName, stored.Name)
}

func TestUpsertEditKeepsOwnName(t *testing.T) {
	role := &Role{Name: "manager", Description: "old"}
	repo := newMemoryRoleRepo(role)
	service := NewService(repo)

	updated, err := service.Upsert(context.Background(), UpsertInput{
		ID:          role.ID,
		Name:        "manager",
		Description: "project management",
		Permissions: []RoutePermissionInput{{Route: "/projects", Actions: []string{"read", "write"}}},
	})
	require.NoError(t, err)
	require.Equal(t, "project management", updated.Description)
	require.Len(t, updated.Permissions, 1)
}

func TestDeleteAdminRoleForbidden(t *testing.T) {
	admin := &Role{Name: shared.AdminRoleName}
	repo := newMemoryRoleRepo(admin)
	service := NewService(repo)

	_, err := service.Delete(context.Background(), admin.ID)
	require.True(t, errors.Is(err, httpx.ErrForbidden))

	// The entity persists after the rejected delete.
	_, err = repo.FindByID(context.Background(), admin.ID)
	require.NoError(t, err)
}

func TestDeleteRole(t *testing.T) {
	role := &Role{Name: "manager"}
	repo := newMemoryRoleRepo(role)
	service := NewService(repo)

	deleted, err := service.Delete(context.Background(), role.ID)
	require.NoError(t, err)
	require.Equal(t, "manager", deleted.Name)

	_, err = repo.FindByID(context.Background(), role.ID)
	require.True(t, errors.Is(err, shared.ErrNotFound))
}
