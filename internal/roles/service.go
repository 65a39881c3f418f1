package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/czhcheng27/project-playground/internal/permission"
	"github.com/czhcheng27/project-playground/internal/platform/httpx"
	"github.com/czhcheng27/project-playground/internal/shared"
)

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// UpsertInput carries create/edit parameters; an empty ID means create.
type UpsertInput struct {
	ID          string
	Name        string
	Description string
	Permissions []RoutePermissionInput
}

// RoutePermissionInput is one declared grant in an upsert payload.
type RoutePermissionInput struct {
	Route   string   `json:"route" validate:"required"`
	Actions []string `json:"actions" validate:"required,min=1,dive,oneof=read write"`
}

// Upsert creates or edits a role. The admin role keeps its name: renaming it
// is rejected, as is reusing another role's name.
func (s *Service) Upsert(ctx context.Context, input UpsertInput) (*Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", httpx.ErrValidation)
	}

	role := &Role{
		ID:          input.ID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Permissions: toDomainPermissions(input.Permissions),
	}

	if input.ID == "" {
		if _, err := s.repo.FindByName(ctx, name); err == nil {
			return nil, fmt.Errorf("%w: role name already exists", httpx.ErrDuplicate)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if err := httpx.TranslateStoreError(s.repo.Create(ctx, role)); err != nil {
			return nil, err
		}
		return role, nil
	}

	existing, err := s.repo.FindByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: role not found", httpx.ErrNotFound)
		}
		return nil, err
	}
	if existing.Name == shared.AdminRoleName && name != shared.AdminRoleName {
		return nil, fmt.Errorf("%w: the admin role cannot be renamed", httpx.ErrForbidden)
	}
	if other, err := s.repo.FindByName(ctx, name); err == nil && other.ID != input.ID {
		return nil, fmt.Errorf("%w: role name already exists for another role", httpx.ErrDuplicate)
	} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	role.CreatedAt = existing.CreatedAt
	if err := httpx.TranslateStoreError(s.repo.Update(ctx, role)); err != nil {
		return nil, err
	}
	return role, nil
}

// List returns one page of roles plus pagination metadata.
func (s *Service) List(ctx context.Context, page, pageSize int) ([]Role, shared.Pagination, error) {
	p := shared.NewPagination(page, pageSize, 0)
	result, total, err := s.repo.ListRoles(ctx, p.PageSize, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(page, pageSize, total), nil
}

// Delete removes a role. The admin role is undeletable and stays persisted.
func (s *Service) Delete(ctx context.Context, id string) (*Role, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: role not found", httpx.ErrNotFound)
		}
		return nil, err
	}
	if role.Name == shared.AdminRoleName {
		return nil, fmt.Errorf("%w: deletion of the admin role is not allowed", httpx.ErrForbidden)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return role, nil
}

func toDomainPermissions(inputs []RoutePermissionInput) []permission.RoutePermission {
	perms := make([]permission.RoutePermission, 0, len(inputs))
	for _, in := range inputs {
		actions := make([]permission.Action, len(in.Actions))
		for i, a := range in.Actions {
			actions[i] = permission.Action(a)
		}
		perms = append(perms, permission.RoutePermission{
			Route:   in.Route,
			Actions: permission.NewActionSet(actions...),
		})
	}
	return perms
}
