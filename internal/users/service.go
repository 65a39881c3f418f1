package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/czhcheng27/project-playground/internal/auth"
	"github.com/czhcheng27/project-playground/internal/permission"
	"github.com/czhcheng27/project-playground/internal/platform/httpx"
	"github.com/czhcheng27/project-playground/internal/shared"
)

// PermissionSource aggregates route grants across a set of role names.
type PermissionSource interface {
	Aggregate(ctx context.Context, roleNames []string) (permission.Set, error)
}

// Service handles user business logic.
type Service struct {
	repo        RepositoryPort
	permissions PermissionSource
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, permissions PermissionSource) *Service {
	return &Service{repo: repo, permissions: permissions}
}

// UpsertInput carries create/edit parameters; an empty ID means create and
// then Password is required.
type UpsertInput struct {
	ID       string
	Username string
	Email    string
	Roles    []string
	Password string
}

// Upsert creates or edits a user. Password is re-hashed only when supplied
// on edit; email stays unique across accounts.
func (s *Service) Upsert(ctx context.Context, input UpsertInput) (*User, error) {
	username := strings.TrimSpace(input.Username)
	email := auth.CanonicalIdentifier(strings.TrimSpace(input.Email))
	if username == "" || email == "" || input.Roles == nil {
		return nil, fmt.Errorf("%w: username, email and roles are required", httpx.ErrValidation)
	}

	if input.ID == "" {
		if input.Password == "" {
			return nil, fmt.Errorf("%w: password is required for new user creation", httpx.ErrValidation)
		}
		if _, err := s.repo.FindByEmail(ctx, email); err == nil {
			return nil, fmt.Errorf("%w: email already exists", httpx.ErrDuplicate)
		} else if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user := &User{Username: username, Email: email, PasswordHash: string(hash), Roles: input.Roles}
		if err := httpx.TranslateStoreError(s.repo.Create(ctx, user)); err != nil {
			return nil, err
		}
		return user, nil
	}

	user, err := s.repo.FindByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", httpx.ErrNotFound)
		}
		return nil, err
	}
	if other, err := s.repo.FindByEmail(ctx, email); err == nil && other.ID != input.ID {
		return nil, fmt.Errorf("%w: email already exists for another user", httpx.ErrDuplicate)
	} else if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	user.Username = username
	user.Email = email
	user.Roles = input.Roles
	if input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	if err := httpx.TranslateStoreError(s.repo.Update(ctx, user)); err != nil {
		return nil, err
	}
	return user, nil
}

// List returns one page of users plus pagination metadata.
func (s *Service) List(ctx context.Context, page, pageSize int) ([]User, shared.Pagination, error) {
	p := shared.NewPagination(page, pageSize, 0)
	result, total, err := s.repo.ListUsers(ctx, p.PageSize, p.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(page, pageSize, total), nil
}

// Delete removes a user. Accounts holding the admin role are protected.
func (s *Service) Delete(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", httpx.ErrNotFound)
		}
		return nil, err
	}
	if user.HasRole(shared.AdminRoleName) {
		return nil, fmt.Errorf("%w: deletion of admin users is not allowed", httpx.ErrForbidden)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	return user, nil
}

// ResetPassword resets a user's password to their username. Admin accounts
// are protected from this endpoint.
func (s *Service) ResetPassword(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", httpx.ErrNotFound)
		}
		return nil, err
	}
	if user.HasRole(shared.AdminRoleName) {
		return nil, fmt.Errorf("%w: password reset for admin users is not allowed", httpx.ErrForbidden)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(user.Username), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash)); err != nil {
		return nil, err
	}
	return user, nil
}

// CurrentUser loads the account and its freshly aggregated permission set.
func (s *Service) CurrentUser(ctx context.Context, id string) (*User, permission.Set, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: user not found", httpx.ErrNotFound)
		}
		return nil, nil, err
	}
	perms, err := s.permissions.Aggregate(ctx, user.Roles)
	if err != nil {
		return nil, nil, err
	}
	return user, perms, nil
}
