package users

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/czhcheng27/project-playground/internal/permission"
	"github.com/czhcheng27/project-playground/internal/platform/httpx"
	"github.com/czhcheng27/project-playground/internal/shared"
)

type memoryUserRepo struct {
	users map[string]*User
}

func newMemoryUserRepo(seed ...*User) *memoryUserRepo {
	repo := &memoryUserRepo{users: make(map[string]*User)}
	for _, user := range seed {
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		repo.users[user.ID] = user
	}
	return repo
}

func (r *memoryUserRepo) ListUsers(ctx context.Context, limit, offset int) ([]User, int, error) {
	var out []User
	for _, user := range r.users {
		out = append(out, *user)
	}
	return out, len(r.users), nil
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id string) (*User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryUserRepo) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memoryUserRepo) Update(ctx context.Context, user *User) error {
	if _, ok := r.users[user.ID]; !ok {
		return shared.ErrNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memoryUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	user, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type staticPermissions struct {
	set permission.Set
}

func (s staticPermissions) Aggregate(ctx context.Context, roleNames []string) (permission.Set, error) {
	return s.set, nil
}

func TestUpsertCreateRequiresPassword(t *testing.T) {
	service := NewService(newMemoryUserRepo(), staticPermissions{})

	_, err := service.Upsert(context.Background(), UpsertInput{
		Username: "carol",
		Email:    "carol@console.local",
		Roles:    []string{"manager"},
	})
	require.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestUpsertCreateRejectsDuplicateEmail(t *testing.T) {
	repo := newMemoryUserRepo(&User{Username: "carol", Email: "carol@console.local"})
	service := NewService(repo, staticPermissions{})

	_, err := service.Upsert(context.Background(), UpsertInput{
		Username: "carol2",
		Email:    "carol@console.local",
		Roles:    []string{"manager"},
		Password: "secret",
	})
	require.True(t, errors.Is(err, httpx.ErrDuplicate))
}

func TestUpsertCreateHashesPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	service := NewService(repo, staticPermissions{})

	user, err := service.Upsert(context.Background(), UpsertInput{
		Username: "carol",
		Email:    "Carol@Console.Local",
		Roles:    []string{"manager"},
		Password: "secret",
	})
	require.NoError(t, err)
	require.Equal(t, "carol@console.local", user.Email)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret")))
}

func TestUpsertEditKeepsPasswordWhenOmitted(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.DefaultCost)
	require.NoError(t, err)
	existing := &User{Username: "carol", Email: "carol@console.local", PasswordHash: string(hash), Roles: []string{"manager"}}
	repo := newMemoryUserRepo(existing)
	service := NewService(repo, staticPermissions{})

	updated, err := service.Upsert(context.Background(), UpsertInput{
		ID:       existing.ID,
		Username: "caroline",
		Email:    "carol@console.local",
		Roles:    []string{"manager", "editor"},
	})
	require.NoError(t, err)
	require.Equal(t, string(hash), updated.PasswordHash)
	require.Equal(t, []string{"manager", "editor"}, updated.Roles)
}

func TestDeleteAdminUserForbidden(t *testing.T) {
	admin := &User{Username: "admin", Email: "admin@console.local", Roles: []string{shared.AdminRoleName}}
	repo := newMemoryUserRepo(admin)
	service := NewService(repo, staticPermissions{})

	_, err := service.Delete(context.Background(), admin.ID)
	require.True(t, errors.Is(err, httpx.ErrForbidden))

	_, err = repo.FindByID(context.Background(), admin.ID)
	require.NoError(t, err)
}

func TestResetPasswordSetsUsername(t *testing.T) {
	user := &User{Username: "carol", Email: "carol@console.local", Roles: []string{"manager"}}
	repo := newMemoryUserRepo(user)
	service := NewService(repo, staticPermissions{})

	_, err := service.ResetPassword(context.Background(), user.ID)
	require.NoError(t, err)

	stored, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("carol")))
}

func TestResetPasswordAdminForbidden(t *testing.T) {
	admin := &User{Username: "admin", Email: "admin@console.local", Roles: []string{shared.AdminRoleName}}
	repo := newMemoryUserRepo(admin)
	service := NewService(repo, staticPermissions{})

	_, err := service.ResetPassword(context.Background(), admin.ID)
	require.True(t, errors.Is(err, httpx.ErrForbidden))
}

func TestCurrentUserAggregatesPermissions(t *testing.T) {
	user := &User{Username: "carol", Email: "carol@console.local", Roles: []string{"manager"}}
	repo := newMemoryUserRepo(user)
	perms := permission.Set{{Route: "/projects", Actions: permission.NewActionSet(permission.ActionRead)}}
	service := NewService(repo, staticPermissions{set: perms})

	got, gotPerms, err := service.CurrentUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, "carol", got.Username)
	require.True(t, gotPerms.Equal(perms))
}
