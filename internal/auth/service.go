package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/secure/precis"

	"github.com/czhcheng27/project-playground/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates identifier/password credentials. Lookup failures
// and password mismatches are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, CanonicalIdentifier(identifier))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// CanonicalIdentifier normalizes a login identifier using the PRECIS
// UsernameCaseMapped profile so lookups are case- and width-insensitive.
// Identifiers the profile rejects are returned unchanged; they will simply
// not match any stored account.
func CanonicalIdentifier(identifier string) string {
	canonical, err := precis.UsernameCaseMapped.String(identifier)
	if err != nil {
		return identifier
	}
	return canonical
}
