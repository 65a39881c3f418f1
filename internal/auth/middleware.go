package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/czhcheng27/project-playground/internal/platform/httpx"
	"github.com/czhcheng27/project-playground/internal/shared"
	"github.com/czhcheng27/project-playground/internal/token"
)

// Middleware authenticates bearer tokens and gates routes on roles.
type Middleware struct {
	Tokens *token.Manager
	Repo   Repository
	Logger *slog.Logger
}

// Protect verifies the bearer token, loads the account behind it and puts
// the principal into the request context. Expired and revoked sessions are
// answered with the reserved session-invalid business codes so clients
// classify them as auth failures even on a 200 transport status.
func (m Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bearer := BearerToken(r)
		if bearer == "" {
			httpx.Error(w, "not authorized, no token provided", http.StatusUnauthorized)
			return
		}

		sess, err := m.Tokens.Verify(r.Context(), bearer)
		if err != nil {
			switch {
			case errors.Is(err, token.ErrTokenExpired):
				httpx.Error(w, "session expired", token.CodeSessionExpired)
			case errors.Is(err, token.ErrTokenRevoked):
				httpx.Error(w, "session revoked", token.CodeSessionRevoked)
			case errors.Is(err, token.ErrTokenInvalid):
				httpx.Error(w, "not authorized, token is invalid", http.StatusUnauthorized)
			default:
				m.Logger.Error("verify token", slog.Any("error", err))
				httpx.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		user, err := m.Repo.FindByID(r.Context(), sess.UserID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				httpx.Error(w, "not authorized, user not found", http.StatusUnauthorized)
				return
			}
			m.Logger.Error("load principal", slog.Any("error", err))
			httpx.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		principal := &shared.Principal{
			UserID:   user.ID,
			Username: user.Username,
			Email:    user.Email,
			Roles:    user.Roles,
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireRole allows the request through when the principal holds any of
// the given roles.
func (m Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.Error(w, "authorization error: user not authenticated", http.StatusUnauthorized)
				return
			}
			for _, role := range roles {
				if principal.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Error(w, "forbidden: you do not have the required role", http.StatusForbidden)
		})
	}
}
