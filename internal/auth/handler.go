package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/czhcheng27/project-playground/internal/permission"
	"github.com/czhcheng27/project-playground/internal/platform/httpx"
	"github.com/czhcheng27/project-playground/internal/token"
)

// PermissionSource aggregates route grants across a set of role names.
type PermissionSource interface {
	Aggregate(ctx context.Context, roleNames []string) (permission.Set, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	tokens      *token.Manager
	permissions PermissionSource
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, tokens *token.Manager, permissions PermissionSource) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		tokens:      tokens,
		permissions: permissions,
		validator:   validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type loginUser struct {
	ID          string         `json:"id"`
	Username    string         `json:"username"`
	Email       string         `json:"email"`
	Roles       []string       `json:"roles"`
	Permissions permission.Set `json:"permissions"`
}

type loginResponse struct {
	Token   string    `json:"token"`
	Expired int64     `json:"expired"`
	User    loginUser `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, "identifier and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Identifier, req.Password)
	if err != nil {
		httpx.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	// Permissions are aggregated at login time; the user document never
	// stores a materialized list.
	perms, err := h.permissions.Aggregate(r.Context(), user.Roles)
	if err != nil {
		h.logger.Error("aggregate permissions", slog.Any("error", err))
		httpx.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	signed, expired, err := h.tokens.Issue(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	httpx.Success(w, loginResponse{
		Token:   signed,
		Expired: expired,
		User: loginUser{
			ID:          user.ID,
			Username:    user.Username,
			Email:       user.Email,
			Roles:       user.Roles,
			Permissions: perms,
		},
	}, "Login successful", http.StatusOK)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if bearer := BearerToken(r); bearer != "" {
		if err := h.tokens.Revoke(r.Context(), bearer); err != nil {
			h.logger.Warn("revoke token", slog.Any("error", err))
		}
	}
	httpx.Success(w, nil, "Logout successful", http.StatusOK)
}

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}
