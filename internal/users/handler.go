package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/czhcheng27/project-playground/internal/auth"
	"github.com/czhcheng27/project-playground/internal/permission"
	"github.com/czhcheng27/project-playground/internal/platform/httpx"
	"github.com/czhcheng27/project-playground/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authmw    auth.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authmw auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authmw: authmw, validator: validator.New()}
}

// MountRoutes registers user routes. The permission fetch at /me is open to
// any authenticated principal; management endpoints are admin only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.me)
	r.Group(func(r chi.Router) {
		r.Use(h.authmw.RequireRole(shared.AdminRoleName))
		r.Get("/", h.list)
		r.Post("/upsertUser", h.upsert)
		r.Delete("/{id}", h.remove)
		r.Put("/{id}/reset-password", h.resetPassword)
	})
}

type meResponse struct {
	ID          string         `json:"id"`
	Username    string         `json:"username"`
	Email       string         `json:"email"`
	Roles       []string       `json:"roles"`
	Permissions permission.Set `json:"permissions"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Error(w, "not authorized", http.StatusUnauthorized)
		return
	}

	user, perms, err := h.service.CurrentUser(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("current user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.NoStore(w)
	httpx.Success(w, meResponse{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Roles:       user.Roles,
		Permissions: perms,
	}, "Current user fetched successfully", http.StatusOK)
}

type upsertRequest struct {
	ID       string   `json:"id"`
	Username string   `json:"username" validate:"required"`
	Email    string   `json:"email" validate:"required,email"`
	Roles    []string `json:"roles" validate:"required"`
	Password string   `json:"password"`
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, "missing required fields (username, email, roles)", http.StatusBadRequest)
		return
	}

	user, err := h.service.Upsert(r.Context(), UpsertInput{
		ID:       req.ID,
		Username: req.Username,
		Email:    req.Email,
		Roles:    req.Roles,
		Password: req.Password,
	})
	if err != nil {
		h.logger.Warn("upsert user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	message, code := "User created successfully", http.StatusCreated
	if req.ID != "" {
		message, code = "User updated successfully", http.StatusOK
	}
	httpx.Success(w, user, message, code)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, pageSize := shared.PageParams(r)
	result, pagination, err := h.service.List(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	httpx.NoStore(w)
	httpx.Success(w, map[string]any{
		"users":      result,
		"total":      pagination.Total,
		"page":       pagination.Page,
		"pageSize":   pagination.PageSize,
		"totalPages": pagination.TotalPages,
	}, "User list fetched successfully", http.StatusOK)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Warn("delete user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Success(w, nil, "User "+user.Username+" deleted successfully", http.StatusOK)
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Warn("reset password", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Success(w, nil, "User "+user.Username+"'s password has been reset successfully", http.StatusOK)
}
