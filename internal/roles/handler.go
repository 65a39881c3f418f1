package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/czhcheng27/project-playground/internal/auth"
	"github.com/czhcheng27/project-playground/internal/platform/httpx"
	"github.com/czhcheng27/project-playground/internal/shared"
)

// Handler manages role management endpoints.
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

// MountRoutes registers role routes. Listing is open to managers; mutations
// are admin only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.authmw.RequireRole(shared.AdminRoleName, "manager")).Get("/", h.list)
	r.Group(func(r chi.Router) {
		r.Use(h.authmw.RequireRole(shared.AdminRoleName))
		r.Post("/upsertRole", h.upsert)
		r.Delete("/{id}", h.remove)
	})
}

type upsertRequest struct {
	ID          string                 `json:"id"`
	RoleName    string                 `json:"roleName" validate:"required"`
	Description string                 `json:"description"`
	Permissions []RoutePermissionInput `json:"permissions" validate:"dive"`
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, "role name is required", http.StatusBadRequest)
		return
	}

	role, err := h.service.Upsert(r.Context(), UpsertInput{
		ID:          req.ID,
		Name:        req.RoleName,
		Description: req.Description,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.logger.Warn("upsert role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	message, code := "Role created successfully", http.StatusCreated
	if req.ID != "" {
		message, code = "Role updated successfully", http.StatusOK
	}
	httpx.Success(w, role, message, code)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, pageSize := shared.PageParams(r)
	result, pagination, err := h.service.List(r.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	httpx.NoStore(w)
	httpx.Success(w, map[string]any{
		"roles":      result,
		"total":      pagination.Total,
		"page":       pagination.Page,
		"pageSize":   pagination.PageSize,
		"totalPages": pagination.TotalPages,
	}, "Roles fetched successfully", http.StatusOK)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Warn("delete role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Success(w, nil, "Role '"+role.Name+"' deleted successfully", http.StatusOK)
}
