package permission

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/czhcheng27/project-playground/internal/platform/httpx"
	"github.com/czhcheng27/project-playground/internal/shared"
)

// RouteGuard gates endpoints on the caller's roles.
type RouteGuard interface {
	RequireRole(roles ...string) func(http.Handler) http.Handler
}

// Handler wires the manifest sync endpoint.
type Handler struct {
	logger *slog.Logger
	syncer *Syncer
	guard  RouteGuard
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, syncer *Syncer, guard RouteGuard) *Handler {
	return &Handler{logger: logger, syncer: syncer, guard: guard}
}

// MountRoutes registers permission routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequireRole(shared.AdminRoleName)).Post("/sync", h.sync)
}

type syncRequest struct {
	Permissions []ManifestEntry `json:"permissions"`
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, "invalid permissions format", http.StatusBadRequest)
		return
	}

	if err := h.syncer.Sync(r.Context(), req.Permissions); err != nil {
		if errors.Is(err, httpx.ErrValidation) {
			httpx.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("permission sync", slog.Any("error", err))
		httpx.Error(w, "failed to sync permissions", http.StatusInternalServerError)
		return
	}

	httpx.Success(w, nil, "Permissions synced and initialized successfully", http.StatusOK)
}
