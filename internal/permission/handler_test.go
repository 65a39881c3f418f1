package permission

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/czhcheng27/project-playground/internal/platform/httpx"
	"github.com/czhcheng27/project-playground/internal/shared"
)

type allowGuard struct{ allowed bool }

func (g allowGuard) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.allowed {
				httpx.Error(w, "forbidden: you do not have the required role", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newSyncRouter(t *testing.T, guard RouteGuard) (chi.Router, *memoryManifestStore, *memoryGranter) {
	t.Helper()
	store := newMemoryManifestStore()
	granter := newMemoryGranter(shared.AdminRoleName, "manager")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, NewSyncer(store, granter, logger), guard)

	r := chi.NewRouter()
	r.Route("/permission", handler.MountRoutes)
	return r, store, granter
}

func TestSyncEndpoint(t *testing.T) {
	router, store, granter := newSyncRouter(t, allowGuard{allowed: true})

	body, _ := json.Marshal(map[string]any{
		"permissions": []map[string]any{
			{"route": "/projects", "actions": []string{"read", "write"}, "defaultRoles": []string{"manager"}},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/permission/sync", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, store.records["/projects"].Initialized)
	require.Equal(t, 1, granter.grants)

	var envelope struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.Equal(t, "Permissions synced and initialized successfully", envelope.Message)
}

func TestSyncEndpointRejectsInvalidManifest(t *testing.T) {
	router, store, _ := newSyncRouter(t, allowGuard{allowed: true})

	body, _ := json.Marshal(map[string]any{
		"permissions": []map[string]any{
			{"route": "", "actions": []string{"read"}},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/permission/sync", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, store.records)
}

func TestSyncEndpointRequiresAdmin(t *testing.T) {
	router, store, _ := newSyncRouter(t, allowGuard{allowed: false})

	req := httptest.NewRequest(http.MethodPost, "/permission/sync", bytes.NewReader([]byte(`{"permissions":[]}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Empty(t, store.records)
}
