package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/czhcheng27/project-playground/client/gateway"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(gateway.New(gateway.NewRegistry(), gateway.Config{BaseURL: srv.URL}))
}

func envelopeJSON(t *testing.T, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"code": 200, "success": true, "message": "ok", "data": data})
	require.NoError(t, err)
	return raw
}

func TestLoginDecodesPayload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "carol@console.local", body["identifier"])
		_, _ = w.Write(envelopeJSON(t, LoginData{
			Token:   "signed-token",
			Expired: 1700000000,
			User: AccountData{
				ID:          "user-1",
				Username:    "carol",
				Permissions: Permissions{{Route: "/projects", Actions: []string{"read"}}},
			},
		}))
	}))

	data, err := client.Login(context.Background(), "carol@console.local", "secret")
	require.NoError(t, err)
	require.Equal(t, "signed-token", data.Token)
	require.True(t, data.User.Permissions.Allows("/projects", "read"))
}

func TestUsersSendsPagination(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("page"))
		require.Equal(t, "5", r.URL.Query().Get("pageSize"))
		_, _ = w.Write(envelopeJSON(t, UserPage{
			Users:      []User{{ID: "user-1", Username: "carol"}},
			Total:      6,
			Page:       2,
			PageSize:   5,
			TotalPages: 2,
		}))
	}))

	page, err := client.Users(context.Background(), 2, 5)
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	require.Equal(t, 2, page.TotalPages)
}

func TestBusinessErrorSurfacesEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":409,"success":false,"message":"email already exists"}`))
	}))

	_, err := client.UpsertUser(context.Background(), UpsertUserInput{Username: "carol"})
	require.Error(t, err)
	require.Equal(t, gateway.KindBusiness, gateway.KindOf(err))
}
