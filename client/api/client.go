// Package api provides typed bindings over the request gateway for every
// console endpoint. Non-idempotent writes are lockable; list and detail
// reads are cancelable so only the latest answer lands.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/czhcheng27/project-playground/client/gateway"
)

// Client wraps the gateway with endpoint knowledge.
type Client struct {
	gw *gateway.Gateway
}

// NewClient constructs a Client.
func NewClient(gw *gateway.Gateway) *Client {
	return &Client{gw: gw}
}

// Login authenticates with an identifier (email) and password.
func (c *Client) Login(ctx context.Context, identifier, password string) (*LoginData, error) {
	return do[*LoginData](ctx, c, gateway.Request{
		Method:   http.MethodPost,
		URL:      "/auth/login",
		Body:     map[string]string{"identifier": identifier, "password": password},
		Lockable: true,
	})
}

// Logout revokes the current session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := do[json.RawMessage](ctx, c, gateway.Request{
		Method:   http.MethodPost,
		URL:      "/auth/logout",
		Lockable: true,
	})
	return err
}

// Me fetches the signed-in account with its aggregated permissions.
func (c *Client) Me(ctx context.Context) (*AccountData, error) {
	return do[*AccountData](ctx, c, gateway.Request{
		Method:     http.MethodGet,
		URL:        "/users/me",
		Cancelable: true,
	})
}

// Users fetches one page of the user list.
func (c *Client) Users(ctx context.Context, page, pageSize int) (*UserPage, error) {
	return do[*UserPage](ctx, c, gateway.Request{
		Method:     http.MethodGet,
		URL:        "/users",
		Params:     pageParams(page, pageSize),
		Cancelable: true,
	})
}

// UpsertUser creates a user when input.ID is empty, otherwise edits.
func (c *Client) UpsertUser(ctx context.Context, input UpsertUserInput) (*User, error) {
	return do[*User](ctx, c, gateway.Request{
		Method:   http.MethodPost,
		URL:      "/users/upsertUser",
		Body:     input,
		Lockable: true,
	})
}

// DeleteUser removes a user by ID.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := do[json.RawMessage](ctx, c, gateway.Request{
		Method:   http.MethodDelete,
		URL:      "/users/" + id,
		Lockable: true,
	})
	return err
}

// ResetPassword resets a user's password to their username.
func (c *Client) ResetPassword(ctx context.Context, id string) error {
	_, err := do[json.RawMessage](ctx, c, gateway.Request{
		Method:   http.MethodPut,
		URL:      "/users/" + id + "/reset-password",
		Lockable: true,
	})
	return err
}

// Roles fetches one page of the role list.
func (c *Client) Roles(ctx context.Context, page, pageSize int) (*RolePage, error) {
	return do[*RolePage](ctx, c, gateway.Request{
		Method:     http.MethodGet,
		URL:        "/roles",
		Params:     pageParams(page, pageSize),
		Cancelable: true,
	})
}

// UpsertRole creates a role when input.ID is empty, otherwise edits.
func (c *Client) UpsertRole(ctx context.Context, input UpsertRoleInput) (*Role, error) {
	return do[*Role](ctx, c, gateway.Request{
		Method:   http.MethodPost,
		URL:      "/roles/upsertRole",
		Body:     input,
		Lockable: true,
	})
}

// DeleteRole removes a role by ID.
func (c *Client) DeleteRole(ctx context.Context, id string) error {
	_, err := do[json.RawMessage](ctx, c, gateway.Request{
		Method:   http.MethodDelete,
		URL:      "/roles/" + id,
		Lockable: true,
	})
	return err
}

// SyncPermissions pushes the declared route manifest to the server.
func (c *Client) SyncPermissions(ctx context.Context, entries []ManifestEntry) error {
	_, err := do[json.RawMessage](ctx, c, gateway.Request{
		Method:   http.MethodPost,
		URL:      "/permission/sync",
		Body:     map[string]any{"permissions": entries},
		Lockable: true,
	})
	return err
}

// UpsertUserInput carries user create/edit fields.
type UpsertUserInput struct {
	ID       string   `json:"id,omitempty"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
	Password string   `json:"password,omitempty"`
}

// UpsertRoleInput carries role create/edit fields.
type UpsertRoleInput struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"roleName"`
	Description string          `json:"description"`
	Permissions []ManifestGrant `json:"permissions"`
}

// ManifestGrant is one route grant inside a role edit.
type ManifestGrant struct {
	Route   string   `json:"route"`
	Actions []string `json:"actions"`
}

func do[T any](ctx context.Context, c *Client, req gateway.Request) (T, error) {
	var out T
	result, err := c.gw.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if len(result.Data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(result.Data, &out); err != nil {
		return out, err
	}
	return out, nil
}

func pageParams(page, pageSize int) map[string]string {
	params := map[string]string{}
	if page > 0 {
		params["page"] = strconv.Itoa(page)
	}
	if pageSize > 0 {
		params["pageSize"] = strconv.Itoa(pageSize)
	}
	return params
}
