package api

// Response mirrors the server envelope with typed data.
type Response[T any] struct {
	Code    int    `json:"code"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// RoutePermission is one granted route with its allowed actions.
type RoutePermission struct {
	Route   string   `json:"route"`
	Actions []string `json:"actions"`
}

// Permissions is the aggregated grant set of the signed-in account.
type Permissions []RoutePermission

// Allows reports whether route is granted with the given action. A write
// grant satisfies a read requirement; the server keeps raw action sets and
// this is the one place the implication is applied.
func (p Permissions) Allows(route, action string) bool {
	for _, entry := range p {
		if entry.Route != route {
			continue
		}
		for _, a := range entry.Actions {
			if a == action {
				return true
			}
			if action == "read" && a == "write" {
				return true
			}
		}
		return false
	}
	return false
}

// Routes returns the granted route keys.
func (p Permissions) Routes() []string {
	out := make([]string, 0, len(p))
	for _, entry := range p {
		out = append(out, entry.Route)
	}
	return out
}

// Equal reports set equality over routes and their action sets, independent
// of ordering.
func (p Permissions) Equal(other Permissions) bool {
	if len(p) != len(other) {
		return false
	}
	index := make(map[string]map[string]struct{}, len(other))
	for _, entry := range other {
		actions := make(map[string]struct{}, len(entry.Actions))
		for _, a := range entry.Actions {
			actions[a] = struct{}{}
		}
		index[entry.Route] = actions
	}
	for _, entry := range p {
		actions, ok := index[entry.Route]
		if !ok || len(actions) != len(entry.Actions) {
			return false
		}
		for _, a := range entry.Actions {
			if _, ok := actions[a]; !ok {
				return false
			}
		}
	}
	return true
}

// User is an account as returned by the management endpoints.
type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// Role is a role document with its route grants.
type Role struct {
	ID          string      `json:"id"`
	Name        string      `json:"roleName"`
	Description string      `json:"description"`
	Permissions Permissions `json:"permissions"`
}

// LoginData is the payload of a successful login.
type LoginData struct {
	Token   string      `json:"token"`
	Expired int64       `json:"expired"`
	User    AccountData `json:"user"`
}

// AccountData is the signed-in account with its aggregated permissions.
type AccountData struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Roles       []string    `json:"roles"`
	Permissions Permissions `json:"permissions"`
}

// UserPage is one page of the user list.
type UserPage struct {
	Users      []User `json:"users"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
}

// RolePage is one page of the role list.
type RolePage struct {
	Roles      []Role `json:"roles"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
}

// ManifestEntry declares one route for permission sync.
type ManifestEntry struct {
	Route        string   `json:"route"`
	Actions      []string `json:"actions"`
	DefaultRoles []string `json:"defaultRoles"`
}
