// Package permission implements access-control resolution: the aggregation
// of per-route grants across a user's roles and the idempotent
// reconciliation of the declared route manifest into persisted state.
package permission

import (
	"sort"
	"time"
)

// Action is a grantable operation on a route.
type Action string

const (
	// ActionRead allows viewing a route.
	ActionRead Action = "read"
	// ActionWrite allows mutating through a route. Storage keeps write
	// grants as-is; whether write implies read is decided at the
	// authorization-check layer, not here.
	ActionWrite Action = "write"
)

// ActionSet is a set of actions kept in canonical (sorted, deduplicated)
// form so comparisons are order-insensitive.
type ActionSet []Action

// NewActionSet builds a canonical set from the given actions.
func NewActionSet(actions ...Action) ActionSet {
	return ActionSet(nil).Union(actions)
}

// Union returns a new canonical set containing both operands. Receivers and
// arguments are never mutated.
func (s ActionSet) Union(other []Action) ActionSet {
	seen := make(map[Action]struct{}, len(s)+len(other))
	for _, a := range s {
		seen[a] = struct{}{}
	}
	for _, a := range other {
		seen[a] = struct{}{}
	}
	merged := make(ActionSet, 0, len(seen))
	for a := range seen {
		merged = append(merged, a)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
	return merged
}

// Contains reports set membership.
func (s ActionSet) Contains(a Action) bool {
	for _, have := range s {
		if have == a {
			return true
		}
	}
	return false
}

// Equal compares two canonical sets.
func (s ActionSet) Equal(other ActionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// RoutePermission grants a set of actions on a named application route.
type RoutePermission struct {
	Route   string    `json:"route"`
	Actions ActionSet `json:"actions"`
}

// Set is an aggregated route→actions mapping, sorted by route for
// deterministic serialization. Callers must treat it as a set.
type Set []RoutePermission

// Routes lists the granted route keys.
func (s Set) Routes() []string {
	routes := make([]string, len(s))
	for i, p := range s {
		routes[i] = p.Route
	}
	return routes
}

// Find returns the actions granted on route, if any.
func (s Set) Find(route string) (ActionSet, bool) {
	for _, p := range s {
		if p.Route == route {
			return p.Actions, true
		}
	}
	return nil, false
}

// Equal compares two aggregated sets ignoring ordering differences inside
// action sets (both are canonical).
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i].Route != other[i].Route || !s[i].Actions.Equal(other[i].Actions) {
			return false
		}
	}
	return true
}

// ManifestEntry is one declared route in the deploy-time manifest.
type ManifestEntry struct {
	Route        string    `json:"route" validate:"required"`
	Actions      ActionSet `json:"actions" validate:"required,min=1,dive,oneof=read write"`
	DefaultRoles []string  `json:"defaultRoles" validate:"dive,required"`
}

// ManifestRecord is the persisted form of a manifest entry. Initialized
// flips to true exactly once, after the one-time default-role grants have
// been applied; later syncs only refresh actions and default roles.
type ManifestRecord struct {
	ID           string
	Route        string
	Actions      ActionSet
	DefaultRoles []string
	Initialized  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
