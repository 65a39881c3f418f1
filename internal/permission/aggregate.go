package permission

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/czhcheng27/project-playground/internal/shared"
)

// maxRoleFetches caps concurrent role lookups per aggregation.
const maxRoleFetches = 4

// RoleDirectory resolves a role name to its persisted route grants.
type RoleDirectory interface {
	FindRolePermissions(ctx context.Context, roleName string) ([]RoutePermission, error)
}

// Aggregator merges a user's role permissions into a single route→actions
// set. It has no side effects; the result is a pure function of the current
// role documents.
type Aggregator struct {
	dir    RoleDirectory
	logger *slog.Logger
}

// NewAggregator constructs an Aggregator.
func NewAggregator(dir RoleDirectory, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{dir: dir, logger: logger}
}

// Aggregate unions the grants of every named role, keyed by route. Route
// collisions across roles are expected and merge by set union, so the result
// is independent of role iteration order. A role name without a matching
// document is logged and skipped; drift between user.roles and the role
// collection must not abort aggregation.
func (a *Aggregator) Aggregate(ctx context.Context, roleNames []string) (Set, error) {
	var (
		mu    sync.Mutex
		byKey = make(map[string]ActionSet)
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxRoleFetches)
	for _, name := range roleNames {
		name := name
		g.Go(func() error {
			perms, err := a.dir.FindRolePermissions(ctx, name)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					a.logger.Warn("role missing during aggregation", slog.String("role", name))
					return nil
				}
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, p := range perms {
				if p.Route == "" {
					continue
				}
				byKey[p.Route] = byKey[p.Route].Union(p.Actions)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(Set, 0, len(byKey))
	for route, actions := range byKey {
		merged = append(merged, RoutePermission{Route: route, Actions: actions})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Route < merged[j].Route })
	return merged, nil
}
