package permission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/czhcheng27/project-playground/internal/platform/httpx"
	"github.com/czhcheng27/project-playground/internal/shared"
)

// ManifestStore persists manifest records keyed by their unique route.
type ManifestStore interface {
	// UpsertEntry inserts a record with initialized=false or, when the route
	// exists, overwrites actions and defaultRoles leaving initialized alone.
	UpsertEntry(ctx context.Context, entry ManifestEntry) error
	// ListUninitialized returns records whose default grants are pending.
	ListUninitialized(ctx context.Context) ([]ManifestRecord, error)
	// MarkInitialized flips the one-time flag for a route.
	MarkInitialized(ctx context.Context, route string) error
}

// RoleGranter applies a route grant to a role by set union, never replacing
// an existing wider grant.
type RoleGranter interface {
	GrantRoutePermission(ctx context.Context, roleName, route string, actions ActionSet) error
}

// Syncer reconciles the declared route manifest into persisted permission
// records and one-time default-role grants. Sync is idempotent: running it N
// times leaves the same aggregate state as running it once, and manual edits
// made after initial seeding are never clobbered.
type Syncer struct {
	store    ManifestStore
	roles    RoleGranter
	validate *validator.Validate
	logger   *slog.Logger
}

// NewSyncer constructs a Syncer.
func NewSyncer(store ManifestStore, roles RoleGranter, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{store: store, roles: roles, validate: validator.New(), logger: logger}
}

// Sync validates and applies the manifest. Safe to run concurrently with
// itself: upserts serialize on the unique route key with last-writer-wins on
// actions/defaultRoles, and the grant phase only ever widens role grants, so
// a crash between phases is resumable by re-running Sync.
func (s *Syncer) Sync(ctx context.Context, entries []ManifestEntry) error {
	for i, entry := range entries {
		if err := s.validate.Struct(entry); err != nil {
			return fmt.Errorf("%w: manifest entry %d: %s", httpx.ErrValidation, i, validationDetail(err))
		}
	}

	for _, entry := range entries {
		if err := s.store.UpsertEntry(ctx, entry); err != nil {
			return fmt.Errorf("permission: upsert %s: %w", entry.Route, err)
		}
	}

	return s.applyDefaultGrants(ctx)
}

// Reconcile re-applies pending default grants without new manifest input.
// The background reconcile job uses it to finish syncs interrupted between
// the upsert and grant phases.
func (s *Syncer) Reconcile(ctx context.Context) error {
	return s.applyDefaultGrants(ctx)
}

// applyDefaultGrants processes every uninitialized record. The entry is
// marked initialized only after all of its default roles were handled, so an
// interrupted run leaves it pending and the union merge makes the retry a
// no-op for roles already granted.
func (s *Syncer) applyDefaultGrants(ctx context.Context) error {
	pending, err := s.store.ListUninitialized(ctx)
	if err != nil {
		return fmt.Errorf("permission: list uninitialized: %w", err)
	}

	for _, record := range pending {
		for _, roleName := range record.DefaultRoles {
			err := s.roles.GrantRoutePermission(ctx, roleName, record.Route, record.Actions)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					s.logger.Warn("default role missing, grant skipped",
						slog.String("role", roleName),
						slog.String("route", record.Route))
					continue
				}
				return fmt.Errorf("permission: grant %s to %s: %w", record.Route, roleName, err)
			}
		}
		if err := s.store.MarkInitialized(ctx, record.Route); err != nil {
			return fmt.Errorf("permission: mark initialized %s: %w", record.Route, err)
		}
	}
	return nil
}

func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fieldErrs[0].Field() + " is invalid"
	}
	return err.Error()
}
