package permission

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed manifest persistence. The unique
// index on route is the serialization point for concurrent syncs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertEntry inserts or refreshes a manifest record by route. The
// initialized flag is only set on insert; updates never touch it.
func (r *Repository) UpsertEntry(ctx context.Context, entry ManifestEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO permission_manifest (id, route, actions, default_roles, initialized, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, now(), now())
		ON CONFLICT (route) DO UPDATE
		SET actions = EXCLUDED.actions,
		    default_roles = EXCLUDED.default_roles,
		    updated_at = now()`,
		uuid.NewString(), entry.Route, actionsToText(entry.Actions), entry.DefaultRoles)
	return err
}

// ListUninitialized returns records still waiting for default grants.
func (r *Repository) ListUninitialized(ctx context.Context) ([]ManifestRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, route, actions, default_roles, initialized, created_at, updated_at
		FROM permission_manifest
		WHERE initialized = FALSE
		ORDER BY route`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ManifestRecord
	for rows.Next() {
		var (
			record  ManifestRecord
			actions []string
		)
		if err := rows.Scan(&record.ID, &record.Route, &actions, &record.DefaultRoles,
			&record.Initialized, &record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, err
		}
		record.Actions = actionsFromText(actions)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// MarkInitialized flips the one-time flag for a route.
func (r *Repository) MarkInitialized(ctx context.Context, route string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE permission_manifest
		SET initialized = TRUE, updated_at = now()
		WHERE route = $1`, route)
	return err
}

func actionsToText(actions ActionSet) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = string(a)
	}
	return out
}

func actionsFromText(values []string) ActionSet {
	out := make([]Action, len(values))
	for i, v := range values {
		out[i] = Action(v)
	}
	return NewActionSet(out...)
}
