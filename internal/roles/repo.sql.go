package roles

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/czhcheng27/project-playground/internal/permission"
	"github.com/czhcheng27/project-playground/internal/platform/db"
	"github.com/czhcheng27/project-playground/internal/shared"
)

// Repository provides PostgreSQL backed role persistence. Route grants are
// stored as a jsonb document per role; the unique index on role_name keeps
// names conflict-checked at the store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, role_name, description, permissions, created_at, updated_at`

// ListRoles returns one page of roles plus the total count.
func (r *Repository) ListRoles(ctx context.Context, limit, offset int) ([]Role, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM roles`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY role_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, role)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// FindByID loads a role by ID.
func (r *Repository) FindByID(ctx context.Context, id string) (*Role, error) {
	return r.findOne(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
}

// FindByName loads a role by its unique name.
func (r *Repository) FindByName(ctx context.Context, name string) (*Role, error) {
	return r.findOne(ctx, `SELECT `+roleColumns+` FROM roles WHERE role_name = $1`, name)
}

// Create inserts a new role.
func (r *Repository) Create(ctx context.Context, role *Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO roles (id, role_name, description, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())`,
		role.ID, role.Name, role.Description, perms)
	return err
}

// Update overwrites name, description and grants of an existing role.
func (r *Repository) Update(ctx context.Context, role *Role) error {
	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE roles
		SET role_name = $2, description = $3, permissions = $4, updated_at = now()
		WHERE id = $1`,
		role.ID, role.Name, role.Description, perms)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a role by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindRolePermissions returns the route grants of a role by name.
func (r *Repository) FindRolePermissions(ctx context.Context, roleName string) ([]permission.RoutePermission, error) {
	role, err := r.FindByName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	return role.Permissions, nil
}

// GrantRoutePermission unions the given actions into the role's grant for
// route, adding the grant when absent. The row is locked for the
// read-modify-write so concurrent syncs serialize per role and grants only
// ever widen.
func (r *Repository) GrantRoutePermission(ctx context.Context, roleName, route string, actions permission.ActionSet) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			id  string
			raw []byte
		)
		err := tx.QueryRow(ctx, `SELECT id, permissions FROM roles WHERE role_name = $1 FOR UPDATE`, roleName).Scan(&id, &raw)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}

		var perms []permission.RoutePermission
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &perms); err != nil {
				return err
			}
		}

		found := false
		for i := range perms {
			if perms[i].Route == route {
				perms[i].Actions = perms[i].Actions.Union(actions)
				found = true
				break
			}
		}
		if !found {
			perms = append(perms, permission.RoutePermission{Route: route, Actions: permission.NewActionSet(actions...)})
		}

		merged, err := json.Marshal(perms)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE roles SET permissions = $2, updated_at = now() WHERE id = $1`, id, merged)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (*Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

func scanRole(row rowScanner) (Role, error) {
	var (
		role Role
		raw  []byte
	)
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &raw, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &role.Permissions); err != nil {
			return Role{}, err
		}
	}
	return role, nil
}
