package authz

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/munigestion/munigestion/internal/platform/db"
	"github.com/munigestion/munigestion/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the permission
// tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

const permissionColumns = `id, name, module, COALESCE(feature, ''), action, display_name, category, is_active`

func scanPermission(row pgx.Row) (Permission, error) {
	var p Permission
	err := row.Scan(&p.ID, &p.Name, &p.Module, &p.Feature, &p.Action, &p.DisplayName, &p.Category, &p.IsActive)
	return p, err
}

func (r *Repository) collectPermissions(ctx context.Context, query string, args ...any) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Module, &p.Feature, &p.Action, &p.DisplayName, &p.Category, &p.IsActive); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// FindSubject loads the role and activity flag for a user.
func (r *Repository) FindSubject(ctx context.Context, userID int64) (Subject, error) {
	var s Subject
	err := r.pool.QueryRow(ctx, `SELECT id, role, is_active FROM users WHERE id = $1`, userID).
		Scan(&s.ID, &s.Role, &s.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subject{}, shared.ErrNotFound
		}
		return Subject{}, err
	}
	return s, nil
}

// FindPermissionByName fetches a permission by its unique dotted name.
func (r *Repository) FindPermissionByName(ctx context.Context, name string) (Permission, error) {
	p, err := scanPermission(r.pool.QueryRow(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE name = $1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

// FindPermissionByModuleAction resolves the legacy (module, action) pair.
// ORDER BY name keeps ambiguous pairs deterministic.
func (r *Repository) FindPermissionByModuleAction(ctx context.Context, module, action string) (Permission, error) {
	p, err := scanPermission(r.pool.QueryRow(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE module = $1 AND action = $2 ORDER BY name LIMIT 1`,
		module, action))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, shared.ErrNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

// ListOverrides returns every override row for the (user, permission) pair.
func (r *Repository) ListOverrides(ctx context.Context, userID, permissionID int64) ([]Override, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, permission_id, type, COALESCE(reason, ''), expires_at, granted_by, created_at
		 FROM user_permissions WHERE user_id = $1 AND permission_id = $2 ORDER BY created_at`,
		userID, permissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overrides []Override
	for rows.Next() {
		var o Override
		if err := rows.Scan(&o.ID, &o.UserID, &o.PermissionID, &o.Type, &o.Reason, &o.ExpiresAt, &o.GrantedBy, &o.CreatedAt); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return overrides, nil
}

// RoleHasPermission reports whether the role's baseline set contains the
// permission.
func (r *Repository) RoleHasPermission(ctx context.Context, role Role, permissionID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM role_permissions WHERE role = $1 AND permission_id = $2)`,
		string(role), permissionID).Scan(&exists)
	return exists, err
}

// CustomRoleHasPermission reports whether any active custom role assigned to
// the user bundles the permission.
func (r *Repository) CustomRoleHasPermission(ctx context.Context, userID, permissionID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1
			FROM user_custom_roles ucr
			JOIN custom_roles cr ON cr.id = ucr.custom_role_id AND cr.is_active
			JOIN custom_role_permissions crp ON crp.custom_role_id = cr.id
			WHERE ucr.user_id = $1 AND crp.permission_id = $2
		)`, userID, permissionID).Scan(&exists)
	return exists, err
}

// ListActivePermissions returns the full active catalog ordered by name.
func (r *Repository) ListActivePermissions(ctx context.Context) ([]Permission, error) {
	return r.collectPermissions(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE is_active ORDER BY name`)
}

// ListRolePermissions returns the active permissions in a role's baseline set.
func (r *Repository) ListRolePermissions(ctx context.Context, role Role) ([]Permission, error) {
	return r.collectPermissions(ctx,
		`SELECT `+permissionColumns+` FROM permissions p
		 JOIN role_permissions rp ON rp.permission_id = p.id
		 WHERE rp.role = $1 AND p.is_active ORDER BY p.name`, string(role))
}

// ListCustomRolePermissions returns the union of active permissions bundled
// by the user's active custom roles.
func (r *Repository) ListCustomRolePermissions(ctx context.Context, userID int64) ([]Permission, error) {
	return r.collectPermissions(ctx,
		`SELECT DISTINCT `+permissionColumns+` FROM permissions p
		 JOIN custom_role_permissions crp ON crp.permission_id = p.id
		 JOIN custom_roles cr ON cr.id = crp.custom_role_id AND cr.is_active
		 JOIN user_custom_roles ucr ON ucr.custom_role_id = cr.id
		 WHERE ucr.user_id = $1 AND p.is_active ORDER BY p.name`, userID)
}

// ListGrantedPermissions returns the active permissions with a currently
// valid GRANT override for the user.
func (r *Repository) ListGrantedPermissions(ctx context.Context, userID int64, now time.Time) ([]Permission, error) {
	return r.collectPermissions(ctx,
		`SELECT DISTINCT `+permissionColumns+` FROM permissions p
		 JOIN user_permissions up ON up.permission_id = p.id
		 WHERE up.user_id = $1 AND up.type = 'GRANT'
		   AND (up.expires_at IS NULL OR up.expires_at > $2)
		   AND p.is_active ORDER BY p.name`, userID, now)
}

// ListRevokedPermissionIDs returns the ids of permissions with a REVOKE
// override for the user.
func (r *Repository) ListRevokedPermissionIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT permission_id FROM user_permissions WHERE user_id = $1 AND type = 'REVOKE'`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// InsertOverride appends an override row and returns it with id and
// created_at filled in.
func (r *Repository) InsertOverride(ctx context.Context, o Override) (Override, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO user_permissions (user_id, permission_id, type, reason, expires_at, granted_by)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		 RETURNING id, created_at`,
		o.UserID, o.PermissionID, string(o.Type), o.Reason, o.ExpiresAt, o.GrantedBy).
		Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return Override{}, err
	}
	return o, nil
}

// DeleteOverrides removes every override row for the pair and reports how
// many rows went away.
func (r *Repository) DeleteOverrides(ctx context.Context, userID, permissionID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM user_permissions WHERE user_id = $1 AND permission_id = $2`, userID, permissionID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ReplaceRolePermissions swaps the whole baseline set for a role inside one
// transaction, so readers never observe the transient empty set between
// delete and re-insert.
func (r *Repository) ReplaceRolePermissions(ctx context.Context, role Role, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role = $1`, string(role)); err != nil {
			return err
		}
		for _, id := range permissionIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role, permission_id) VALUES ($1, $2)`, string(role), id); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertPermissions bulk-upserts catalog entries by unique name.
func (r *Repository) UpsertPermissions(ctx context.Context, perms []Permission) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, p := range perms {
			if _, err := tx.Exec(ctx,
				`INSERT INTO permissions (name, module, feature, action, display_name, category, is_active)
				 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
				 ON CONFLICT (name) DO UPDATE SET
					module = EXCLUDED.module,
					feature = EXCLUDED.feature,
					action = EXCLUDED.action,
					display_name = EXCLUDED.display_name,
					category = EXCLUDED.category,
					is_active = EXCLUDED.is_active`,
				p.Name, p.Module, p.Feature, p.Action, p.DisplayName, p.Category, p.IsActive); err != nil {
				return err
			}
		}
		return nil
	})
}
