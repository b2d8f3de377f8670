package authz

import (
	"context"
	"time"
)

// Store is the data-access boundary the resolver depends on. Find methods
// return shared.ErrNotFound when no row matches.
type Store interface {
	FindSubject(ctx context.Context, userID int64) (Subject, error)
	FindPermissionByName(ctx context.Context, name string) (Permission, error)
	// FindPermissionByModuleAction resolves the legacy (module, action) form.
	// Several permissions may share the pair across features; the lowest name
	// wins so lookups stay deterministic.
	FindPermissionByModuleAction(ctx context.Context, module, action string) (Permission, error)

	ListOverrides(ctx context.Context, userID, permissionID int64) ([]Override, error)
	RoleHasPermission(ctx context.Context, role Role, permissionID int64) (bool, error)
	CustomRoleHasPermission(ctx context.Context, userID, permissionID int64) (bool, error)

	ListActivePermissions(ctx context.Context) ([]Permission, error)
	ListRolePermissions(ctx context.Context, role Role) ([]Permission, error)
	ListCustomRolePermissions(ctx context.Context, userID int64) ([]Permission, error)
	ListGrantedPermissions(ctx context.Context, userID int64, now time.Time) ([]Permission, error)
	ListRevokedPermissionIDs(ctx context.Context, userID int64) ([]int64, error)

	InsertOverride(ctx context.Context, o Override) (Override, error)
	DeleteOverrides(ctx context.Context, userID, permissionID int64) (int64, error)
	ReplaceRolePermissions(ctx context.Context, role Role, permissionIDs []int64) error
	UpsertPermissions(ctx context.Context, perms []Permission) error
}
