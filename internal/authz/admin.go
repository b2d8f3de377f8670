package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/munigestion/munigestion/internal/shared"
)

// GrantInput describes an exceptional user-level grant. A nil ExpiresAt means
// the grant is permanent.
type GrantInput struct {
	UserID       int64
	PermissionID int64
	GrantedBy    int64
	Reason       string
	ExpiresAt    *time.Time
}

// Administrative mutations differ from the read paths: they return errors to
// the caller instead of degrading to deny.

// Grant appends a GRANT override. Pre-existing rows for the pair are left in
// place; the resolver's precedence rules keep coexisting rows safe.
func (r *Resolver) Grant(ctx context.Context, in GrantInput) (Override, error) {
	created, err := r.store.InsertOverride(ctx, Override{
		UserID:       in.UserID,
		PermissionID: in.PermissionID,
		Type:         OverrideGrant,
		Reason:       in.Reason,
		ExpiresAt:    in.ExpiresAt,
		GrantedBy:    in.GrantedBy,
	})
	if err != nil {
		return Override{}, fmt.Errorf("authz: grant permission: %w", err)
	}
	return created, nil
}

// RevokeInput describes an exceptional user-level revocation.
type RevokeInput struct {
	UserID       int64
	PermissionID int64
	RevokedBy    int64
	Reason       string
}

// Revoke appends a REVOKE override. Revocations have no expiry and dominate
// every other permission source for the pair.
func (r *Resolver) Revoke(ctx context.Context, in RevokeInput) (Override, error) {
	created, err := r.store.InsertOverride(ctx, Override{
		UserID:       in.UserID,
		PermissionID: in.PermissionID,
		Type:         OverrideRevoke,
		Reason:       in.Reason,
		GrantedBy:    in.RevokedBy,
	})
	if err != nil {
		return Override{}, fmt.Errorf("authz: revoke permission: %w", err)
	}
	return created, nil
}

// RemoveOverride deletes every override row for the (user, permission) pair.
// The grant/revoke history may hold several rows; removing the pair clears
// them all, so the outcome does not depend on which row came first.
func (r *Resolver) RemoveOverride(ctx context.Context, userID, permissionID int64) error {
	deleted, err := r.store.DeleteOverrides(ctx, userID, permissionID)
	if err != nil {
		return fmt.Errorf("authz: remove override: %w", err)
	}
	if deleted == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SyncRolePermissions replaces the whole baseline set for a role. The store
// performs delete and re-insert inside one transaction, so concurrent checks
// never observe a half-synced set.
func (r *Resolver) SyncRolePermissions(ctx context.Context, role Role, permissionIDs []int64) error {
	if !role.Valid() {
		return fmt.Errorf("authz: unknown role %q", role)
	}
	if err := r.store.ReplaceRolePermissions(ctx, role, permissionIDs); err != nil {
		return fmt.Errorf("authz: sync role permissions: %w", err)
	}
	return nil
}

// RolePermissions returns the baseline permission set for a role.
func (r *Resolver) RolePermissions(ctx context.Context, role Role) ([]Permission, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("authz: unknown role %q", role)
	}
	return r.store.ListRolePermissions(ctx, role)
}

// Catalog lists every active permission in the system.
func (r *Resolver) Catalog(ctx context.Context) ([]Permission, error) {
	return r.store.ListActivePermissions(ctx)
}

// EnsurePermissions bulk-upserts catalog entries by unique name. Used by the
// out-of-band seeder.
func (r *Resolver) EnsurePermissions(ctx context.Context, perms []Permission) error {
	for _, p := range perms {
		if err := ValidatePermissionName(p.Name); err != nil {
			return err
		}
	}
	return r.store.UpsertPermissions(ctx, perms)
}
