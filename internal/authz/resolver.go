package authz

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/munigestion/munigestion/internal/shared"
)

// Resolver answers "may user U perform capability P?" by composing role
// permissions, custom-role bundles and user-level overrides. Read paths never
// return errors: any failure, including a store outage, degrades to deny and
// is only surfaced through the logger.
type Resolver struct {
	store  Store
	logger *slog.Logger
	clock  func() time.Time
}

// NewResolver constructs a Resolver backed by the provided store.
func NewResolver(store Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// HasPermission reports whether the user may exercise the capability with the
// given dotted name.
func (r *Resolver) HasPermission(ctx context.Context, userID int64, name string) bool {
	return r.resolve(ctx, userID, name, func(ctx context.Context) (Permission, error) {
		return r.store.FindPermissionByName(ctx, name)
	})
}

// HasModuleAction is the legacy (module, action) lookup. Ambiguous pairs
// resolve to the permission with the lowest name.
func (r *Resolver) HasModuleAction(ctx context.Context, userID int64, module, action string) bool {
	return r.resolve(ctx, userID, module+"."+action, func(ctx context.Context) (Permission, error) {
		return r.store.FindPermissionByModuleAction(ctx, module, action)
	})
}

// HasAny reports whether the user holds at least one of the "module:action"
// pairs. Evaluates left to right and short-circuits on the first hit.
func (r *Resolver) HasAny(ctx context.Context, userID int64, pairs []string) bool {
	for _, pair := range pairs {
		module, action, err := SplitPair(pair)
		if err != nil {
			r.logger.Warn("skipping malformed permission pair", slog.String("pair", pair))
			continue
		}
		if r.HasModuleAction(ctx, userID, module, action) {
			return true
		}
	}
	return false
}

// HasAll reports whether the user holds every listed "module:action" pair.
// Short-circuits on the first miss.
func (r *Resolver) HasAll(ctx context.Context, userID int64, pairs []string) bool {
	for _, pair := range pairs {
		module, action, err := SplitPair(pair)
		if err != nil {
			r.logger.Warn("rejecting malformed permission pair", slog.String("pair", pair))
			return false
		}
		if !r.HasModuleAction(ctx, userID, module, action) {
			return false
		}
	}
	return true
}

// CanAccessModule reports module-level visibility: read or manage.
func (r *Resolver) CanAccessModule(ctx context.Context, userID int64, module string) bool {
	return r.HasModuleAction(ctx, userID, module, ActionRead) ||
		r.HasModuleAction(ctx, userID, module, ActionManage)
}

func (r *Resolver) resolve(ctx context.Context, userID int64, target string, lookup func(context.Context) (Permission, error)) bool {
	subject, err := r.store.FindSubject(ctx, userID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			r.logger.Error("load subject", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return false
	}
	if !subject.IsActive {
		return false
	}
	if subject.Role == RoleSuperAdmin {
		return true
	}

	perm, err := lookup(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// A guard referencing a permission that was never seeded.
			r.logger.Warn("unknown permission requested",
				slog.String("permission", target), slog.Int64("user_id", userID))
		} else {
			r.logger.Error("load permission", slog.String("permission", target), slog.Any("error", err))
		}
		return false
	}

	overrides, err := r.store.ListOverrides(ctx, userID, perm.ID)
	if err != nil {
		r.logger.Error("load overrides", slog.Int64("user_id", userID), slog.Any("error", err))
		return false
	}
	now := r.clock()
	granted := false
	for _, o := range overrides {
		// A revoke is absolute: no grant, role or custom role can shadow it,
		// regardless of insertion order.
		if o.Type == OverrideRevoke {
			return false
		}
		if o.Type == OverrideGrant && o.ActiveAt(now) {
			granted = true
		}
	}
	if granted {
		return true
	}

	ok, err := r.store.RoleHasPermission(ctx, subject.Role, perm.ID)
	if err != nil {
		r.logger.Error("check role permission", slog.String("role", string(subject.Role)), slog.Any("error", err))
		return false
	}
	if ok {
		return true
	}

	ok, err = r.store.CustomRoleHasPermission(ctx, userID, perm.ID)
	if err != nil {
		r.logger.Error("check custom role permission", slog.Int64("user_id", userID), slog.Any("error", err))
		return false
	}
	return ok
}

// UserPermissions aggregates the union of effective permissions grouped by
// module, for UI gating. Enforcement must keep going through HasPermission.
// Each active permission contributes both its dotted name and its bare
// action, so callers expecting either granularity keep working.
func (r *Resolver) UserPermissions(ctx context.Context, userID int64) map[string][]string {
	empty := map[string][]string{}

	subject, err := r.store.FindSubject(ctx, userID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			r.logger.Error("load subject", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return empty
	}
	if !subject.IsActive {
		return empty
	}

	if subject.Role == RoleSuperAdmin {
		perms, err := r.store.ListActivePermissions(ctx)
		if err != nil {
			r.logger.Error("list active permissions", slog.Any("error", err))
			return empty
		}
		return groupByModule(perms)
	}

	rolePerms, err := r.store.ListRolePermissions(ctx, subject.Role)
	if err != nil {
		r.logger.Error("list role permissions", slog.String("role", string(subject.Role)), slog.Any("error", err))
		return empty
	}
	customPerms, err := r.store.ListCustomRolePermissions(ctx, userID)
	if err != nil {
		r.logger.Error("list custom role permissions", slog.Int64("user_id", userID), slog.Any("error", err))
		return empty
	}
	grantedPerms, err := r.store.ListGrantedPermissions(ctx, userID, r.clock())
	if err != nil {
		r.logger.Error("list granted permissions", slog.Int64("user_id", userID), slog.Any("error", err))
		return empty
	}
	revokedIDs, err := r.store.ListRevokedPermissionIDs(ctx, userID)
	if err != nil {
		r.logger.Error("list revoked permissions", slog.Int64("user_id", userID), slog.Any("error", err))
		return empty
	}

	union := make(map[int64]Permission)
	for _, set := range [][]Permission{rolePerms, customPerms, grantedPerms} {
		for _, p := range set {
			union[p.ID] = p
		}
	}
	// Revocation removes the permission from the aggregate even when role or
	// custom role would otherwise grant it.
	for _, id := range revokedIDs {
		delete(union, id)
	}

	flat := make([]Permission, 0, len(union))
	for _, p := range union {
		flat = append(flat, p)
	}
	return groupByModule(flat)
}

func groupByModule(perms []Permission) map[string][]string {
	sets := make(map[string]map[string]struct{})
	for _, p := range perms {
		if !p.IsActive {
			continue
		}
		set, ok := sets[p.Module]
		if !ok {
			set = make(map[string]struct{})
			sets[p.Module] = set
		}
		if p.Name != "" {
			set[p.Name] = struct{}{}
		}
		if p.Action != "" {
			set[p.Action] = struct{}{}
		}
	}
	grouped := make(map[string][]string, len(sets))
	for module, set := range sets {
		keys := make([]string, 0, len(set))
		for key := range set {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		grouped[module] = keys
	}
	return grouped
}
