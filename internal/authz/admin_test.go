package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munigestion/munigestion/internal/shared"
)

func TestGrantInsertsOverride(t *testing.T) {
	store := newMockStore()
	r := newTestResolver(store)

	expires := testTime.Add(48 * time.Hour)
	created, err := r.Grant(context.Background(), GrantInput{
		UserID:       7,
		PermissionID: 3,
		GrantedBy:    1,
		Reason:       "cobertura de vacaciones",
		ExpiresAt:    &expires,
	})
	require.NoError(t, err)
	assert.Equal(t, OverrideGrant, created.Type)
	assert.Equal(t, int64(7), created.UserID)
	require.NotNil(t, created.ExpiresAt)
	assert.Equal(t, expires, *created.ExpiresAt)

	require.Len(t, store.insertedOverrides, 1)
	assert.Equal(t, "cobertura de vacaciones", store.insertedOverrides[0].Reason)
}

func TestRevokeInsertsOverrideWithoutExpiry(t *testing.T) {
	store := newMockStore()
	r := newTestResolver(store)

	created, err := r.Revoke(context.Background(), RevokeInput{
		UserID:       7,
		PermissionID: 3,
		RevokedBy:    1,
		Reason:       "investigación interna",
	})
	require.NoError(t, err)
	assert.Equal(t, OverrideRevoke, created.Type)
	assert.Nil(t, created.ExpiresAt)
}

func TestGrantThenRevokeFlipsDecision(t *testing.T) {
	store := newMockStore()
	store.subjects[7] = Subject{ID: 7, Role: RoleEmployee, IsActive: true}
	perm := store.addPermission(Permission{Name: "finanzas.presupuestos.exportar", Module: "finanzas", IsActive: true})
	r := newTestResolver(store)
	ctx := context.Background()

	assert.False(t, r.HasPermission(ctx, 7, perm.Name))

	_, err := r.Grant(ctx, GrantInput{UserID: 7, PermissionID: perm.ID, GrantedBy: 1})
	require.NoError(t, err)
	assert.True(t, r.HasPermission(ctx, 7, perm.Name))

	_, err = r.Revoke(ctx, RevokeInput{UserID: 7, PermissionID: perm.ID, RevokedBy: 1})
	require.NoError(t, err)
	assert.False(t, r.HasPermission(ctx, 7, perm.Name), "revoke wins even with the earlier grant in place")
}

func TestRemoveOverrideClearsWholePairHistory(t *testing.T) {
	store := newMockStore()
	store.subjects[7] = Subject{ID: 7, Role: RoleEmployee, IsActive: true}
	perm := store.addPermission(Permission{Name: "activos.bajas.aprobar", Module: "activos", IsActive: true})
	store.addOverride(Override{UserID: 7, PermissionID: perm.ID, Type: OverrideGrant})
	store.addOverride(Override{UserID: 7, PermissionID: perm.ID, Type: OverrideRevoke})

	r := newTestResolver(store)
	require.NoError(t, r.RemoveOverride(context.Background(), 7, perm.ID))
	assert.Equal(t, int64(2), store.deletedCount)
	assert.False(t, r.HasPermission(context.Background(), 7, perm.Name), "back to baseline after removal")
}

func TestRemoveOverrideNotFound(t *testing.T) {
	store := newMockStore()
	r := newTestResolver(store)
	err := r.RemoveOverride(context.Background(), 7, 3)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSyncRolePermissionsReplacesBaseline(t *testing.T) {
	store := newMockStore()
	store.subjects[1] = Subject{ID: 1, Role: RoleEmployee, IsActive: true}
	old := store.addPermission(Permission{Name: "rrhh.empleados.ver", Module: "rrhh", IsActive: true})
	next := store.addPermission(Permission{Name: "participacion.solicitudes.ver", Module: "participacion", IsActive: true})
	store.allowRole(RoleEmployee, old.ID)

	r := newTestResolver(store)
	ctx := context.Background()
	require.True(t, r.HasPermission(ctx, 1, old.Name))

	require.NoError(t, r.SyncRolePermissions(ctx, RoleEmployee, []int64{next.ID}))
	assert.False(t, r.HasPermission(ctx, 1, old.Name), "sync removes permissions absent from the new set")
	assert.True(t, r.HasPermission(ctx, 1, next.Name))
}

func TestSyncRolePermissionsRejectsUnknownRole(t *testing.T) {
	r := newTestResolver(newMockStore())
	err := r.SyncRolePermissions(context.Background(), Role("MAYOR"), []int64{1})
	assert.Error(t, err)
}

func TestSyncRolePermissionsDoesNotTouchOverrides(t *testing.T) {
	store := newMockStore()
	store.subjects[1] = Subject{ID: 1, Role: RoleEmployee, IsActive: true}
	perm := store.addPermission(Permission{Name: "tributos.contribuyentes.ver", Module: "tributos", IsActive: true})
	store.addOverride(Override{UserID: 1, PermissionID: perm.ID, Type: OverrideGrant})

	r := newTestResolver(store)
	ctx := context.Background()
	require.NoError(t, r.SyncRolePermissions(ctx, RoleEmployee, nil))
	assert.True(t, r.HasPermission(ctx, 1, perm.Name), "user override survives a role sync")
}

func TestEnsurePermissionsValidatesNames(t *testing.T) {
	store := newMockStore()
	r := newTestResolver(store)

	err := r.EnsurePermissions(context.Background(), []Permission{{Name: "finanzas..ver"}})
	assert.Error(t, err)
	assert.Empty(t, store.upserted)

	err = r.EnsurePermissions(context.Background(), []Permission{{Name: "finanzas.cajas_chicas.ver", Module: "finanzas", IsActive: true}})
	require.NoError(t, err)
	assert.Len(t, store.upserted, 1)
}

func TestAdminMutationsPropagateStoreErrors(t *testing.T) {
	boom := errors.New("deadlock detected")

	store := newMockStore()
	store.failOn["InsertOverride"] = boom
	r := newTestResolver(store)
	_, err := r.Grant(context.Background(), GrantInput{UserID: 1, PermissionID: 2, GrantedBy: 3})
	assert.ErrorIs(t, err, boom)
	_, err = r.Revoke(context.Background(), RevokeInput{UserID: 1, PermissionID: 2, RevokedBy: 3})
	assert.ErrorIs(t, err, boom)

	store = newMockStore()
	store.failOn["ReplaceRolePermissions"] = boom
	r = newTestResolver(store)
	assert.ErrorIs(t, r.SyncRolePermissions(context.Background(), RoleAdmin, nil), boom)
}
