package authz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogNamesUniqueAndWellFormed(t *testing.T) {
	catalog := DefaultCatalog()
	require.NotEmpty(t, catalog)

	seen := make(map[string]bool, len(catalog))
	for _, p := range catalog {
		assert.NoError(t, ValidatePermissionName(p.Name), p.Name)
		assert.False(t, seen[p.Name], "duplicate name %s", p.Name)
		seen[p.Name] = true

		assert.True(t, p.IsActive, p.Name)
		assert.NotEmpty(t, p.Module, p.Name)
		assert.NotEmpty(t, p.DisplayName, p.Name)
		assert.True(t, strings.HasPrefix(p.Name, p.Module+"."), "name %s not under module %s", p.Name, p.Module)
	}
}

func TestDefaultCatalogHasModuleAccessPerModule(t *testing.T) {
	modules := []string{
		ModuleFinanzas, ModuleRRHH, ModuleTributos, ModuleProyectos,
		ModuleFlota, ModuleActivos, ModuleParticipacion, ModuleAdmin,
	}
	byName := make(map[string]Permission)
	for _, p := range DefaultCatalog() {
		byName[p.Name] = p
	}
	for _, m := range modules {
		assert.Contains(t, byName, m+"."+ActionRead)
		assert.Contains(t, byName, m+"."+ActionManage)
	}
}

func TestDefaultRolePermissionsReferToCatalog(t *testing.T) {
	byName := make(map[string]bool)
	for _, p := range DefaultCatalog() {
		byName[p.Name] = true
	}

	baselines := DefaultRolePermissions()
	assert.NotContains(t, baselines, RoleSuperAdmin, "super admin needs no baseline rows")

	for role, names := range baselines {
		assert.True(t, role.Valid(), string(role))
		assert.NotEmpty(t, names, string(role))
		for _, name := range names {
			assert.True(t, byName[name], "role %s references unseeded permission %s", role, name)
		}
	}
}

func TestGuardConstantsAreSeeded(t *testing.T) {
	byName := make(map[string]bool)
	for _, p := range DefaultCatalog() {
		byName[p.Name] = true
	}
	for _, name := range []string{PermAdminUsuariosVer, PermAdminUsuariosCrear, PermAdminPermisosGestionar, PermAdminRolesSincronizar} {
		assert.True(t, byName[name], name)
	}
}
