package authz

// Municipal functional areas covered by the platform.
const (
	ModuleFinanzas      = "finanzas"
	ModuleRRHH          = "rrhh"
	ModuleTributos      = "tributos"
	ModuleProyectos     = "proyectos"
	ModuleFlota         = "flota"
	ModuleActivos       = "activos"
	ModuleParticipacion = "participacion"
	ModuleAdmin         = "admin"
)

// Module-level access actions. Module visibility requires read or manage,
// distinct from fine-grained feature actions.
const (
	ActionRead   = "read"
	ActionManage = "manage"
)

// Permissions referenced by route guards.
const (
	PermAdminUsuariosVer       = "admin.usuarios.ver"
	PermAdminUsuariosCrear     = "admin.usuarios.crear"
	PermAdminPermisosGestionar = "admin.permisos.gestionar"
	PermAdminRolesSincronizar  = "admin.roles.sincronizar"
)

func moduleAccess(module, displayPrefix string) []Permission {
	return []Permission{
		{Name: module + "." + ActionRead, Module: module, Action: ActionRead, DisplayName: "Ver " + displayPrefix, Category: module, IsActive: true},
		{Name: module + "." + ActionManage, Module: module, Action: ActionManage, DisplayName: "Gestionar " + displayPrefix, Category: module, IsActive: true},
	}
}

func featurePerm(module, feature, action, display string) Permission {
	return Permission{
		Name:        module + "." + feature + "." + action,
		Module:      module,
		Feature:     feature,
		Action:      action,
		DisplayName: display,
		Category:    module,
		IsActive:    true,
	}
}

// DefaultCatalog returns the seeded permission catalog for the municipal
// modules. Seeding upserts by unique name, so re-running is safe.
func DefaultCatalog() []Permission {
	var perms []Permission
	perms = append(perms, moduleAccess(ModuleFinanzas, "finanzas")...)
	perms = append(perms,
		featurePerm(ModuleFinanzas, "cajas_chicas", "ver", "Ver cajas chicas"),
		featurePerm(ModuleFinanzas, "cajas_chicas", "aprobar", "Aprobar cajas chicas"),
		featurePerm(ModuleFinanzas, "anticipos", "descontar", "Descontar anticipos"),
		featurePerm(ModuleFinanzas, "presupuestos", "exportar", "Exportar presupuestos"),
	)
	perms = append(perms, moduleAccess(ModuleRRHH, "recursos humanos")...)
	perms = append(perms,
		featurePerm(ModuleRRHH, "empleados", "ver", "Ver empleados"),
		featurePerm(ModuleRRHH, "empleados", "crear", "Crear empleados"),
		featurePerm(ModuleRRHH, "nominas", "procesar", "Procesar nóminas"),
	)
	perms = append(perms, moduleAccess(ModuleTributos, "tributos")...)
	perms = append(perms,
		featurePerm(ModuleTributos, "contribuyentes", "ver", "Ver contribuyentes"),
		featurePerm(ModuleTributos, "declaraciones", "aprobar", "Aprobar declaraciones"),
	)
	perms = append(perms, moduleAccess(ModuleProyectos, "proyectos")...)
	perms = append(perms,
		featurePerm(ModuleProyectos, "obras", "ver", "Ver obras"),
		featurePerm(ModuleProyectos, "obras", "cerrar", "Cerrar obras"),
	)
	perms = append(perms, moduleAccess(ModuleFlota, "flota vehicular")...)
	perms = append(perms,
		featurePerm(ModuleFlota, "vehiculos", "ver", "Ver vehículos"),
		featurePerm(ModuleFlota, "mantenimientos", "programar", "Programar mantenimientos"),
	)
	perms = append(perms, moduleAccess(ModuleActivos, "activos fijos")...)
	perms = append(perms,
		featurePerm(ModuleActivos, "inventario", "ver", "Ver inventario"),
		featurePerm(ModuleActivos, "bajas", "aprobar", "Aprobar bajas"),
	)
	perms = append(perms, moduleAccess(ModuleParticipacion, "participación ciudadana")...)
	perms = append(perms,
		featurePerm(ModuleParticipacion, "solicitudes", "ver", "Ver solicitudes"),
		featurePerm(ModuleParticipacion, "solicitudes", "responder", "Responder solicitudes"),
	)
	perms = append(perms, moduleAccess(ModuleAdmin, "administración")...)
	perms = append(perms,
		featurePerm(ModuleAdmin, "usuarios", "ver", "Ver usuarios"),
		featurePerm(ModuleAdmin, "usuarios", "crear", "Crear usuarios"),
		featurePerm(ModuleAdmin, "permisos", "gestionar", "Gestionar permisos"),
		featurePerm(ModuleAdmin, "roles", "sincronizar", "Sincronizar roles"),
	)
	return perms
}

// DefaultRolePermissions returns the baseline permission names synced to each
// fixed role by the seeder. SUPER_ADMIN is absent on purpose: the bypass in
// the resolver makes baseline rows for it meaningless.
func DefaultRolePermissions() map[Role][]string {
	read := func(modules ...string) []string {
		names := make([]string, 0, len(modules))
		for _, m := range modules {
			names = append(names, m+"."+ActionRead)
		}
		return names
	}
	allModules := []string{
		ModuleFinanzas, ModuleRRHH, ModuleTributos, ModuleProyectos,
		ModuleFlota, ModuleActivos, ModuleParticipacion, ModuleAdmin,
	}

	admin := read(allModules...)
	for _, m := range allModules {
		admin = append(admin, m+"."+ActionManage)
	}
	admin = append(admin, PermAdminUsuariosVer, PermAdminUsuariosCrear, PermAdminPermisosGestionar, PermAdminRolesSincronizar)

	director := read(allModules[:7]...)
	director = append(director,
		"finanzas.cajas_chicas.aprobar",
		"tributos.declaraciones.aprobar",
		"activos.bajas.aprobar",
		"proyectos.obras.cerrar",
	)

	coordinator := read(ModuleFinanzas, ModuleProyectos, ModuleFlota, ModuleParticipacion)
	coordinator = append(coordinator,
		"finanzas.cajas_chicas.ver",
		"finanzas.cajas_chicas.aprobar",
		"flota.mantenimientos.programar",
		"participacion.solicitudes.responder",
	)

	employee := read(ModuleParticipacion)
	employee = append(employee,
		"rrhh.empleados.ver",
		"participacion.solicitudes.ver",
	)

	auditor := read(allModules...)

	return map[Role][]string{
		RoleAdmin:       admin,
		RoleDirector:    director,
		RoleCoordinator: coordinator,
		RoleEmployee:    employee,
		RoleAuditor:     auditor,
	}
}
