package authz

import (
	"fmt"
	"strings"
	"time"
)

// Role is the fixed system-wide role carried by every user account.
type Role string

const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleAdmin       Role = "ADMIN"
	RoleDirector    Role = "DIRECTOR"
	RoleCoordinator Role = "COORDINATOR"
	RoleEmployee    Role = "EMPLOYEE"
	RoleAuditor     Role = "AUDITOR"
)

// Roles lists every assignable role.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleAdmin, RoleDirector, RoleCoordinator, RoleEmployee, RoleAuditor}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleDirector, RoleCoordinator, RoleEmployee, RoleAuditor:
		return true
	}
	return false
}

// Permission is an atomic capability, identified by a globally unique dotted
// name of the form module.feature.action (feature optional).
type Permission struct {
	ID          int64
	Name        string
	Module      string
	Feature     string
	Action      string
	DisplayName string
	Category    string
	IsActive    bool
}

// OverrideType distinguishes exceptional grants from revocations.
type OverrideType string

const (
	OverrideGrant  OverrideType = "GRANT"
	OverrideRevoke OverrideType = "REVOKE"
)

// Override is a user-specific exception layered on top of role and
// custom-role permissions. Rows are append-only; superseded rows stay in
// place for audit.
type Override struct {
	ID           int64
	UserID       int64
	PermissionID int64
	Type         OverrideType
	Reason       string
	ExpiresAt    *time.Time
	GrantedBy    int64
	CreatedAt    time.Time
}

// ActiveAt reports whether the override still applies at the given instant.
// Revocations never expire.
func (o Override) ActiveAt(now time.Time) bool {
	if o.Type == OverrideRevoke {
		return true
	}
	return o.ExpiresAt == nil || o.ExpiresAt.After(now)
}

// Subject is the projection of a user account the resolver needs.
type Subject struct {
	ID       int64
	Role     Role
	IsActive bool
}

// CustomRole is an admin-defined permission bundle assignable to users
// independently of the fixed role enum.
type CustomRole struct {
	ID          int64
	Name        string
	Description string
	IsActive    bool
}

// ValidatePermissionName enforces the dotted naming convention: non-empty,
// dot-delimited, no blank segments. The set of names stays admin-extensible
// at runtime, so this is a validated string rather than a closed enum.
func ValidatePermissionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("authz: permission name required")
	}
	for _, segment := range strings.Split(name, ".") {
		if strings.TrimSpace(segment) == "" {
			return fmt.Errorf("authz: malformed permission name %q", name)
		}
	}
	return nil
}

// SplitPair parses the "module:action" form accepted by HasAny and HasAll.
func SplitPair(pair string) (string, string, error) {
	module, action, ok := strings.Cut(pair, ":")
	module = strings.TrimSpace(module)
	action = strings.TrimSpace(action)
	if !ok || module == "" || action == "" {
		return "", "", fmt.Errorf("authz: malformed permission pair %q", pair)
	}
	return module, action, nil
}
