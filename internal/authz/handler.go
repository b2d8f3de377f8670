package authz

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/munigestion/munigestion/internal/platform/httpx"
	"github.com/munigestion/munigestion/internal/shared"
)

// Handler exposes the permission administration endpoints.
type Handler struct {
	logger   *slog.Logger
	resolver *Resolver
	guard    Middleware
	audit    *shared.AuditLogger
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, resolver *Resolver, guard Middleware, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:   logger,
		resolver: resolver,
		guard:    guard,
		audit:    audit,
		validate: validator.New(),
	}
}

// MountRoutes registers the catalog, role and self-service routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me/permissions", h.myPermissions)
	r.With(h.guard.RequireModule(ModuleAdmin)).Get("/permissions", h.listCatalog)
	r.Route("/roles/{role}/permissions", func(r chi.Router) {
		r.With(h.guard.RequireModule(ModuleAdmin)).Get("/", h.rolePermissions)
		r.With(h.guard.Require(PermAdminRolesSincronizar)).Put("/", h.syncRolePermissions)
	})
}

// MountUserPermissionRoutes registers the per-user override routes; the
// parent router provides the {id} parameter.
func (h *Handler) MountUserPermissionRoutes(r chi.Router) {
	r.Use(h.guard.Require(PermAdminPermisosGestionar))
	r.Get("/", h.userPermissions)
	r.Post("/grant", h.grant)
	r.Post("/revoke", h.revoke)
	r.Delete("/{permissionID}", h.removeOverride)
}

type permissionResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Module      string `json:"module"`
	Feature     string `json:"feature,omitempty"`
	Action      string `json:"action"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	IsActive    bool   `json:"is_active"`
}

type overrideResponse struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	PermissionID int64      `json:"permission_id"`
	Type         string     `json:"type"`
	Reason       string     `json:"reason,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	GrantedBy    int64      `json:"granted_by"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toPermissionResponses(perms []Permission) []permissionResponse {
	out := make([]permissionResponse, len(perms))
	for i, p := range perms {
		out[i] = permissionResponse{
			ID:          p.ID,
			Name:        p.Name,
			Module:      p.Module,
			Feature:     p.Feature,
			Action:      p.Action,
			DisplayName: p.DisplayName,
			Category:    p.Category,
			IsActive:    p.IsActive,
		}
	}
	return out
}

func toOverrideResponse(o Override) overrideResponse {
	return overrideResponse{
		ID:           o.ID,
		UserID:       o.UserID,
		PermissionID: o.PermissionID,
		Type:         string(o.Type),
		Reason:       o.Reason,
		ExpiresAt:    o.ExpiresAt,
		GrantedBy:    o.GrantedBy,
		CreatedAt:    o.CreatedAt,
	}
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	perms := h.resolver.UserPermissions(r.Context(), identity.UserID)
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (h *Handler) listCatalog(w http.ResponseWriter, r *http.Request) {
	perms, err := h.resolver.Catalog(r.Context())
	if err != nil {
		h.logger.Error("list catalog", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": toPermissionResponses(perms)})
}

func (h *Handler) rolePermissions(w http.ResponseWriter, r *http.Request) {
	role := Role(chi.URLParam(r, "role"))
	if !role.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role")
		return
	}
	perms, err := h.resolver.RolePermissions(r.Context(), role)
	if err != nil {
		h.logger.Error("list role permissions", slog.String("role", string(role)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":        string(role),
		"permissions": toPermissionResponses(perms),
	})
}

type syncRoleForm struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"dive,gt=0"`
}

func (h *Handler) syncRolePermissions(w http.ResponseWriter, r *http.Request) {
	role := Role(chi.URLParam(r, "role"))
	if !role.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role")
		return
	}
	var form syncRoleForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.resolver.SyncRolePermissions(r.Context(), role, form.PermissionIDs); err != nil {
		h.logger.Error("sync role permissions", slog.String("role", string(role)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.recordAudit(r, shared.AuditRoleSynced, "role", string(role), map[string]any{
		"permission_ids": form.PermissionIDs,
	})
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":           string(role),
		"permission_ids": form.PermissionIDs,
	})
}

func (h *Handler) userPermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	perms := h.resolver.UserPermissions(r.Context(), userID)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"permissions": perms,
	})
}

type grantForm struct {
	PermissionID int64      `json:"permission_id" validate:"required,gt=0"`
	Reason       string     `json:"reason" validate:"max=500"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	var form grantForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if form.ExpiresAt != nil && !form.ExpiresAt.After(time.Now()) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "expires_at must be in the future")
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	override, err := h.resolver.Grant(r.Context(), GrantInput{
		UserID:       userID,
		PermissionID: form.PermissionID,
		GrantedBy:    identity.UserID,
		Reason:       form.Reason,
		ExpiresAt:    form.ExpiresAt,
	})
	if err != nil {
		h.logger.Error("grant permission", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.recordAudit(r, shared.AuditPermissionGranted, "user", strconv.FormatInt(userID, 10), map[string]any{
		"permission_id": form.PermissionID,
		"reason":        form.Reason,
		"expires_at":    form.ExpiresAt,
	})
	httpx.JSON(w, http.StatusCreated, toOverrideResponse(override))
}

type revokeForm struct {
	PermissionID int64  `json:"permission_id" validate:"required,gt=0"`
	Reason       string `json:"reason" validate:"max=500"`
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	var form revokeForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	override, err := h.resolver.Revoke(r.Context(), RevokeInput{
		UserID:       userID,
		PermissionID: form.PermissionID,
		RevokedBy:    identity.UserID,
		Reason:       form.Reason,
	})
	if err != nil {
		h.logger.Error("revoke permission", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.recordAudit(r, shared.AuditPermissionRevoked, "user", strconv.FormatInt(userID, 10), map[string]any{
		"permission_id": form.PermissionID,
		"reason":        form.Reason,
	})
	httpx.JSON(w, http.StatusCreated, toOverrideResponse(override))
}

func (h *Handler) removeOverride(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	permissionID, err := strconv.ParseInt(chi.URLParam(r, "permissionID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid permission id")
		return
	}
	if err := h.resolver.RemoveOverride(r.Context(), userID, permissionID); err != nil {
		h.logger.Error("remove override", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.recordAudit(r, shared.AuditOverrideRemoved, "user", strconv.FormatInt(userID, 10), map[string]any{
		"permission_id": permissionID,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recordAudit(r *http.Request, action, entity, entityID string, meta map[string]any) {
	if h.audit == nil {
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  identity.UserID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil {
		h.logger.Error("record audit", slog.String("action", action), slog.Any("error", err))
	}
}
