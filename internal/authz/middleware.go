package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/munigestion/munigestion/internal/observability"
	"github.com/munigestion/munigestion/internal/platform/httpx"
	"github.com/munigestion/munigestion/internal/shared"
)

// Middleware wires capability guards for HTTP routes. Every denial for an
// authenticated user is logged and written to the audit trail; the client
// only ever sees a generic forbidden response.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
	Audit    *shared.AuditLogger
	Metrics  *observability.Metrics
}

// Require ensures the current user holds the named permission.
func (m Middleware) Require(name string) func(http.Handler) http.Handler {
	return m.guard(name, func(ctx context.Context, userID int64) bool {
		return m.Resolver.HasPermission(ctx, userID, name)
	})
}

// RequireAny ensures the current user holds at least one of the
// "module:action" pairs.
func (m Middleware) RequireAny(pairs ...string) func(http.Handler) http.Handler {
	label := strings.Join(pairs, ",")
	return m.guard(label, func(ctx context.Context, userID int64) bool {
		return m.Resolver.HasAny(ctx, userID, pairs)
	})
}

// RequireAll ensures the current user holds every listed "module:action"
// pair.
func (m Middleware) RequireAll(pairs ...string) func(http.Handler) http.Handler {
	label := strings.Join(pairs, "+")
	return m.guard(label, func(ctx context.Context, userID int64) bool {
		return m.Resolver.HasAll(ctx, userID, pairs)
	})
}

// RequireModule ensures module-level visibility (read or manage).
func (m Middleware) RequireModule(module string) func(http.Handler) http.Handler {
	return m.guard(module, func(ctx context.Context, userID int64) bool {
		return m.Resolver.CanAccessModule(ctx, userID, module)
	})
}

func (m Middleware) guard(target string, allowed func(context.Context, int64) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			if allowed(r.Context(), identity.UserID) {
				m.Metrics.ObserveDecision(true)
				next.ServeHTTP(w, r)
				return
			}
			m.deny(r, identity, target)
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		})
	}
}

func (m Middleware) deny(r *http.Request, identity shared.Identity, target string) {
	m.Metrics.ObserveDecision(false)
	if m.Logger != nil {
		m.Logger.Warn("authorization denied",
			slog.Int64("user_id", identity.UserID),
			slog.String("role", identity.Role),
			slog.String("required", target),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path))
	}
	if m.Audit == nil {
		return
	}
	err := m.Audit.Record(r.Context(), shared.AuditLog{
		ActorID:  identity.UserID,
		Action:   shared.AuditAccessDenied,
		Entity:   "route",
		EntityID: r.URL.Path,
		Meta: map[string]any{
			"required": target,
			"role":     identity.Role,
			"method":   r.Method,
		},
	})
	if err != nil && m.Logger != nil {
		m.Logger.Error("record denial", slog.Any("error", err))
	}
}
