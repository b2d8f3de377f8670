package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/munigestion/munigestion/internal/platform/httpx"
	"github.com/munigestion/munigestion/internal/shared"
)

// Middleware authenticates requests from a bearer token and places the
// resulting identity in the request context.
type Middleware struct {
	Tokens   *TokenManager
	Denylist *Denylist
	Logger   *slog.Logger
}

// Authenticate rejects requests without a valid, non-revoked bearer token.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		claims, err := m.Tokens.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
			return
		}
		if m.Denylist != nil {
			revoked, err := m.Denylist.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				// Fail closed when the denylist is unreachable.
				if m.Logger != nil {
					m.Logger.Error("denylist lookup", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			if revoked {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
		}
		identity := shared.Identity{
			UserID:  claims.UserID,
			Role:    claims.Role,
			TokenID: claims.ID,
		}
		if claims.ExpiresAt != nil {
			identity.TokenExpiry = claims.ExpiresAt.Time
		}
		ctx := shared.ContextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
