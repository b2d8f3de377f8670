package shared

import (
	"context"
	"time"
)

// Identity describes the authenticated actor attached to a request.
type Identity struct {
	UserID      int64
	Role        string
	TokenID     string
	TokenExpiry time.Time
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
