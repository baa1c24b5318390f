package http

import (
	"context"

	"assettracker-backend/internal/domain"
)

type identityKey struct{}

// Identity is the authenticated caller placed in the request context by the auth middleware.
type Identity struct {
	UserID string
	Role   domain.Role
}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller set by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
