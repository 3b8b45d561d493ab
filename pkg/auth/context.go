package auth

import "context"

// contextKey is a private type for context keys.
type contextKey int

const (
	identityKey contextKey = iota
)

// WithIdentity records the identity of the caller for this call.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the caller identity recorded for this call.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
