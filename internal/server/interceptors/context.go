package interceptors

import "context"

type contextKey struct{ name string }

var identityIDKey = contextKey{"identity_id"}

// WithIdentity returns a context with the authenticated identity id set.
// Handlers read it via GetIdentityID.
func WithIdentity(ctx context.Context, identityID string) context.Context {
	return context.WithValue(ctx, identityIDKey, identityID)
}

// GetIdentityID returns the identity id from context and true if set; otherwise "", false.
func GetIdentityID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(identityIDKey).(string)
	return v, ok
}
