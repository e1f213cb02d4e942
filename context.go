package authcore

import "context"

type contextKey int

const (
	clientIPKey contextKey = iota
	identityKey
)

// WithClientIP attaches the caller's IP address to the context. The
// engine uses it for throttling and event attribution; it is never
// trusted for authorization.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext returns the IP set by [WithClientIP], or "".
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// WithIdentity attaches a resolved identity to the context. The HTTP
// middleware does this after a successful guard pass.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity set by [WithIdentity]. The
// second return is false on anonymous requests.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}
