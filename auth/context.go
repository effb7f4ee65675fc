package auth

import "context"

type usernameKey struct{}

// WithUsername returns a copy of ctx carrying the authenticated username.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey{}, username)
}

// UsernameFromContext returns the username stored by WithUsername.
func UsernameFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(usernameKey{}).(string)
	return u, ok && u != ""
}
