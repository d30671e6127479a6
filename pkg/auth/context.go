package auth

import "context"

// principalKey is a private type for the principal context key.
type principalKey struct{}

// SetPrincipal stores the authenticated principal in the context.
func SetPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext retrieves the authenticated principal.
// Returns nil on routes that did not pass through the middleware.
func PrincipalFromContext(ctx context.Context) *Principal {
	if v, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return v
	}
	return nil
}
