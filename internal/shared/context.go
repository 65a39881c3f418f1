package shared

import "context"

// Principal describes the authenticated actor attached to a request.
type Principal struct {
	UserID   string
	Username string
	Email    string
	Roles    []string
}

// HasRole reports whether the principal carries the given role name.
func (p *Principal) HasRole(name string) bool {
	if p == nil {
		return false
	}
	for _, role := range p.Roles {
		if role == name {
			return true
		}
	}
	return false
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
