package auth

import (
	"context"

	"edu-crm/internal/scope"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated caller: identity, role and resolved
// organizational attachment.
type Principal struct {
	UserID   string
	Role     string
	RegionID string
	BranchID string
}

// Scope derives the per-request visibility scope from the principal.
func (p Principal) Scope() scope.Scope {
	return scope.Scope{
		UserID:   p.UserID,
		Role:     p.Role,
		RegionID: p.RegionID,
		BranchID: p.BranchID,
	}
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the request principal set by the middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
