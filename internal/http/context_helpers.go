package httpx

import (
	"context"

	domainauth "github.com/target/identity-session/internal/domain/auth"
)

// roleKey is an unexported context key type to avoid collisions across packages.
type roleKey struct{}

// SetRoleInContext returns a child context that carries the role the guard authorized.
func SetRoleInContext(ctx context.Context, role domainauth.Role) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// RoleFromContext returns the role set by RouteGuard, or RoleGuest when none is present.
func RoleFromContext(ctx context.Context) domainauth.Role {
	if role, ok := ctx.Value(roleKey{}).(domainauth.Role); ok && role.IsValid() {
		return role
	}
	return domainauth.RoleGuest
}

// IsGuestUser reports whether the current request context carries no authenticated role.
func IsGuestUser(ctx context.Context) bool {
	return RoleFromContext(ctx) == domainauth.RoleGuest
}
