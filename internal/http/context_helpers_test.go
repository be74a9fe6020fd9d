package httpx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	domainauth "github.com/target/identity-session/internal/domain/auth"
)

func TestRoleFromContext(t *testing.T) {
	// No role => guest
	assert.Equal(t, domainauth.RoleGuest, RoleFromContext(context.Background()))

	ctx := SetRoleInContext(context.Background(), domainauth.RoleSaleStaff)
	assert.Equal(t, domainauth.RoleSaleStaff, RoleFromContext(ctx))

	// Values outside the enumeration never leak out.
	bogus := SetRoleInContext(context.Background(), domainauth.Role("root"))
	assert.Equal(t, domainauth.RoleGuest, RoleFromContext(bogus))
}

func TestIsGuestUser(t *testing.T) {
	assert.True(t, IsGuestUser(context.Background()))
	assert.True(t, IsGuestUser(SetRoleInContext(context.Background(), domainauth.RoleGuest)))

	for _, r := range []domainauth.Role{domainauth.RoleManager, domainauth.RoleFarmStaff, domainauth.RoleCustomer} {
		assert.False(t, IsGuestUser(SetRoleInContext(context.Background(), r)), r)
	}
}
