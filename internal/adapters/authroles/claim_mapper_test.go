package authroles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/identity-session/internal/domain/auth"
)

func TestClaimRoleMapper_Defaults(t *testing.T) {
	m, err := NewClaimRoleMapper(ClaimRoleMapperOptions{})
	require.NoError(t, err)
	assert.Len(t, m.Paths(), 3)

	uri := "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
	tests := []struct {
		name   string
		claims domainauth.Claims
		want   domainauth.Role
	}{
		{"provider claim", domainauth.Claims{"Role": "Manager"}, domainauth.RoleManager},
		{"uri claim", domainauth.Claims{uri: "FarmStaff"}, domainauth.RoleFarmStaff},
		{"plain claim", domainauth.Claims{"role": "SaleStaff"}, domainauth.RoleSaleStaff},
		{"priority", domainauth.Claims{"Role": "Customer", "role": "Manager"}, domainauth.RoleCustomer},
		{"array claim", domainauth.Claims{uri: []any{"", "Customer"}}, domainauth.RoleCustomer},
		{"unknown role", domainauth.Claims{"role": "banana"}, domainauth.RoleGuest},
		{"absent", domainauth.Claims{"sub": "u"}, domainauth.RoleGuest},
		{"nil claims", nil, domainauth.RoleGuest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Map(tt.claims))
		})
	}
}

func TestClaimRoleMapper_AgreesWithDomainLookup(t *testing.T) {
	m, err := NewClaimRoleMapper(ClaimRoleMapperOptions{})
	require.NoError(t, err)

	for _, claims := range []domainauth.Claims{
		{"Role": "Manager"},
		{"role": "cust"},
		{"email": "x@example.com"},
	} {
		assert.Equal(t, domainauth.RawRoleClaim(claims), m.RawRole(claims))
	}
}

func TestClaimRoleMapper_NestedPaths(t *testing.T) {
	m, err := NewClaimRoleMapper(ClaimRoleMapperOptions{
		Paths: []string{"realm_access.roles[0]", "role"},
	})
	require.NoError(t, err)

	claims := domainauth.Claims{
		"realm_access": map[string]any{"roles": []any{"farm-staff", "offline_access"}},
		"role":         "Customer",
	}
	assert.Equal(t, domainauth.RoleFarmStaff, m.Map(claims))
	assert.Equal(t, domainauth.RoleCustomer, m.Map(domainauth.Claims{"role": "Customer"}))
}

func TestNewClaimRoleMapper_InvalidPath(t *testing.T) {
	_, err := NewClaimRoleMapper(ClaimRoleMapperOptions{Paths: []string{"role", "roles[?"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roles[?")
}

func TestNewClaimRoleMapper_BlankPaths(t *testing.T) {
	_, err := NewClaimRoleMapper(ClaimRoleMapperOptions{Paths: []string{" ", ""}})
	require.ErrorIs(t, err, ErrNoClaimPaths)
}
