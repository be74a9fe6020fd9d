package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapRole(t *testing.T) {
	tests := []struct {
		raw  string
		want Role
	}{
		{"Manager", RoleManager},
		{"MANAGER", RoleManager},
		{"FarmStaff", RoleFarmStaff},
		{"farm_staff", RoleFarmStaff},
		{"SaleStaff", RoleSaleStaff},
		{"sales", RoleSaleStaff},
		{"Customer", RoleCustomer},
		{"cust", RoleCustomer},
		{"  customer  ", RoleCustomer},
		{"SalesManager", RoleManager},
		{"Guest", RoleGuest},
		{"", RoleGuest},
		{"unknown", RoleGuest},
		{"banana", RoleGuest},
		{"admin", RoleGuest},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, MapRole(tt.raw))
		})
	}
}

func TestMapRole_EnumValuesRoundTrip(t *testing.T) {
	for _, r := range AllRoles() {
		assert.Equal(t, r, MapRole(string(r)))
	}
}

func TestRawRoleClaim_Priority(t *testing.T) {
	uri := "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"

	tests := []struct {
		name   string
		claims Claims
		want   string
	}{
		{"provider claim wins", Claims{"Role": "Manager", uri: "Customer", "role": "SaleStaff"}, "Manager"},
		{"uri claim before plain", Claims{uri: "Customer", "role": "SaleStaff"}, "Customer"},
		{"plain claim", Claims{"role": "SaleStaff"}, "SaleStaff"},
		{"empty provider claim skipped", Claims{"Role": "", "role": "FarmStaff"}, "FarmStaff"},
		{"array claim", Claims{uri: []any{"FarmStaff", "Customer"}}, "FarmStaff"},
		{"absent", Claims{"sub": "u"}, "Guest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RawRoleClaim(tt.claims))
		})
	}
}

func TestRoleFromClaims_AbsentIsGuest(t *testing.T) {
	assert.Equal(t, RoleGuest, RoleFromClaims(Claims{}))
	assert.Equal(t, RoleGuest, RoleFromClaims(nil))
}
