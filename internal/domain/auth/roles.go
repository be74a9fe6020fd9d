package auth

import "strings"

// RoleClaimKeys lists the claim keys that may carry the role, in priority order:
// the provider's own claim, the standards URI claim, then the plain lowercase claim.
var RoleClaimKeys = []string{
	"Role",
	"http://schemas.microsoft.com/ws/2008/06/identity/claims/role",
	"role",
}

// DefaultRawRole is used when no role claim is present at all.
const DefaultRawRole = "Guest"

// roleFragments is checked in order; the first fragment contained in the raw value wins.
var roleFragments = []struct {
	fragment string
	role     Role
}{
	{"manager", RoleManager},
	{"farm", RoleFarmStaff},
	{"sale", RoleSaleStaff},
	{"customer", RoleCustomer},
	{"cust", RoleCustomer},
}

// MapRole maps a free-form role claim onto the closed role set.
// Matching is a case-insensitive substring test; anything unrecognised is RoleGuest.
func MapRole(raw string) Role {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return RoleGuest
	}
	for _, f := range roleFragments {
		if strings.Contains(v, f.fragment) {
			return f.role
		}
	}
	return RoleGuest
}

// RawRoleClaim returns the first role claim value found under RoleClaimKeys,
// or "Guest" when none is present.
func RawRoleClaim(c Claims) string {
	if v, ok := c.String(RoleClaimKeys...); ok {
		return v
	}
	return DefaultRawRole
}

// RoleFromClaims is RawRoleClaim followed by MapRole.
func RoleFromClaims(c Claims) Role {
	return MapRole(RawRoleClaim(c))
}
