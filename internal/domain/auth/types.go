package auth

// Package auth contains domain-level types for identities, roles and client sessions.
// It is pure and free of framework/adapter concerns.

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	RoleManager   Role = "manager"
	RoleFarmStaff Role = "farm_staff"
	RoleSaleStaff Role = "sale_staff"
	RoleCustomer  Role = "customer"
	RoleGuest     Role = "guest"
)

// IsValid reports whether r is one of the closed set of roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleManager, RoleFarmStaff, RoleSaleStaff, RoleCustomer, RoleGuest:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// AllRoles returns every role, highest privilege first.
func AllRoles() []Role {
	return []Role{RoleManager, RoleFarmStaff, RoleSaleStaff, RoleCustomer, RoleGuest}
}

// Identity represents the authenticated principal.
// DisplayName and Avatar are optional; nil means absent.
type Identity struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Username    string  `json:"username"`
	Role        Role    `json:"role"`
	DisplayName *string `json:"displayName,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
}

// Clone returns a deep copy so callers never share optional field pointers with the store.
func (i Identity) Clone() Identity {
	out := i
	if i.DisplayName != nil {
		v := *i.DisplayName
		out.DisplayName = &v
	}
	if i.Avatar != nil {
		v := *i.Avatar
		out.Avatar = &v
	}
	return out
}

// IdentityPatch carries a partial update for an Identity. Nil fields are left untouched.
type IdentityPatch struct {
	ID          *string
	Email       *string
	Username    *string
	Role        *Role
	DisplayName *string
	Avatar      *string
}

// Apply shallow-merges the patch into a copy of id and returns it.
func (p IdentityPatch) Apply(id Identity) Identity {
	out := id.Clone()
	if p.ID != nil {
		out.ID = *p.ID
	}
	if p.Email != nil {
		out.Email = *p.Email
	}
	if p.Username != nil {
		out.Username = *p.Username
	}
	if p.Role != nil {
		out.Role = *p.Role
	}
	if p.DisplayName != nil {
		v := *p.DisplayName
		out.DisplayName = &v
	}
	if p.Avatar != nil {
		v := *p.Avatar
		out.Avatar = &v
	}
	return out
}

// Snapshot is the durable shape of a client session.
// The loading flag is transient and deliberately absent.
type Snapshot struct {
	Identity        *Identity `json:"identity"`
	IsAuthenticated bool      `json:"isAuthenticated"`
}

// Coherent reports whether the snapshot satisfies IsAuthenticated iff Identity is present.
func (s Snapshot) Coherent() bool {
	return s.IsAuthenticated == (s.Identity != nil)
}

// SessionState is the read model of the in-memory session.
type SessionState struct {
	Identity        *Identity
	IsAuthenticated bool
	IsLoading       bool
}

// Role returns the session role, or RoleGuest when unauthenticated.
func (s SessionState) Role() Role {
	if !s.IsAuthenticated || s.Identity == nil {
		return RoleGuest
	}
	return s.Identity.Role
}

// Side-channel cookie names shared by the session service and the routing guard.
const (
	RoleCookie         = "user-role"
	AccessTokenCookie  = "access-token"
	RefreshTokenCookie = "refresh-token"

	// CookieMaxAge is one day, in seconds.
	CookieMaxAge = 86400
)
