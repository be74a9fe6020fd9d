package auth

import (
	"slices"
	"sort"
	"strings"
)

// RoutePermissions maps route-path prefixes to the roles allowed under them.
// A value is immutable once constructed; paths that match no prefix are allowed.
type RoutePermissions struct {
	entries []routeEntry // sorted longest prefix first
}

type routeEntry struct {
	prefix string
	roles  []Role
}

// NewRoutePermissions builds a permission table from prefix → roles.
// Prefixes are normalised to a leading slash without a trailing one.
func NewRoutePermissions(table map[string][]Role) RoutePermissions {
	entries := make([]routeEntry, 0, len(table))
	for prefix, roles := range table {
		entries = append(entries, routeEntry{
			prefix: normalizePath(prefix),
			roles:  slices.Clone(roles),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].prefix) != len(entries[j].prefix) {
			return len(entries[i].prefix) > len(entries[j].prefix)
		}
		return entries[i].prefix < entries[j].prefix
	})
	return RoutePermissions{entries: entries}
}

// DefaultRoutePermissions returns the application's static route table.
func DefaultRoutePermissions() RoutePermissions {
	return NewRoutePermissions(map[string][]Role{
		"/manager":  {RoleManager, RoleFarmStaff},
		"/customer": {RoleCustomer},
		"/sale":     {RoleSaleStaff},
	})
}

// Lookup returns the roles of the longest prefix matching path.
func (p RoutePermissions) Lookup(path string) ([]Role, bool) {
	path = normalizePath(path)
	for _, e := range p.entries {
		if matchesPrefix(path, e.prefix) {
			return slices.Clone(e.roles), true
		}
	}
	return nil, false
}

// Allows reports whether role may access path. Unmatched paths are allowed.
func (p RoutePermissions) Allows(role Role, path string) bool {
	roles, ok := p.Lookup(path)
	if !ok {
		return true
	}
	return slices.Contains(roles, role)
}

// Prefixes returns the configured prefixes, longest first.
func (p RoutePermissions) Prefixes() []string {
	out := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e.prefix)
	}
	return out
}

// matchesPrefix matches on path segment boundaries so "/sale" does not cover "/salesroom".
func matchesPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func normalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
