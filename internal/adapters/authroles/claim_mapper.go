// Package authroles maps decoded credential claims to application roles.
package authroles

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/target/identity-session/internal/domain/auth"
	"github.com/target/identity-session/internal/ports"
)

// ErrNoClaimPaths indicates a mapper was configured with an empty path list.
var ErrNoClaimPaths = errors.New("at least one role claim path is required")

// DefaultClaimPaths returns the role claim keys as quoted JMESPath identifiers,
// so keys containing ':' or '/' resolve literally.
func DefaultClaimPaths() []string {
	out := make([]string, 0, len(domainauth.RoleClaimKeys))
	for _, k := range domainauth.RoleClaimKeys {
		out = append(out, strconv.Quote(k))
	}
	return out
}

type claimPath struct {
	expr     string
	compiled jmespath.JMESPath
}

// ClaimRoleMapper resolves the raw role claim through an ordered list of
// JMESPath expressions and normalizes it with domainauth.MapRole.
type ClaimRoleMapper struct {
	paths  []claimPath
	logger *slog.Logger
}

// ClaimRoleMapperOptions configures a ClaimRoleMapper.
type ClaimRoleMapperOptions struct {
	// Paths are tried in order; the first non-empty string result wins.
	// Empty uses DefaultClaimPaths.
	Paths  []string
	Logger *slog.Logger
}

// NewClaimRoleMapper compiles every path up front so bad configuration fails at startup.
func NewClaimRoleMapper(opts ClaimRoleMapperOptions) (*ClaimRoleMapper, error) {
	exprs := opts.Paths
	if len(exprs) == 0 {
		exprs = DefaultClaimPaths()
	}

	paths := make([]claimPath, 0, len(exprs))
	var errs []error
	for _, expr := range exprs {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		compiled, err := jmespath.Compile(expr)
		if err != nil {
			errs = append(errs, fmt.Errorf("role claim path %q: %w", expr, err))
			continue
		}
		paths = append(paths, claimPath{expr: expr, compiled: compiled})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrNoClaimPaths
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ClaimRoleMapper{paths: paths, logger: logger.With("component", "role_mapper")}, nil
}

// RawRole returns the first non-empty string found by the configured paths,
// or domainauth.DefaultRawRole when none match.
func (m *ClaimRoleMapper) RawRole(claims domainauth.Claims) string {
	data := map[string]any(claims)
	for _, p := range m.paths {
		v, err := p.compiled.Search(data)
		if err != nil || v == nil {
			continue
		}
		if s, ok := domainauth.StringValue(v); ok && s != "" {
			return s
		}
	}
	return domainauth.DefaultRawRole
}

// Map implements ports.RoleMapper.
func (m *ClaimRoleMapper) Map(claims domainauth.Claims) domainauth.Role {
	raw := m.RawRole(claims)
	role := domainauth.MapRole(raw)
	if role == domainauth.RoleGuest && !strings.EqualFold(strings.TrimSpace(raw), domainauth.DefaultRawRole) {
		m.logger.Debug("role claim did not match a known role; using guest", "raw_role", raw)
	}
	return role
}

// Paths returns the configured expressions in evaluation order.
func (m *ClaimRoleMapper) Paths() []string {
	out := make([]string, len(m.paths))
	for i, p := range m.paths {
		out[i] = p.expr
	}
	return out
}

var _ ports.RoleMapper = (*ClaimRoleMapper)(nil)
