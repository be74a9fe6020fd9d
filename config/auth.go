package config

import (
	"fmt"
	"strings"
	"time"
)

// GatewayMode selects the remote authority implementation.
type GatewayMode string

const (
	// GatewayModeREST talks to the JSON authority under /api/auth.
	GatewayModeREST GatewayMode = "rest"
	// GatewayModeOIDC talks to an OpenID Connect provider.
	GatewayModeOIDC GatewayMode = "oidc"
)

// UnmarshalText implements encoding.TextUnmarshaler for GatewayMode.
func (g *GatewayMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "rest", "oidc":
		*g = GatewayMode(v)
		return nil
	default:
		return fmt.Errorf("invalid GatewayMode: %q (valid options: rest, oidc)", v)
	}
}

// OIDCConfig contains OpenID Connect provider configuration.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Scope        string `env:"SCOPE"          envDefault:"openid profile email offline_access"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	// RevocationURL overrides the revocation endpoint advertised by discovery.
	RevocationURL string `env:"REVOCATION_URL"`
	// CredentialSource is access_token or id_token.
	CredentialSource string `env:"CREDENTIAL_SOURCE" envDefault:"access_token"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Gateway determines which remote authority to use.
	Gateway GatewayMode `env:"AUTH_GATEWAY" envDefault:"rest"`

	// APIBaseURL is the JSON authority root (used when Gateway=rest).
	APIBaseURL string `env:"AUTH_API_BASE_URL" envDefault:"http://localhost:5000"`

	// OIDC configuration (used when Gateway=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// HTTPTimeout bounds every call made through the shared client.
	HTTPTimeout time.Duration `env:"AUTH_HTTP_TIMEOUT" envDefault:"15s"`

	// SignOutTimeout bounds the revocation made for a forced logout.
	SignOutTimeout time.Duration `env:"AUTH_SIGNOUT_TIMEOUT" envDefault:"10s"`

	// CookieURL scopes the side-channel cookies.
	CookieURL string `env:"AUTH_COOKIE_URL" envDefault:"http://localhost/"`

	// CookieFile persists side-channel cookies between runs. Empty keeps them in memory.
	CookieFile string `env:"AUTH_COOKIE_FILE"`

	// Namespace keys the persisted session snapshot.
	Namespace string `env:"AUTH_STORAGE_NAMESPACE" envDefault:"auth-storage"`

	// RoleClaimPaths are JMESPath expressions tried in order to find the role claim.
	// Empty uses the built-in claim keys.
	RoleClaimPaths []string `env:"AUTH_ROLE_CLAIM_PATHS" envSeparator:";"`
}

// Sanitize normalises auth configuration values.
func (c *AuthConfig) Sanitize() {
	if c.Gateway == "" {
		c.Gateway = GatewayModeREST
	}
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	if c.SignOutTimeout <= 0 {
		c.SignOutTimeout = 10 * time.Second
	}
	c.CookieURL = strings.TrimSpace(c.CookieURL)
	if c.CookieURL == "" {
		c.CookieURL = "http://localhost/"
	}
	c.CookieFile = strings.TrimSpace(c.CookieFile)
	c.Namespace = strings.TrimSpace(c.Namespace)
	if c.Namespace == "" {
		c.Namespace = "auth-storage"
	}

	paths := make([]string, 0, len(c.RoleClaimPaths))
	for _, p := range c.RoleClaimPaths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		paths = nil
	}
	c.RoleClaimPaths = paths

	c.OIDC.CredentialSource = strings.ToLower(strings.TrimSpace(c.OIDC.CredentialSource))
	if c.OIDC.CredentialSource == "" {
		c.OIDC.CredentialSource = "access_token"
	}
}
