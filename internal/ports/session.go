// Package ports defines interfaces (hexagonal ports) for session-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.
package ports

import (
	"context"
	"errors"
	"net/http"

	domainauth "github.com/target/identity-session/internal/domain/auth"
)

// ErrNoSnapshot is returned by SnapshotStore.Load when nothing has been persisted yet.
var ErrNoSnapshot = errors.New("no persisted session snapshot")

// LoginRequest carries the credentials for a password login.
type LoginRequest struct {
	Email    string
	Password string
}

// LoginResult is the authority's answer to a login attempt.
// When RequiresOTP is set the credentials were accepted but no tokens were issued yet.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	RequiresOTP  bool
	Message      string
}

// RefreshRequest exchanges a refresh credential for a new access credential.
type RefreshRequest struct {
	AccessToken  string
	RefreshToken string
}

// RefreshResult holds the rotated credentials. RefreshToken may be empty when the
// authority does not rotate refresh credentials.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// RevokeResult is the inner result of a revocation call.
type RevokeResult struct {
	IsSuccess bool `json:"isSuccess"`
}

// RevokeResponse is the outer envelope of a revocation call.
type RevokeResponse struct {
	IsSuccess bool          `json:"isSuccess"`
	Message   string        `json:"message,omitempty"`
	Result    *RevokeResult `json:"result"`
}

// Succeeded reports whether both the envelope and the inner result signal success.
func (r RevokeResponse) Succeeded() bool {
	return r.IsSuccess && r.Result != nil && r.Result.IsSuccess
}

// SessionGateway talks to the remote authority that issues and revokes credentials.
type SessionGateway interface {
	Login(ctx context.Context, req LoginRequest) (LoginResult, error)
	Refresh(ctx context.Context, req RefreshRequest) (RefreshResult, error)
	RevokeRefreshCredential(ctx context.Context, refreshToken string) (RevokeResponse, error)
}

// SnapshotStore persists the session snapshot under a fixed namespace.
type SnapshotStore interface {
	// Load returns ErrNoSnapshot when nothing has been saved.
	Load(ctx context.Context) (domainauth.Snapshot, error)
	Save(ctx context.Context, snap domainauth.Snapshot) error
	Clear(ctx context.Context) error
}

// CookieStore is the side-channel cookie surface shared with the routing guard.
type CookieStore interface {
	Set(cookie *http.Cookie) error
	Get(name string) (string, bool)
	Delete(name string) error
}

// CredentialBinder attaches the bearer credential to outbound requests.
// Both methods are idempotent.
type CredentialBinder interface {
	Bind(token string)
	Unbind()
}

// RoleMapper derives the application role from decoded credential claims.
type RoleMapper interface {
	Map(claims domainauth.Claims) domainauth.Role
}
