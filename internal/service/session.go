package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	domainauth "github.com/target/identity-session/internal/domain/auth"
	apperrors "github.com/target/identity-session/internal/errors"
	"github.com/target/identity-session/internal/ports"
	"golang.org/x/sync/singleflight"
)

const (
	// persistTimeout bounds a single snapshot write or clear.
	persistTimeout = 5 * time.Second
	refreshKey     = "refresh"
)

var (
	// ErrCredentialRejected is returned when the authority issued a credential that cannot be decoded.
	ErrCredentialRejected = errors.New("issued credential could not be decoded")
	// ErrNoRefreshCredential is returned by Refresh when no refresh credential is stored.
	ErrNoRefreshCredential = errors.New("no refresh credential available")
)

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Gateway     ports.SessionGateway        // Required: remote authority
	Storage     ports.SnapshotStore         // Optional: durable snapshot persistence
	Cookies     ports.CookieStore           // Optional: side-channel cookies
	Binder      ports.CredentialBinder      // Optional: shared HTTP client credential
	Roles       ports.RoleMapper            // Optional: defaults to the built-in claim lookup
	Permissions domainauth.RoutePermissions // Optional: defaults to DefaultRoutePermissions
	Logger      *slog.Logger                // Optional: structured logger
}

// LoginOutcome reports how a password login ended when it did not fail.
type LoginOutcome struct {
	RequiresOTP bool
	Message     string
}

// SessionService is the single source of truth for the current client session.
//
// It keeps the in-memory identity, the persisted snapshot, the role cookie read by the
// routing guard and the bearer credential on the shared HTTP client in lock-step.
// State-mutating operations never fail; storage and cookie errors are logged and dropped.
type SessionService struct {
	gateway ports.SessionGateway
	storage ports.SnapshotStore
	cookies ports.CookieStore
	binder  ports.CredentialBinder
	roles   ports.RoleMapper
	perms   domainauth.RoutePermissions
	logger  *slog.Logger

	mu       sync.Mutex
	identity *domainauth.Identity
	loading  bool

	refreshGroup singleflight.Group
}

// NewSessionService constructs a new SessionService in the unauthenticated state.
func NewSessionService(opts SessionServiceOptions) (*SessionService, error) {
	if opts.Gateway == nil {
		return nil, errors.New("SessionGateway is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	roles := opts.Roles
	if roles == nil {
		roles = claimRoles{}
	}

	perms := opts.Permissions
	if len(perms.Prefixes()) == 0 {
		perms = domainauth.DefaultRoutePermissions()
	}

	return &SessionService{
		gateway: opts.Gateway,
		storage: opts.Storage,
		cookies: opts.Cookies,
		binder:  opts.Binder,
		roles:   roles,
		perms:   perms,
		logger:  logger.With("component", "session_service"),
	}, nil
}

// claimRoles maps roles with the fixed claim-key table.
type claimRoles struct{}

func (claimRoles) Map(c domainauth.Claims) domainauth.Role { return domainauth.RoleFromClaims(c) }

// SetToken replaces the session with the one described by token.
// An empty token, or one that cannot be decoded, leaves the session unauthenticated.
func (s *SessionService) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTokenLocked(strings.TrimSpace(token))
}

func (s *SessionService) setTokenLocked(token string) {
	if token == "" {
		s.identity = nil
		s.deleteCookie(domainauth.RoleCookie)
		s.deleteCookie(domainauth.AccessTokenCookie)
		s.unbind()
		s.persistLocked()
		return
	}

	id, err := s.identityFromToken(token)
	if err != nil {
		s.logger.Warn("credential rejected; session cleared", "error", err)
		s.identity = nil
		s.deleteCookie(domainauth.RoleCookie)
		s.deleteCookie(domainauth.AccessTokenCookie)
		s.unbind()
		s.persistLocked()
		return
	}
	s.applyTokenLocked(token, id)
}

// applyTokenLocked installs an identity already decoded from token.
func (s *SessionService) applyTokenLocked(token string, id domainauth.Identity) {
	s.identity = &id
	s.writeCookie(domainauth.RoleCookie, id.Role.String())
	s.writeCookie(domainauth.AccessTokenCookie, token)
	if s.binder != nil {
		s.binder.Bind(token)
	}
	s.persistLocked()
	s.logger.Debug("session authenticated", "user_id", id.ID, "role", id.Role)
}

func (s *SessionService) identityFromToken(token string) (domainauth.Identity, error) {
	if strings.Count(token, ".") != 2 {
		return domainauth.Identity{}, fmt.Errorf("%w: expected three segments", domainauth.ErrMalformedCredential)
	}
	claims, err := domainauth.DecodeClaims(token)
	if err != nil {
		return domainauth.Identity{}, err
	}
	return domainauth.IdentityFromClaims(claims, s.roles.Map(claims)), nil
}

// Login authenticates the session with an identity the caller already trusts.
// Roles outside the closed set are normalised through MapRole. The identity carries no
// credential, so any access credential of the previous principal is dropped.
func (s *SessionService) Login(identity domainauth.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := identity.Clone()
	id.Role = normalizeRole(id.Role)
	s.identity = &id
	s.writeCookie(domainauth.RoleCookie, id.Role.String())
	s.deleteCookie(domainauth.AccessTokenCookie)
	s.unbind()
	s.persistLocked()
}

// Logout clears the session locally without contacting the authority.
func (s *SessionService) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// SignOut revokes the refresh credential and, only when revocation succeeds, clears the session.
// An empty refreshCredential falls back to the refresh cookie; when neither exists there is
// nothing to revoke and the session is cleared. The lock is not held during the remote call.
func (s *SessionService) SignOut(ctx context.Context, refreshCredential string) bool {
	refresh := strings.TrimSpace(refreshCredential)
	if refresh == "" {
		refresh = s.cookieValue(domainauth.RefreshTokenCookie)
	}

	success := true
	if refresh != "" {
		s.setLoading(true)
		success = s.revoke(ctx, refresh)
		s.setLoading(false)
	}

	if !success {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	return true
}

func (s *SessionService) revoke(ctx context.Context, refresh string) bool {
	resp, err := s.gateway.RevokeRefreshCredential(ctx, refresh)
	if err != nil {
		s.logger.Warn("refresh credential revocation failed", "error", err, "code", apperrors.GetCode(err))
		return false
	}
	if !resp.Succeeded() {
		s.logger.Warn("refresh credential revocation rejected", "message", resp.Message)
		return false
	}
	return true
}

// UpdateIdentity merges patch into the current identity. It is a no-op when unauthenticated.
func (s *SessionService) UpdateIdentity(patch domainauth.IdentityPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil {
		return
	}

	prev := s.identity.Role
	merged := patch.Apply(*s.identity)
	merged.Role = normalizeRole(merged.Role)
	s.identity = &merged
	if merged.Role != prev {
		s.writeCookie(domainauth.RoleCookie, merged.Role.String())
	}
	s.persistLocked()
}

// Authenticate performs a password login against the authority.
// When the authority asks for a one-time password the session is left untouched.
func (s *SessionService) Authenticate(ctx context.Context, email, password string) (LoginOutcome, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return LoginOutcome{}, apperrors.ValidationField("email", "email is required")
	}
	if password == "" {
		return LoginOutcome{}, apperrors.ValidationField("password", "password is required")
	}

	res, err := s.gateway.Login(ctx, ports.LoginRequest{Email: email, Password: password})
	if err != nil {
		return LoginOutcome{}, fmt.Errorf("login: %w", err)
	}
	if res.RequiresOTP {
		return LoginOutcome{RequiresOTP: true, Message: res.Message}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if res.RefreshToken != "" {
		s.writeCookie(domainauth.RefreshTokenCookie, res.RefreshToken)
	}
	s.setTokenLocked(res.AccessToken)
	if s.identity == nil {
		return LoginOutcome{}, fmt.Errorf("login: %w", ErrCredentialRejected)
	}
	return LoginOutcome{Message: res.Message}, nil
}

// Refresh exchanges the stored refresh credential for a new access credential.
// Concurrent callers share one remote call. On failure the session is left as it was.
func (s *SessionService) Refresh(ctx context.Context) error {
	_, err, _ := s.refreshGroup.Do(refreshKey, func() (any, error) {
		return nil, s.refresh(ctx)
	})
	return err
}

func (s *SessionService) refresh(ctx context.Context) error {
	refresh := s.cookieValue(domainauth.RefreshTokenCookie)
	if refresh == "" {
		return ErrNoRefreshCredential
	}

	res, err := s.gateway.Refresh(ctx, ports.RefreshRequest{
		AccessToken:  s.cookieValue(domainauth.AccessTokenCookie),
		RefreshToken: refresh,
	})
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	token := strings.TrimSpace(res.AccessToken)
	id, err := s.identityFromToken(token)
	if err != nil {
		return fmt.Errorf("refresh: %w: %w", ErrCredentialRejected, err)
	}
	if res.RefreshToken != "" {
		s.writeCookie(domainauth.RefreshTokenCookie, res.RefreshToken)
	}
	s.applyTokenLocked(token, id)
	return nil
}

// Rehydrate restores the session from durable storage. It should run before the first read.
// An incoherent snapshot is discarded. A storage failure leaves the session unauthenticated
// and is returned.
func (s *SessionService) Rehydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storage == nil {
		s.syncCookiesLocked()
		return nil
	}

	snap, err := s.storage.Load(ctx)
	switch {
	case errors.Is(err, ports.ErrNoSnapshot):
		s.identity = nil
		s.syncCookiesLocked()
		return nil
	case err != nil:
		s.identity = nil
		s.syncCookiesLocked()
		return fmt.Errorf("load session snapshot: %w", err)
	}

	if !snap.Coherent() {
		s.logger.Warn("discarding incoherent session snapshot", "is_authenticated", snap.IsAuthenticated)
		s.identity = nil
		s.syncCookiesLocked()
		if clearErr := s.storage.Clear(ctx); clearErr != nil {
			s.logger.Warn("failed to clear session snapshot", "error", clearErr)
		}
		return nil
	}

	if snap.Identity != nil {
		id := snap.Identity.Clone()
		id.Role = normalizeRole(id.Role)
		s.identity = &id
	} else {
		s.identity = nil
	}
	s.syncCookiesLocked()
	return nil
}

// syncCookiesLocked re-derives the role cookie and the client binding from in-memory state.
func (s *SessionService) syncCookiesLocked() {
	if s.identity == nil {
		s.deleteCookie(domainauth.RoleCookie)
		s.unbind()
		return
	}
	s.writeCookie(domainauth.RoleCookie, s.identity.Role.String())
	if token := s.cookieValue(domainauth.AccessTokenCookie); token != "" && s.binder != nil {
		s.binder.Bind(token)
	}
}

func (s *SessionService) clearLocked() {
	s.identity = nil
	s.deleteCookie(domainauth.RoleCookie)
	s.deleteCookie(domainauth.AccessTokenCookie)
	s.deleteCookie(domainauth.RefreshTokenCookie)
	s.unbind()
	s.persistLocked()
}

func (s *SessionService) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *SessionService) unbind() {
	if s.binder != nil {
		s.binder.Unbind()
	}
}

// persistLocked saves the current snapshot. Failures are logged only.
func (s *SessionService) persistLocked() {
	if s.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	snap := domainauth.Snapshot{IsAuthenticated: s.identity != nil}
	if s.identity != nil {
		id := s.identity.Clone()
		snap.Identity = &id
	}
	if err := s.storage.Save(ctx, snap); err != nil {
		s.logger.Warn("failed to persist session snapshot", "error", err)
	}
}

func (s *SessionService) writeCookie(name, value string) {
	if s.cookies == nil {
		return
	}
	err := s.cookies.Set(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   domainauth.CookieMaxAge,
		SameSite: http.SameSiteLaxMode,
	})
	if err != nil {
		s.logger.Warn("failed to write cookie", "cookie", name, "error", err)
	}
}

func (s *SessionService) deleteCookie(name string) {
	if s.cookies == nil {
		return
	}
	if err := s.cookies.Delete(name); err != nil {
		s.logger.Warn("failed to delete cookie", "cookie", name, "error", err)
	}
}

func (s *SessionService) cookieValue(name string) string {
	if s.cookies == nil {
		return ""
	}
	v, ok := s.cookies.Get(name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// normalizeRole maps anything outside the closed role set through MapRole.
func normalizeRole(r domainauth.Role) domainauth.Role {
	if r.IsValid() {
		return r
	}
	return domainauth.MapRole(string(r))
}

// Role returns the current role, or RoleGuest when unauthenticated.
func (s *SessionService) Role() domainauth.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return domainauth.RoleGuest
	}
	return s.identity.Role
}

// HasRole reports whether the current role equals r.
func (s *SessionService) HasRole(r domainauth.Role) bool {
	return s.Role() == r
}

// CanAccessRoute reports whether the current role may open path.
func (s *SessionService) CanAccessRoute(path string) bool {
	return s.perms.Allows(s.Role(), path)
}

// IsAuthenticated reports whether an identity is present.
func (s *SessionService) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity != nil
}

// Identity returns a copy of the current identity.
func (s *SessionService) Identity() (domainauth.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return domainauth.Identity{}, false
	}
	return s.identity.Clone(), true
}

// State returns a snapshot of the session read model.
func (s *SessionService) State() domainauth.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := domainauth.SessionState{IsAuthenticated: s.identity != nil, IsLoading: s.loading}
	if s.identity != nil {
		id := s.identity.Clone()
		st.Identity = &id
	}
	return st
}

// Permissions returns the route table consulted by CanAccessRoute.
func (s *SessionService) Permissions() domainauth.RoutePermissions {
	return s.perms
}
