// Package auth contains simple hand-written test doubles for session ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	domainauth "github.com/target/identity-session/internal/domain/auth"
	"github.com/target/identity-session/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SessionGateway   = (*MockGateway)(nil)
	_ ports.SnapshotStore    = (*MemorySnapshotStore)(nil)
	_ ports.CookieStore      = (*MemoryCookieStore)(nil)
	_ ports.CredentialBinder = (*RecordingBinder)(nil)
	_ ports.RoleMapper       = StaticRoleMapper{}
)

// ErrNotConfigured is returned by MockGateway methods without a configured func.
var ErrNotConfigured = errors.New("mock gateway: call not configured")

// UnsignedCredential builds a three-segment credential whose payload is claims.
// The signature segment is a placeholder; nothing in the session core verifies it.
func UnsignedCredential(claims map[string]any) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	body, err := json.Marshal(claims)
	if err != nil {
		panic(err)
	}
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".sig"
}

// RevokeSuccess is the response shape that counts as a successful revocation.
func RevokeSuccess() ports.RevokeResponse {
	return ports.RevokeResponse{IsSuccess: true, Result: &ports.RevokeResult{IsSuccess: true}}
}

// MockGateway simulates the remote authority. Revocation succeeds by default.
type MockGateway struct {
	LoginFunc   func(ctx context.Context, req ports.LoginRequest) (ports.LoginResult, error)
	RefreshFunc func(ctx context.Context, req ports.RefreshRequest) (ports.RefreshResult, error)
	RevokeFunc  func(ctx context.Context, refreshToken string) (ports.RevokeResponse, error)

	mu        sync.Mutex
	logins    []ports.LoginRequest
	refreshes []ports.RefreshRequest
	revoked   []string
}

// NewMockGateway creates a MockGateway with default behaviour.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) Login(ctx context.Context, req ports.LoginRequest) (ports.LoginResult, error) {
	m.mu.Lock()
	m.logins = append(m.logins, req)
	fn := m.LoginFunc
	m.mu.Unlock()

	if fn == nil {
		return ports.LoginResult{}, ErrNotConfigured
	}
	return fn(ctx, req)
}

func (m *MockGateway) Refresh(ctx context.Context, req ports.RefreshRequest) (ports.RefreshResult, error) {
	m.mu.Lock()
	m.refreshes = append(m.refreshes, req)
	fn := m.RefreshFunc
	m.mu.Unlock()

	if fn == nil {
		return ports.RefreshResult{}, ErrNotConfigured
	}
	return fn(ctx, req)
}

func (m *MockGateway) RevokeRefreshCredential(ctx context.Context, refreshToken string) (ports.RevokeResponse, error) {
	m.mu.Lock()
	m.revoked = append(m.revoked, refreshToken)
	fn := m.RevokeFunc
	m.mu.Unlock()

	if fn == nil {
		return RevokeSuccess(), nil
	}
	return fn(ctx, refreshToken)
}

// Revoked returns every refresh credential passed to RevokeRefreshCredential.
func (m *MockGateway) Revoked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.revoked...)
}

// Logins returns every login request received.
func (m *MockGateway) Logins() []ports.LoginRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.LoginRequest(nil), m.logins...)
}

// Refreshes returns every refresh request received.
func (m *MockGateway) Refreshes() []ports.RefreshRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.RefreshRequest(nil), m.refreshes...)
}

// MemorySnapshotStore is an in-memory snapshot store for unit tests.
type MemorySnapshotStore struct {
	LoadErr error
	SaveErr error

	mu    sync.Mutex
	snap  *domainauth.Snapshot
	saves int
}

// NewMemorySnapshotStore creates an empty store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

// Seed stores snap as if a previous process had saved it.
func (m *MemorySnapshotStore) Seed(snap domainauth.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := cloneSnapshot(snap)
	m.snap = &c
}

// Current returns the stored snapshot, if any.
func (m *MemorySnapshotStore) Current() (domainauth.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return domainauth.Snapshot{}, false
	}
	return cloneSnapshot(*m.snap), true
}

// Saves reports how many successful saves happened.
func (m *MemorySnapshotStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemorySnapshotStore) Load(_ context.Context) (domainauth.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return domainauth.Snapshot{}, m.LoadErr
	}
	if m.snap == nil {
		return domainauth.Snapshot{}, ports.ErrNoSnapshot
	}
	return cloneSnapshot(*m.snap), nil
}

func (m *MemorySnapshotStore) Save(_ context.Context, snap domainauth.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	c := cloneSnapshot(snap)
	m.snap = &c
	m.saves++
	return nil
}

func (m *MemorySnapshotStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	return nil
}

func cloneSnapshot(s domainauth.Snapshot) domainauth.Snapshot {
	out := domainauth.Snapshot{IsAuthenticated: s.IsAuthenticated}
	if s.Identity != nil {
		id := s.Identity.Clone()
		out.Identity = &id
	}
	return out
}

// MemoryCookieStore keeps cookies in a map and honours expiry-based deletion.
type MemoryCookieStore struct {
	SetErr error

	mu      sync.Mutex
	cookies map[string]http.Cookie
}

// NewMemoryCookieStore creates an empty cookie store.
func NewMemoryCookieStore() *MemoryCookieStore {
	return &MemoryCookieStore{cookies: make(map[string]http.Cookie)}
}

func (m *MemoryCookieStore) Set(cookie *http.Cookie) error {
	if cookie == nil || cookie.Name == "" {
		return errors.New("cookie name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.cookies == nil {
		m.cookies = make(map[string]http.Cookie)
	}
	if cookie.MaxAge < 0 || (!cookie.Expires.IsZero() && cookie.Expires.Before(time.Now())) {
		delete(m.cookies, cookie.Name)
		return nil
	}
	m.cookies[cookie.Name] = *cookie
	return nil
}

func (m *MemoryCookieStore) Get(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cookies[name]
	return c.Value, ok
}

func (m *MemoryCookieStore) Delete(name string) error {
	return m.Set(&http.Cookie{Name: name, Path: "/", Expires: time.Unix(0, 0), MaxAge: -1})
}

// Cookie returns the full cookie as last set, for attribute assertions.
func (m *MemoryCookieStore) Cookie(name string) (http.Cookie, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cookies[name]
	return c, ok
}

// Names lists stored cookie names in sorted order.
func (m *MemoryCookieStore) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.cookies))
	for n := range m.cookies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RecordingBinder records Bind/Unbind calls.
type RecordingBinder struct {
	mu      sync.Mutex
	token   string
	bound   bool
	binds   int
	unbinds int
}

func (b *RecordingBinder) Bind(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
	b.bound = token != ""
	b.binds++
}

func (b *RecordingBinder) Unbind() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = ""
	b.bound = false
	b.unbinds++
}

// Token returns the bound credential.
func (b *RecordingBinder) Token() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token, b.bound
}

// Unbinds reports how many times Unbind was called.
func (b *RecordingBinder) Unbinds() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unbinds
}

// Binds reports how many times Bind was called.
func (b *RecordingBinder) Binds() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.binds
}

// StaticRoleMapper returns Role when set, otherwise falls back to the claim-based lookup.
type StaticRoleMapper struct {
	Role domainauth.Role
}

func (m StaticRoleMapper) Map(claims domainauth.Claims) domainauth.Role {
	if m.Role != "" {
		return m.Role
	}
	return domainauth.RoleFromClaims(claims)
}
