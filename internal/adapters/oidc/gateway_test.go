package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/target/identity-session/internal/errors"
	"github.com/target/identity-session/internal/ports"
)

type fakeProvider struct {
	*httptest.Server

	mu            sync.Mutex
	revoked       []string
	grantTypes    []string
	revokeStatus  int
	tokenStatus   int
	tokenResponse map[string]any
	advertise     bool
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{
		revokeStatus: http.StatusOK,
		tokenStatus:  http.StatusOK,
		advertise:    true,
		tokenResponse: map[string]any{
			"access_token":  "h.eyJzdWIiOiJ1In0.s",
			"token_type":    "Bearer",
			"refresh_token": "refresh-2",
			"expires_in":    3600,
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		doc := DiscoveryDocument{
			Issuer:                fp.URL,
			AuthorizationEndpoint: fp.URL + "/authorize",
			TokenEndpoint:         fp.URL + "/token",
			UserinfoEndpoint:      fp.URL + "/userinfo",
			JwksURI:               fp.URL + "/jwks",
		}
		fp.mu.Lock()
		advertise := fp.advertise
		fp.mu.Unlock()
		if advertise {
			doc.RevocationEndpoint = fp.URL + "/revoke"
		}
		_ = json.NewEncoder(w).Encode(doc)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		fp.mu.Lock()
		fp.grantTypes = append(fp.grantTypes, r.PostForm.Get("grant_type"))
		status := fp.tokenStatus
		body := fp.tokenResponse
		fp.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		fp.mu.Lock()
		fp.revoked = append(fp.revoked, r.PostForm.Get("token"))
		status := fp.revokeStatus
		fp.mu.Unlock()
		w.WriteHeader(status)
	})
	fp.Server = httptest.NewServer(mux)
	t.Cleanup(fp.Close)
	return fp
}

func (fp *fakeProvider) configure(fn func(fp *fakeProvider)) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fn(fp)
}

func (fp *fakeProvider) seenGrants() []string {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return append([]string(nil), fp.grantTypes...)
}

func (fp *fakeProvider) seenRevocations() []string {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return append([]string(nil), fp.revoked...)
}

func newGateway(t *testing.T, fp *fakeProvider) *Gateway {
	t.Helper()
	gw, err := NewGateway(context.Background(), GatewayConfig{
		ClientID:     "identityctl",
		ClientSecret: "secret",
		DiscoveryURL: fp.URL + "/.well-known/openid-configuration",
		HTTPClient:   fp.Client(),
	})
	require.NoError(t, err)
	return gw
}

func TestNewGateway_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config GatewayConfig
		errMsg string
	}{
		{"missing client ID", GatewayConfig{DiscoveryURL: "http://example.com"}, "client ID is required"},
		{"missing discovery URL", GatewayConfig{ClientID: "c"}, "discovery URL is required"},
		{"bad source", GatewayConfig{ClientID: "c", DiscoveryURL: "http://example.com", CredentialSource: "cookie"}, "unknown credential source"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGateway(context.Background(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewGateway_Discovery(t *testing.T) {
	fp := newFakeProvider(t)
	gw := newGateway(t, fp)

	assert.Equal(t, fp.URL+"/token", gw.config.Endpoint.TokenURL)
	assert.Equal(t, fp.URL+"/revoke", gw.revocationURL)
	assert.Equal(t, []string{"openid", "offline_access"}, gw.config.Scopes)
}

func TestGateway_LoginUsesPasswordGrant(t *testing.T) {
	fp := newFakeProvider(t)
	gw := newGateway(t, fp)

	res, err := gw.Login(context.Background(), ports.LoginRequest{Email: "m@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "h.eyJzdWIiOiJ1In0.s", res.AccessToken)
	assert.Equal(t, "refresh-2", res.RefreshToken)
	assert.Contains(t, fp.seenGrants(), "password")
}

func TestGateway_LoginInvalidGrant(t *testing.T) {
	fp := newFakeProvider(t)
	fp.configure(func(fp *fakeProvider) {
		fp.tokenStatus = http.StatusBadRequest
		fp.tokenResponse = map[string]any{"error": "invalid_grant", "error_description": "bad credentials"}
	})
	gw := newGateway(t, fp)

	_, err := gw.Login(context.Background(), ports.LoginRequest{Email: "m@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err), "got %v", err)
}

func TestGateway_Refresh(t *testing.T) {
	fp := newFakeProvider(t)
	gw := newGateway(t, fp)

	res, err := gw.Refresh(context.Background(), ports.RefreshRequest{RefreshToken: "refresh-1"})
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", res.RefreshToken)
	assert.Contains(t, fp.seenGrants(), "refresh_token")

	_, err = gw.Refresh(context.Background(), ports.RefreshRequest{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestGateway_Revoke(t *testing.T) {
	fp := newFakeProvider(t)
	gw := newGateway(t, fp)

	resp, err := gw.RevokeRefreshCredential(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
	assert.Equal(t, []string{"refresh-1"}, fp.seenRevocations())
}

func TestGateway_RevokeRejected(t *testing.T) {
	fp := newFakeProvider(t)
	fp.configure(func(fp *fakeProvider) { fp.revokeStatus = http.StatusServiceUnavailable })
	gw := newGateway(t, fp)

	_, err := gw.RevokeRefreshCredential(context.Background(), "refresh-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
}

func TestGateway_RevokeUnsupported(t *testing.T) {
	fp := newFakeProvider(t)
	fp.configure(func(fp *fakeProvider) { fp.advertise = false })
	gw := newGateway(t, fp)

	_, err := gw.RevokeRefreshCredential(context.Background(), "refresh-1")
	require.ErrorIs(t, err, ErrRevocationUnsupported)
}

func TestGateway_IDTokenSourceRequiresIDToken(t *testing.T) {
	fp := newFakeProvider(t)
	gw, err := NewGateway(context.Background(), GatewayConfig{
		ClientID:         "identityctl",
		DiscoveryURL:     fp.URL,
		HTTPClient:       fp.Client(),
		CredentialSource: SourceIDToken,
	})
	require.NoError(t, err)

	_, err = gw.Login(context.Background(), ports.LoginRequest{Email: "m@example.com", Password: "pw"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id_token")
}
