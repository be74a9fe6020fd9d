// Package oidc implements ports.SessionGateway against an OpenID Connect provider
// using the resource-owner password grant, refresh grant and RFC 7009 revocation.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	apperrors "github.com/target/identity-session/internal/errors"
	"github.com/target/identity-session/internal/ports"
	"golang.org/x/oauth2"
)

// CredentialSource selects which token from the provider becomes the session credential.
type CredentialSource string

const (
	// SourceAccessToken uses the OAuth2 access token (must be a JWT for claim decoding).
	SourceAccessToken CredentialSource = "access_token"
	// SourceIDToken uses the verified OIDC id_token.
	SourceIDToken CredentialSource = "id_token"
)

// ErrRevocationUnsupported is returned when the provider advertises no revocation endpoint.
var ErrRevocationUnsupported = errors.New("provider does not support token revocation")

// DiscoveryDocument represents the subset of the OIDC discovery document this gateway reads.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
	RevocationEndpoint    string `json:"revocation_endpoint,omitempty"`
}

// GatewayConfig holds configuration for the OIDC gateway.
type GatewayConfig struct {
	ClientID     string
	ClientSecret string // Optional for public clients
	Scope        string
	DiscoveryURL string
	// RevocationURL overrides the discovered revocation endpoint.
	RevocationURL    string
	CredentialSource CredentialSource
	HTTPClient       *http.Client // Optional, defaults to a 30s-timeout client
	Logger           *slog.Logger
}

// Gateway is the OIDC SessionGateway.
type Gateway struct {
	config        *oauth2.Config
	httpClient    *http.Client
	verifier      *gooidc.IDTokenVerifier
	revocationURL string
	source        CredentialSource
	logger        *slog.Logger
}

// NewGateway performs discovery and returns a configured Gateway.
func NewGateway(ctx context.Context, cfg GatewayConfig) (*Gateway, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}
	source := cfg.CredentialSource
	if source == "" {
		source = SourceAccessToken
	}
	if source != SourceAccessToken && source != SourceIDToken {
		return nil, fmt.Errorf("unknown credential source %q", source)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	// The provider keeps this context for later JWKS fetches, so it must outlive ctx.
	op, err := gooidc.NewProvider(gooidc.ClientContext(context.WithoutCancel(ctx), httpClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	var doc DiscoveryDocument
	if err := op.Claims(&doc); err != nil {
		return nil, fmt.Errorf("decode discovery document: %w", err)
	}
	revocationURL := cfg.RevocationURL
	if revocationURL == "" {
		revocationURL = doc.RevocationEndpoint
	}

	scopes := strings.Fields(cfg.Scope)
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, gooidc.ScopeOfflineAccess}
	}

	return &Gateway{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       scopes,
			Endpoint:     op.Endpoint(),
		},
		httpClient:    httpClient,
		verifier:      op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		revocationURL: revocationURL,
		source:        source,
		logger:        logger.With("component", "oidc_gateway"),
	}, nil
}

// Login runs the password grant.
func (g *Gateway) Login(ctx context.Context, req ports.LoginRequest) (ports.LoginResult, error) {
	tok, err := g.config.PasswordCredentialsToken(g.clientContext(ctx), req.Email, req.Password)
	if err != nil {
		return ports.LoginResult{}, fmt.Errorf("login: %w", mapTokenError(err))
	}
	credential, err := g.credential(ctx, tok)
	if err != nil {
		return ports.LoginResult{}, fmt.Errorf("login: %w", err)
	}
	return ports.LoginResult{AccessToken: credential, RefreshToken: tok.RefreshToken}, nil
}

// Refresh runs the refresh grant. Providers that do not rotate refresh tokens
// get the original one echoed back by x/oauth2.
func (g *Gateway) Refresh(ctx context.Context, req ports.RefreshRequest) (ports.RefreshResult, error) {
	if req.RefreshToken == "" {
		return ports.RefreshResult{}, apperrors.Validation("refresh credential is required")
	}
	src := g.config.TokenSource(g.clientContext(ctx), &oauth2.Token{RefreshToken: req.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return ports.RefreshResult{}, fmt.Errorf("refresh: %w", mapTokenError(err))
	}
	credential, err := g.credential(ctx, tok)
	if err != nil {
		return ports.RefreshResult{}, fmt.Errorf("refresh: %w", err)
	}
	return ports.RefreshResult{AccessToken: credential, RefreshToken: tok.RefreshToken}, nil
}

// RevokeRefreshCredential posts the refresh token to the RFC 7009 endpoint.
// RFC 7009 signals success with a bare 200, so the response is synthesized.
func (g *Gateway) RevokeRefreshCredential(ctx context.Context, refreshToken string) (ports.RevokeResponse, error) {
	if g.revocationURL == "" {
		return ports.RevokeResponse{}, ErrRevocationUnsupported
	}

	form := url.Values{
		"token":           {refreshToken},
		"token_type_hint": {"refresh_token"},
	}
	if g.config.ClientSecret == "" {
		form.Set("client_id", g.config.ClientID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.revocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return ports.RevokeResponse{}, fmt.Errorf("build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if g.config.ClientSecret != "" {
		req.SetBasicAuth(url.QueryEscape(g.config.ClientID), url.QueryEscape(g.config.ClientSecret))
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return ports.RevokeResponse{}, fmt.Errorf("revoke refresh credential: %w", apperrors.MapTransportError(err))
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("revocation rejected", "status", resp.StatusCode)
		return ports.RevokeResponse{}, apperrors.FromHTTPStatus(resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return ports.RevokeResponse{
		IsSuccess: true,
		Result:    &ports.RevokeResult{IsSuccess: true},
	}, nil
}

func (g *Gateway) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
}

// credential picks the session credential out of a token response.
func (g *Gateway) credential(ctx context.Context, tok *oauth2.Token) (string, error) {
	if g.source == SourceAccessToken {
		if tok.AccessToken == "" {
			return "", apperrors.Unavailablef("provider returned no access token")
		}
		return tok.AccessToken, nil
	}

	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "provider returned no id_token")
	}
	if _, err := g.verifier.Verify(g.clientContext(ctx), rawID); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "verify id_token")
	}
	return rawID, nil
}

// mapTokenError classifies x/oauth2 token endpoint failures.
func mapTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		msg := re.ErrorDescription
		if msg == "" {
			msg = re.ErrorCode
		}
		// invalid_grant is returned with 400 for bad passwords and expired refresh tokens.
		if re.ErrorCode == "invalid_grant" {
			return apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, messageOr(msg, "invalid grant"))
		}
		appErr := apperrors.FromHTTPStatus(re.Response.StatusCode, msg)
		appErr.Cause = err
		return appErr
	}
	return apperrors.MapTransportError(err)
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}

var _ ports.SessionGateway = (*Gateway)(nil)
