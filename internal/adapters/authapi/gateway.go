// Package authapi implements ports.SessionGateway against the authority's JSON REST API.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	apperrors "github.com/target/identity-session/internal/errors"
	"github.com/target/identity-session/internal/ports"
)

// Endpoint paths, relative to the configured base URL.
const (
	LoginPath   = "/api/auth/login"
	RefreshPath = "/api/auth/refresh-token"
	RevokePath  = "/api/auth/revoke-refresh-token"

	// AuthPathPrefix covers every endpoint above; 401s there must not trigger a logout.
	AuthPathPrefix = "/api/auth/"
)

const maxResponseBytes = 1 << 20

// envelope is the authority's standard response wrapper.
type envelope struct {
	IsSuccess bool            `json:"isSuccess"`
	Message   string          `json:"message"`
	Result    json.RawMessage `json:"result"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	RequiresOTP  bool   `json:"requiresOtp,omitempty"`
}

type revokeBody struct {
	RefreshToken string `json:"refreshToken"`
}

// Options configures a Gateway.
type Options struct {
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
}

// Gateway is the REST SessionGateway.
type Gateway struct {
	base   *url.URL
	client *http.Client
	logger *slog.Logger
}

// New validates the base URL and returns a Gateway.
func New(opts Options) (*Gateway, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("authapi: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("authapi: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("authapi: base URL %q must be http or https", opts.BaseURL)
	}

	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{base: base, client: client, logger: logger.With("component", "authapi")}, nil
}

// Login exchanges email and password for a credential pair.
func (g *Gateway) Login(ctx context.Context, req ports.LoginRequest) (ports.LoginResult, error) {
	env, err := g.post(ctx, LoginPath, loginBody{Email: req.Email, Password: req.Password})
	if err != nil {
		return ports.LoginResult{}, fmt.Errorf("login: %w", err)
	}
	if !env.IsSuccess {
		return ports.LoginResult{}, apperrors.Unauthorized(messageOr(env.Message, "login rejected"))
	}

	var pair tokenPair
	if err := decodeResult(env.Result, &pair); err != nil {
		return ports.LoginResult{}, fmt.Errorf("login: %w", err)
	}
	if pair.RequiresOTP {
		return ports.LoginResult{RequiresOTP: true, Message: env.Message}, nil
	}
	if pair.AccessToken == "" {
		return ports.LoginResult{}, apperrors.Unavailablef("login: authority returned no access credential")
	}
	return ports.LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Message:      env.Message,
	}, nil
}

// Refresh exchanges the refresh credential for a new access credential.
func (g *Gateway) Refresh(ctx context.Context, req ports.RefreshRequest) (ports.RefreshResult, error) {
	env, err := g.post(ctx, RefreshPath, tokenPair{AccessToken: req.AccessToken, RefreshToken: req.RefreshToken})
	if err != nil {
		return ports.RefreshResult{}, fmt.Errorf("refresh: %w", err)
	}
	if !env.IsSuccess {
		return ports.RefreshResult{}, apperrors.Unauthorized(messageOr(env.Message, "refresh rejected"))
	}

	var pair tokenPair
	if err := decodeResult(env.Result, &pair); err != nil {
		return ports.RefreshResult{}, fmt.Errorf("refresh: %w", err)
	}
	if pair.AccessToken == "" {
		return ports.RefreshResult{}, apperrors.Unavailablef("refresh: authority returned no access credential")
	}
	return ports.RefreshResult{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// RevokeRefreshCredential asks the authority to invalidate a refresh credential.
// A well-formed response is returned as-is; callers decide success via Succeeded.
func (g *Gateway) RevokeRefreshCredential(ctx context.Context, refreshToken string) (ports.RevokeResponse, error) {
	env, err := g.post(ctx, RevokePath, revokeBody{RefreshToken: refreshToken})
	if err != nil {
		return ports.RevokeResponse{}, fmt.Errorf("revoke refresh credential: %w", err)
	}

	out := ports.RevokeResponse{IsSuccess: env.IsSuccess, Message: env.Message}
	if len(env.Result) > 0 && !bytes.Equal(env.Result, []byte("null")) {
		var result ports.RevokeResult
		if err := json.Unmarshal(env.Result, &result); err != nil {
			g.logger.Warn("revoke result has unexpected shape", "error", err)
		} else {
			out.Result = &result
		}
	}
	return out, nil
}

func (g *Gateway) post(ctx context.Context, path string, body any) (envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return envelope{}, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := g.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return envelope{}, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := g.client.Do(req)
	if err != nil {
		return envelope{}, apperrors.MapTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return envelope{}, apperrors.MapTransportError(err)
	}

	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.Warn("authority returned error status",
			"path", path,
			"status", resp.StatusCode,
			"request_id", requestID,
		)
		msg := ""
		if decodeErr == nil {
			msg = env.Message
		}
		return envelope{}, apperrors.FromHTTPStatus(resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return envelope{}, apperrors.Wrap(decodeErr, apperrors.ErrCodeUnavailable, "authority returned an unreadable response")
	}
	g.logger.Debug("authority call complete", "path", path, "request_id", requestID, "success", env.IsSuccess)
	return env, nil
}

func decodeResult(raw json.RawMessage, out any) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return apperrors.Unavailablef("authority response has no result")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "authority result has unexpected shape")
	}
	return nil
}

func messageOr(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}

var _ ports.SessionGateway = (*Gateway)(nil)
