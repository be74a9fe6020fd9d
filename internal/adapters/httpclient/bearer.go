// Package httpclient builds the shared authenticated HTTP client.
package httpclient

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/target/identity-session/internal/domain/events"
	"github.com/target/identity-session/internal/ports"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every request made through NewClient.
const DefaultTimeout = 15 * time.Second

// TransportOptions configures a BearerTransport.
type TransportOptions struct {
	// Base performs the actual round trip. Defaults to http.DefaultTransport.
	Base http.RoundTripper
	// Publisher receives events.Logout when a credentialed request comes back 401.
	Publisher events.Publisher
	// SkipPaths are URL path prefixes whose 401 responses never trigger a logout,
	// typically the authority's own login and refresh endpoints.
	SkipPaths []string
	Logger    *slog.Logger
}

// BearerTransport attaches the bound credential to outbound requests.
// Bind and Unbind are safe to call concurrently with RoundTrip.
type BearerTransport struct {
	base      http.RoundTripper
	publisher events.Publisher
	skip      []string
	logger    *slog.Logger
	token     atomic.Pointer[oauth2.Token]
}

// NewBearerTransport constructs an unbound transport.
func NewBearerTransport(opts TransportOptions) *BearerTransport {
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BearerTransport{
		base:      base,
		publisher: opts.Publisher,
		skip:      append([]string(nil), opts.SkipPaths...),
		logger:    logger.With("component", "bearer_transport"),
	}
}

// Bind sets the credential for subsequent requests. An empty token unbinds.
func (t *BearerTransport) Bind(token string) {
	if token == "" {
		t.Unbind()
		return
	}
	t.token.Store(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// Unbind removes the credential. Calling it while unbound is a no-op.
func (t *BearerTransport) Unbind() {
	t.token.Store(nil)
}

// Token returns the bound credential, if any.
func (t *BearerTransport) Token() (string, bool) {
	tok := t.token.Load()
	if tok == nil {
		return "", false
	}
	return tok.AccessToken, true
}

// RoundTrip implements http.RoundTripper.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok := t.token.Load()
	out := req
	if tok != nil {
		out = req.Clone(req.Context())
		tok.SetAuthHeader(out)
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && tok != nil && !t.skipped(req.URL.Path) {
		t.signalLogout(req)
	}
	return resp, nil
}

func (t *BearerTransport) signalLogout(req *http.Request) {
	if t.publisher == nil {
		return
	}
	n := t.publisher.Publish(events.Logout)
	t.logger.Info("credential rejected; logout signalled",
		"method", req.Method,
		"path", req.URL.Path,
		"listeners", n,
	)
}

func (t *BearerTransport) skipped(path string) bool {
	for _, p := range t.skip {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	Transport *BearerTransport
	Jar       http.CookieJar
	Timeout   time.Duration
}

// NewClient builds the shared client. A nil Transport yields an unbound one.
func NewClient(opts ClientOptions) *http.Client {
	transport := opts.Transport
	if transport == nil {
		transport = NewBearerTransport(TransportOptions{})
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Transport: transport,
		Jar:       opts.Jar,
		Timeout:   timeout,
	}
}

var (
	_ http.RoundTripper      = (*BearerTransport)(nil)
	_ ports.CredentialBinder = (*BearerTransport)(nil)
)
