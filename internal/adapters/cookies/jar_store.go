// Package cookies implements the side-channel cookie surface on top of a
// standard cookie jar, optionally mirrored to a JSON file so short-lived
// processes (the CLI) see the same cookies on the next run.
package cookies

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/target/identity-session/internal/ports"
	"golang.org/x/net/publicsuffix"
)

// DefaultURL is the origin cookies are scoped to when none is configured.
const DefaultURL = "http://localhost/"

// JarOptions configures a JarStore.
type JarOptions struct {
	// URL is the origin the cookies belong to. Defaults to DefaultURL.
	URL string
	// FilePath, when set, persists cookies across processes.
	FilePath string
	Logger   *slog.Logger
	// Now overrides the clock (tests).
	Now func() time.Time
}

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitzero"`
}

// JarStore implements ports.CookieStore over net/http/cookiejar.
type JarStore struct {
	mu      sync.Mutex
	jar     *cookiejar.Jar
	origin  *url.URL
	path    string
	now     func() time.Time
	logger  *slog.Logger
	entries map[string]storedCookie
}

// NewJarStore constructs a JarStore and loads previously persisted cookies.
func NewJarStore(opts JarOptions) (*JarStore, error) {
	raw := opts.URL
	if raw == "" {
		raw = DefaultURL
	}
	origin, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse cookie url: %w", err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("cookie url %q must be absolute", raw)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &JarStore{
		jar:     jar,
		origin:  origin,
		path:    opts.FilePath,
		now:     now,
		logger:  logger.With("component", "cookie_store"),
		entries: make(map[string]storedCookie),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Jar exposes the underlying jar so an HTTP client can share it.
func (s *JarStore) Jar() http.CookieJar {
	return s.jar
}

// URL returns the origin cookies are scoped to.
func (s *JarStore) URL() *url.URL {
	u := *s.origin
	return &u
}

// Set stores or replaces a cookie. A cookie whose MaxAge is negative or whose
// Expires is in the past deletes any existing cookie of that name.
func (s *JarStore) Set(cookie *http.Cookie) error {
	if cookie == nil || cookie.Name == "" {
		return errors.New("cookie name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jar.SetCookies(s.origin, []*http.Cookie{cookie})

	now := s.now()
	entry := storedCookie{Name: cookie.Name, Value: cookie.Value, Path: cookie.Path}
	switch {
	case cookie.MaxAge < 0:
		delete(s.entries, cookie.Name)
		return s.persist()
	case cookie.MaxAge > 0:
		entry.Expires = now.Add(time.Duration(cookie.MaxAge) * time.Second)
	case !cookie.Expires.IsZero():
		entry.Expires = cookie.Expires
	}
	if !entry.Expires.IsZero() && !entry.Expires.After(now) {
		delete(s.entries, cookie.Name)
	} else {
		s.entries[cookie.Name] = entry
	}
	return s.persist()
}

// Get returns the value of a live cookie.
func (s *JarStore) Get(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.jar.Cookies(s.origin) {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Delete removes a cookie by overwriting it with an already-expired one.
func (s *JarStore) Delete(name string) error {
	return s.Set(&http.Cookie{
		Name:    name,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
}

// Names lists live cookie names in sorted order.
func (s *JarStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cookies := s.jar.Cookies(s.origin)
	names := make([]string, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

func (s *JarStore) load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cookie file: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		s.logger.Warn("discarding unreadable cookie file", "path", s.path, "error", err)
		return nil
	}

	now := s.now()
	for _, c := range stored {
		if c.Name == "" || (!c.Expires.IsZero() && !c.Expires.After(now)) {
			continue
		}
		s.jar.SetCookies(s.origin, []*http.Cookie{{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Expires: c.Expires,
		}})
		s.entries[c.Name] = c
	}
	return nil
}

// persist must be called with mu held.
func (s *JarStore) persist() error {
	if s.path == "" {
		return nil
	}

	stored := make([]storedCookie, 0, len(s.entries))
	for _, c := range s.entries {
		stored = append(stored, c)
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].Name < stored[j].Name })

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create cookie directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}
	return nil
}

var _ ports.CookieStore = (*JarStore)(nil)
