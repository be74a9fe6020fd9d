package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	domainauth "github.com/target/identity-session/internal/domain/auth"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RouteGuardOptions configures RouteGuard.
type RouteGuardOptions struct {
	// Permissions is the prefix table consulted for every request.
	// A zero value falls back to domainauth.DefaultRoutePermissions.
	Permissions domainauth.RoutePermissions
	// LoginPath, when set, is where browser requests without a role cookie are sent.
	LoginPath string
	Logger    *slog.Logger
}

// RouteGuard returns a middleware that authorizes requests from the role cookie alone.
// It never consults the session store; the cookie is the only state it can see.
// Unmatched paths are allowed. Denied API requests get 401 without a cookie and 403 with one.
func RouteGuard(opts RouteGuardOptions) func(http.Handler) http.Handler {
	perms := opts.Permissions
	if len(perms.Prefixes()) == 0 {
		perms = domainauth.DefaultRoutePermissions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "route_guard")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, present := roleFromCookie(r)
			if perms.Allows(role, r.URL.Path) {
				ctx := SetRoleInContext(r.Context(), role)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			logger.Debug("route denied", "path", r.URL.Path, "role", role, "has_cookie", present)

			if !present {
				if opts.LoginPath != "" && isBrowserRequest(r) {
					redirectToLogin(w, r, opts.LoginPath)
					return
				}
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}

			if isBrowserRequest(r) {
				showAccessDenied(w, r)
				return
			}
			WriteError(w, ErrorParams{
				Code:    http.StatusForbidden,
				ErrCode: "insufficient_permissions",
				Err:     errors.New("insufficient permissions"),
			})
		})
	}
}

// roleFromCookie reads the role cookie. Values outside the closed set count as guest.
func roleFromCookie(r *http.Request) (domainauth.Role, bool) {
	c, err := r.Cookie(domainauth.RoleCookie)
	if err != nil || c.Value == "" {
		return domainauth.RoleGuest, false
	}
	role := domainauth.Role(c.Value)
	if !role.IsValid() {
		return domainauth.RoleGuest, true
	}
	return role, true
}

// isBrowserRequest determines if a request is from a browser based on:
// 1. Path prefix - API routes start with /api/
// 2. Accept header - browsers typically accept text/html.
func isBrowserRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}

	accept := r.Header.Get("Accept")
	if accept == "" {
		// No Accept header, assume browser for non-API routes
		return true
	}
	return strings.Contains(accept, "text/html")
}

// redirectToLogin redirects browser requests to the login page with the current URL as redirect_uri.
func redirectToLogin(w http.ResponseWriter, r *http.Request, loginPath string) {
	redirectParam := url.QueryEscape(safeRedirectPath(r.URL.RequestURI()))
	http.Redirect(w, r, loginPath+"?redirect_uri="+redirectParam, http.StatusSeeOther)
}

func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}

// showAccessDenied shows an access denied page for browser requests.
func showAccessDenied(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "Access Denied: You don't have permission to access this resource", http.StatusForbidden)
}
