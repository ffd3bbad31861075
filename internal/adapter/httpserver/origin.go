package httpserver

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
)

// newOriginCheck returns a predicate for the Origin header of state-changing
// requests. It allows empty origins (same-origin / non-browser clients) and the
// app's own origin: appURL's when configured, otherwise the request's host.
// When isDevelopment is true, localhost origins are additionally allowed.
func newOriginCheck(appURL string, isDevelopment bool) func(r *http.Request) bool {
	appOrigin := extractOrigin(appURL)

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if origin == "" {
			return true
		}

		if appOrigin != "" && origin == appOrigin {
			return true
		}

		if appOrigin == "" && originHost(origin) == r.Host {
			return true
		}

		if isDevelopment && isLocalhostOrigin(origin) {
			return true
		}

		slog.WarnContext(r.Context(), "Cross-origin request rejected", "origin", origin, "method", r.Method, "path", r.URL.Path)
		return false
	}
}

// requireSameOrigin rejects cross-site writes carrying the session cookie.
func (s *Server) requireSameOrigin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		switch c.Request().Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return next(c)
		}
		if !s.checkOrigin(c.Request()) {
			return writeJSON(c, http.StatusForbidden, map[string]string{"error": "Forbidden"})
		}
		return next(c)
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	return u.Host
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
