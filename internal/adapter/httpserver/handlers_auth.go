package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/arenadesk/internal/domain"
	apperrors "github.com/pscheid92/arenadesk/internal/platform/errors"
)

var publicPaths = map[string]bool{
	"/login":           true,
	"/api/auth/login":  true,
	"/api/auth/logout": true,
	"/api/auth/me":     true,
	"/api/health":      true,
	"/api/debug":       true,
	"/version":         true,
	"/metrics":         true,
	"/favicon.ico":     true,
	"/health/live":     true,
	"/health/ready":    true,
	"/health/startup":  true,
}

func isPublicPath(path string) bool {
	return publicPaths[path] || strings.HasPrefix(path, "/static/")
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

type loginRequest struct {
	Email    string `json:"email" validate:"max=254"`
	Password string `json:"password" validate:"max=1024"`
}

func (s *Server) registerAuthRoutes(rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/login", s.handleLoginPage)
	s.echo.POST("/api/auth/login", s.handleLogin, rateLimiter)
	s.echo.POST("/api/auth/logout", s.handleLogout)
	s.echo.GET("/api/auth/me", s.handleMe)
}

// requireAuth gates everything outside publicPaths. It makes sure the session
// holds a usable access token, refreshing it when needed, and puts the token
// into the request context for Directus calls made on the user's behalf.
// Protected API calls get a 401; pages redirect to the login form.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		if isPublicPath(path) {
			return next(c)
		}

		if err := s.authenticate(c); err != nil {
			if !errors.Is(err, domain.ErrMissingToken) && !errors.Is(err, domain.ErrUnauthorized) {
				return err
			}
			if isAPIPath(path) {
				return unauthorizedJSON(c)
			}
			return c.Redirect(http.StatusFound, "/login?from="+url.QueryEscape(path))
		}
		return next(c)
	}
}

// authenticate validates the session tokens and attaches the access token to
// the request context. Rejected sessions are cleared.
func (s *Server) authenticate(c echo.Context) error {
	ctx := c.Request().Context()
	tokens, refreshed, err := s.auth.ValidToken(ctx, s.sessionTokens(c))
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			s.clearSession(c)
		}
		return err
	}

	if refreshed {
		if err := s.saveTokens(c, tokens); err != nil {
			return apperrors.InternalError("failed to save refreshed session", err)
		}
	}

	c.SetRequest(c.Request().WithContext(domain.WithAccessToken(ctx, tokens.AccessToken)))
	return nil
}

func (s *Server) handleLoginPage(c echo.Context) error {
	if s.authenticate(c) == nil {
		return c.Redirect(http.StatusFound, "/")
	}

	from := c.QueryParam("from")
	if !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") {
		from = "/"
	}
	return s.renderTemplate(c, "login.html", map[string]any{"From": from})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	tokens, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	// Start from a fresh session so a pre-login cookie is never promoted.
	s.clearSession(c)
	session, err := s.sessionStore.New(c.Request(), sessionName)
	if err != nil {
		return apperrors.InternalError("failed to create session", err)
	}
	putTokens(session, tokens)
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	slog.InfoContext(ctx, "User logged in", "email", strings.TrimSpace(req.Email))
	return writeJSON(c, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleLogout(c echo.Context) error {
	s.auth.Logout(c.Request().Context(), s.sessionTokens(c))
	s.clearSession(c)
	return writeJSON(c, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMe(c echo.Context) error {
	if err := s.authenticate(c); err != nil {
		return writeJSON(c, http.StatusUnauthorized, map[string]bool{"authenticated": false})
	}

	user, err := s.auth.CurrentUser(c.Request().Context())
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return writeJSON(c, http.StatusUnauthorized, map[string]bool{"authenticated": false})
		}
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]any{"authenticated": true, "user": user})
}
