package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/arenadesk/internal/platform/version"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
	diagnosticsTimeout    = 10 * time.Second
	debugValuePrefix      = 10
)

// HealthCheck is a named health check function.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type checkResult struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)

	s.echo.GET("/api/health", s.handleDiagnostics)
	s.echo.GET("/api/debug", s.handleDebug)
}

func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupProbeTimeout)
	defer cancel()

	return s.runHealthChecks(c, ctx)
}

func (s *Server) handleLiveness(c echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	return s.runHealthChecks(c, ctx)
}

func (s *Server) runHealthChecks(c echo.Context, ctx context.Context) error {
	for _, hc := range s.healthChecks {
		err := hc.Check(ctx)
		if err == nil {
			continue
		}

		return writeJSON(c, http.StatusServiceUnavailable, map[string]any{
			"status":       "unhealthy",
			"failed_check": hc.Name,
			"error":        err.Error(),
		})
	}

	return writeJSON(c, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(c echo.Context) error {
	return writeJSON(c, http.StatusOK, version.Get())
}

// handleDiagnostics reports, step by step, whether the deployment can talk to
// Directus with the service token and with the caller's own token.
func (s *Server) handleDiagnostics(c echo.Context) error {
	checks := map[string]checkResult{
		"env": {
			OK: s.config.DirectusURL != "" && s.config.DirectusServiceToken != "",
			Details: map[string]string{
				"DIRECTUS_URL":           configured(s.config.DirectusURL),
				"DIRECTUS_SERVICE_TOKEN": configured(s.config.DirectusServiceToken),
			},
		},
	}

	authErr := s.authenticate(c)
	checks["auth"] = checkResult{OK: authErr == nil, Details: map[string]bool{"hasToken": s.sessionTokens(c).AccessToken != ""}}

	ctx, cancel := context.WithTimeout(c.Request().Context(), diagnosticsTimeout)
	defer cancel()

	if info, err := s.probe.ServerInfo(ctx); err != nil {
		checks["directusService"] = checkResult{Error: err.Error()}
	} else {
		checks["directusService"] = checkResult{OK: true, Details: info}
	}

	if authErr != nil {
		checks["directusUser"] = checkResult{Error: "No user token"}
	} else {
		if user, err := s.probe.Me(ctx); err != nil {
			checks["directusUser"] = checkResult{Error: err.Error()}
		} else {
			checks["directusUser"] = checkResult{OK: true, Details: user}
		}

		if n, err := s.probe.ProbeArenas(ctx); err != nil {
			checks["arenas"] = checkResult{Error: err.Error()}
		} else {
			checks["arenas"] = checkResult{OK: true, Details: map[string]int{"count": n}}
		}
	}

	status, code := "healthy", http.StatusOK
	for _, r := range checks {
		if !r.OK {
			status, code = "unhealthy", http.StatusServiceUnavailable
			break
		}
	}
	return writeJSON(c, code, map[string]any{"status": status, "checks": checks})
}

// handleDebug lists the request's cookies with truncated values. Not served
// in production.
func (s *Server) handleDebug(c echo.Context) error {
	if s.config.IsProduction() {
		return echo.ErrNotFound
	}

	cookies := make([]map[string]string, 0, len(c.Cookies()))
	for _, ck := range c.Cookies() {
		cookies = append(cookies, map[string]string{"name": ck.Name, "value": truncateValue(ck.Value)})
	}

	tokens := s.sessionTokens(c)
	return writeJSON(c, http.StatusOK, map[string]any{
		"cookies":         cookies,
		"hasAccessToken":  tokens.AccessToken != "",
		"hasRefreshToken": tokens.RefreshToken != "",
	})
}

func configured(v string) string {
	if v == "" {
		return "MISSING"
	}
	return "configured"
}

// truncateValue shows at most debugValuePrefix bytes and never more than half
// of the value.
func truncateValue(v string) string {
	return fmt.Sprintf("%s...", v[:min(debugValuePrefix, len(v)/2)])
}
