package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/arenadesk/internal/adapter/metrics"
	"github.com/pscheid92/arenadesk/internal/domain"
	"github.com/pscheid92/arenadesk/internal/platform/config"
	"github.com/pscheid92/arenadesk/web"
)

type authService interface {
	Login(ctx context.Context, email, password string) (domain.Tokens, error)
	Logout(ctx context.Context, tokens domain.Tokens)
	ValidToken(ctx context.Context, tokens domain.Tokens) (domain.Tokens, bool, error)
	CurrentUser(ctx context.Context) (*domain.User, error)
}

type bookingService interface {
	ListEvents(ctx context.Context, start, end, arenaIDs string) ([]domain.Event, error)
	Create(ctx context.Context, d domain.BookingDraft) (map[string]any, error)
	Update(ctx context.Context, id string, patch domain.BookingPatch) (map[string]any, error)
	Delete(ctx context.Context, id string) error
	Occupancy(ctx context.Context, month, arenaID string) ([]domain.DayOccupancy, error)
}

type catalogService interface {
	Arenas(ctx context.Context) ([]domain.Arena, error)
	Games(ctx context.Context) ([]domain.Game, error)
	CreateArena(ctx context.Context, name, address string) (map[string]any, error)
	UpdateArena(ctx context.Context, id, name string, address *string) (map[string]any, error)
	DeleteArena(ctx context.Context, id string) error
	CreateGame(ctx context.Context, name, category string) (map[string]any, error)
	UpdateGame(ctx context.Context, id, name string, category *string) (map[string]any, error)
	DeleteGame(ctx context.Context, id string) error
}

// directusProbe backs the diagnostic /api/health endpoint.
type directusProbe interface {
	ServerInfo(ctx context.Context) (map[string]any, error)
	Me(ctx context.Context) (*domain.User, error)
	ProbeArenas(ctx context.Context) (int, error)
}

// Services bundles what the handlers call into.
type Services struct {
	Auth     authService
	Bookings bookingService
	Catalog  catalogService
	Probe    directusProbe
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	auth     authService
	bookings bookingService
	catalog  catalogService
	probe    directusProbe

	templates    *template.Template
	sessionStore *sessions.CookieStore
	registry     *prometheus.Registry
	httpMetrics  *metrics.HTTPMetrics
	healthChecks []HealthCheck
	checkOrigin  func(r *http.Request) bool
	startTime    time.Time
}

func NewServer(cfg *config.Config, svc Services, registry *prometheus.Registry, healthChecks []HealthCheck) (*Server, error) {
	templates, err := template.New("").Funcs(templateFuncs).ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()

	srv := &Server{
		echo:         e,
		config:       cfg,
		auth:         svc.Auth,
		bookings:     svc.Bookings,
		catalog:      svc.Catalog,
		probe:        svc.Probe,
		templates:    templates,
		sessionStore: setupSessionStore(cfg),
		registry:     registry,
		httpMetrics:  metrics.NewHTTPMetrics(registry),
		healthChecks: healthChecks,
		checkOrigin:  newOriginCheck(cfg.AppURL, !cfg.IsProduction()),
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets tests drive the full middleware stack.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) renderTemplate(c echo.Context, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Template execution failed", "path", c.Request().URL.Path, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(http.StatusOK, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}

var templateFuncs = template.FuncMap{
	"status": domain.LookupStatus,
	"clock":  func(t time.Time) string { return t.Format("15:04") },
	"cardStyle": func(m domain.StatusMeta) template.CSS {
		return template.CSS(fmt.Sprintf("background:%s;border-color:%s;color:%s", m.Bg, m.Border, m.Text))
	},
	"dotStyle": func(m domain.StatusMeta) template.CSS {
		return template.CSS("background:" + m.Dot)
	},
}
