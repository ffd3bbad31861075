package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/arenadesk/internal/domain"
	"github.com/pscheid92/arenadesk/internal/platform/config"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockAuthService struct {
	loginFn       func(ctx context.Context, email, password string) (domain.Tokens, error)
	validTokenFn  func(ctx context.Context, tokens domain.Tokens) (domain.Tokens, bool, error)
	currentUserFn func(ctx context.Context) (*domain.User, error)
	loggedOut     []domain.Tokens
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (domain.Tokens, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return domain.Tokens{AccessToken: "access-1", RefreshToken: "refresh-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (m *mockAuthService) Logout(_ context.Context, tokens domain.Tokens) {
	m.loggedOut = append(m.loggedOut, tokens)
}

func (m *mockAuthService) ValidToken(ctx context.Context, tokens domain.Tokens) (domain.Tokens, bool, error) {
	if m.validTokenFn != nil {
		return m.validTokenFn(ctx, tokens)
	}
	if tokens.AccessToken == "" {
		return domain.Tokens{}, false, domain.ErrMissingToken
	}
	return tokens, false, nil
}

func (m *mockAuthService) CurrentUser(ctx context.Context) (*domain.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx)
	}
	return &domain.User{ID: "u1", Email: "admin@example.com", Role: &domain.Role{ID: "r1", Name: "Administrator"}}, nil
}

type mockBookingService struct {
	listFn      func(ctx context.Context, start, end, arenaIDs string) ([]domain.Event, error)
	createFn    func(ctx context.Context, d domain.BookingDraft) (map[string]any, error)
	updateFn    func(ctx context.Context, id string, patch domain.BookingPatch) (map[string]any, error)
	deleteFn    func(ctx context.Context, id string) error
	occupancyFn func(ctx context.Context, month, arenaID string) ([]domain.DayOccupancy, error)
}

func (m *mockBookingService) ListEvents(ctx context.Context, start, end, arenaIDs string) ([]domain.Event, error) {
	if m.listFn != nil {
		return m.listFn(ctx, start, end, arenaIDs)
	}
	return nil, nil
}

func (m *mockBookingService) Create(ctx context.Context, d domain.BookingDraft) (map[string]any, error) {
	if m.createFn != nil {
		return m.createFn(ctx, d)
	}
	return map[string]any{"id": 1}, nil
}

func (m *mockBookingService) Update(ctx context.Context, id string, patch domain.BookingPatch) (map[string]any, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return map[string]any{"id": id}, nil
}

func (m *mockBookingService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockBookingService) Occupancy(ctx context.Context, month, arenaID string) ([]domain.DayOccupancy, error) {
	if m.occupancyFn != nil {
		return m.occupancyFn(ctx, month, arenaID)
	}
	return []domain.DayOccupancy{}, nil
}

type mockCatalogService struct {
	arenas      []domain.Arena
	games       []domain.Game
	arenasErr   error
	mutationErr error

	lastToken    string
	lastID       string
	lastName     string
	lastAddress  *string
	lastCategory *string
}

func (m *mockCatalogService) Arenas(ctx context.Context) ([]domain.Arena, error) {
	m.lastToken, _ = domain.AccessToken(ctx)
	return m.arenas, m.arenasErr
}

func (m *mockCatalogService) Games(context.Context) ([]domain.Game, error) {
	return m.games, nil
}

func (m *mockCatalogService) CreateArena(_ context.Context, name, address string) (map[string]any, error) {
	m.lastName, m.lastAddress = name, &address
	return map[string]any{"id": 9, "name": name}, m.mutationErr
}

func (m *mockCatalogService) UpdateArena(_ context.Context, id, name string, address *string) (map[string]any, error) {
	m.lastID, m.lastName, m.lastAddress = id, name, address
	return map[string]any{"id": id, "name": name}, m.mutationErr
}

func (m *mockCatalogService) DeleteArena(_ context.Context, id string) error {
	m.lastID = id
	return m.mutationErr
}

func (m *mockCatalogService) CreateGame(_ context.Context, name, category string) (map[string]any, error) {
	m.lastName, m.lastCategory = name, &category
	return map[string]any{"id": 3, "name": name}, m.mutationErr
}

func (m *mockCatalogService) UpdateGame(_ context.Context, id, name string, category *string) (map[string]any, error) {
	m.lastID, m.lastName, m.lastCategory = id, name, category
	return map[string]any{"id": id, "name": name}, m.mutationErr
}

func (m *mockCatalogService) DeleteGame(_ context.Context, id string) error {
	m.lastID = id
	return m.mutationErr
}

type mockProbe struct {
	infoErr   error
	meErr     error
	arenasErr error
}

func (m *mockProbe) ServerInfo(context.Context) (map[string]any, error) {
	if m.infoErr != nil {
		return nil, m.infoErr
	}
	return map[string]any{"project": map[string]any{"project_name": "arenas"}}, nil
}

func (m *mockProbe) Me(context.Context) (*domain.User, error) {
	if m.meErr != nil {
		return nil, m.meErr
	}
	return &domain.User{ID: "u1", Email: "admin@example.com"}, nil
}

func (m *mockProbe) ProbeArenas(context.Context) (int, error) {
	return 1, m.arenasErr
}

// --- Test helpers ---

type testDeps struct {
	auth     *mockAuthService
	bookings *mockBookingService
	catalog  *mockCatalogService
	probe    *mockProbe
	checks   []HealthCheck
}

func newTestDeps() *testDeps {
	return &testDeps{
		auth:     &mockAuthService{},
		bookings: &mockBookingService{},
		catalog: &mockCatalogService{
			arenas: []domain.Arena{{ID: "1", Title: "Main hall", Name: "Main hall"}, {ID: "2", Title: "Arena 2"}},
			games:  []domain.Game{{ID: "7", Name: "Laser tag"}},
		},
		probe: &mockProbe{},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:               "development",
		Port:                 "0",
		DirectusURL:          "https://directus.example.com",
		DirectusServiceToken: "service-token",
		SessionSecret:        "0123456789abcdef0123456789abcdef",
		RefreshTokenMaxAge:   720 * time.Hour,
		ManagerRoles:         "admin,director",
		LoginRateLimit:       100,
		LoginRateBurst:       100,
	}
}

func newTestServer(t *testing.T, deps *testDeps, opts ...func(*config.Config)) *Server {
	t.Helper()

	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	srv, err := NewServer(cfg, Services{
		Auth:     deps.auth,
		Bookings: deps.bookings,
		Catalog:  deps.catalog,
		Probe:    deps.probe,
	}, prometheus.NewRegistry(), deps.checks)
	require.NoError(t, err)
	return srv
}

// do sends a request through the full middleware stack.
func do(srv *Server, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

// sessionCookie returns the live session cookie set by the response, if any.
func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionName && c.MaxAge >= 0 && c.Value != "" {
			found = c
		}
	}
	return found
}

// login performs a successful login and returns the session cookie.
func login(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()
	rec := do(srv, http.MethodPost, "/api/auth/login", `{"email":"admin@example.com","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	return cookie
}
