package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/arenadesk/internal/adapter/metrics"
	"github.com/pscheid92/arenadesk/internal/domain"
)

// --- Mock implementations ---

type mockBookingRepo struct {
	listWindowFn func(ctx context.Context, w domain.Window) ([]domain.Booking, error)
	listDayFn    func(ctx context.Context, arenaID, date string) ([]domain.Booking, error)
	getFn        func(ctx context.Context, id string) (*domain.Booking, error)
	createFn     func(ctx context.Context, fields map[string]any) (map[string]any, error)
	updateFn     func(ctx context.Context, id string, patch domain.BookingPatch) (map[string]any, error)
	deleteFn     func(ctx context.Context, id string) error
}

func (m *mockBookingRepo) ListWindow(ctx context.Context, w domain.Window) ([]domain.Booking, error) {
	if m.listWindowFn != nil {
		return m.listWindowFn(ctx, w)
	}
	return nil, nil
}

func (m *mockBookingRepo) ListDay(ctx context.Context, arenaID, date string) ([]domain.Booking, error) {
	if m.listDayFn != nil {
		return m.listDayFn(ctx, arenaID, date)
	}
	return nil, nil
}

func (m *mockBookingRepo) Get(ctx context.Context, id string) (*domain.Booking, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockBookingRepo) Create(ctx context.Context, fields map[string]any) (map[string]any, error) {
	if m.createFn != nil {
		return m.createFn(ctx, fields)
	}
	return fields, nil
}

func (m *mockBookingRepo) Update(ctx context.Context, id string, patch domain.BookingPatch) (map[string]any, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return patch, nil
}

func (m *mockBookingRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockClientRepo struct {
	findFn   func(ctx context.Context, phone string) (string, error)
	createFn func(ctx context.Context, phone, name string) (string, error)
}

func (m *mockClientRepo) FindIDByPhone(ctx context.Context, phone string) (string, error) {
	if m.findFn != nil {
		return m.findFn(ctx, phone)
	}
	return "", nil
}

func (m *mockClientRepo) Create(ctx context.Context, phone, name string) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, phone, name)
	}
	return "", fmt.Errorf("not implemented")
}

type mockGateway struct {
	mu         sync.Mutex
	loginFn    func(ctx context.Context, email, password string) (domain.Tokens, error)
	refreshFn  func(ctx context.Context, refreshToken string) (domain.Tokens, error)
	logoutFn   func(ctx context.Context, refreshToken string) error
	meFn       func(ctx context.Context) (*domain.User, error)
	validateFn func(ctx context.Context, token string) error
	refreshes  int
}

func (m *mockGateway) Login(ctx context.Context, email, password string) (domain.Tokens, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return domain.Tokens{}, fmt.Errorf("not implemented")
}

func (m *mockGateway) Refresh(ctx context.Context, refreshToken string) (domain.Tokens, error) {
	m.mu.Lock()
	m.refreshes++
	m.mu.Unlock()
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshToken)
	}
	return domain.Tokens{}, fmt.Errorf("not implemented")
}

func (m *mockGateway) Logout(ctx context.Context, refreshToken string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, refreshToken)
	}
	return nil
}

func (m *mockGateway) Me(ctx context.Context) (*domain.User, error) {
	if m.meFn != nil {
		return m.meFn(ctx)
	}
	return nil, domain.ErrUnauthorized
}

func (m *mockGateway) Validate(ctx context.Context, token string) error {
	if m.validateFn != nil {
		return m.validateFn(ctx, token)
	}
	return nil
}

func (m *mockGateway) refreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

type mockCatalog struct {
	arenas      []domain.Arena
	games       []domain.Game
	err         error
	invalidated []domain.CatalogKind
}

func (m *mockCatalog) Arenas(context.Context) ([]domain.Arena, error) { return m.arenas, m.err }
func (m *mockCatalog) Games(context.Context) ([]domain.Game, error)   { return m.games, m.err }

func (m *mockCatalog) Invalidate(_ context.Context, kind domain.CatalogKind) error {
	m.invalidated = append(m.invalidated, kind)
	return nil
}

type mockArenaRepo struct {
	created map[string]string
	updated *string
	deleted string
}

func (m *mockArenaRepo) List(context.Context) ([]domain.Arena, error) { return nil, nil }

func (m *mockArenaRepo) Create(_ context.Context, name, address string) (map[string]any, error) {
	m.created = map[string]string{"name": name, "address": address}
	return map[string]any{"id": 1, "name": name}, nil
}

func (m *mockArenaRepo) Update(_ context.Context, id, name string, address *string) (map[string]any, error) {
	m.updated = address
	return map[string]any{"id": id, "name": name}, nil
}

func (m *mockArenaRepo) Delete(_ context.Context, id string) error {
	m.deleted = id
	return nil
}

type mockGameRepo struct {
	category *string
	deleted  string
}

func (m *mockGameRepo) List(context.Context) ([]domain.Game, error) { return nil, nil }

func (m *mockGameRepo) Create(_ context.Context, name, category string) (map[string]any, error) {
	return map[string]any{"name": name, "category": category}, nil
}

func (m *mockGameRepo) Update(_ context.Context, id, name string, category *string) (map[string]any, error) {
	m.category = category
	return map[string]any{"id": id, "name": name}, nil
}

func (m *mockGameRepo) Delete(_ context.Context, id string) error {
	m.deleted = id
	return nil
}

func newTestMetrics() *metrics.BookingMetrics {
	return metrics.NewBookingMetrics(prometheus.NewRegistry())
}
