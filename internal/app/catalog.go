package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/pscheid92/arenadesk/internal/domain"
)

// CatalogService administers arenas and games. Reads go through the cache;
// writes go to Directus and invalidate the cached list.
type CatalogService struct {
	catalog      domain.Catalog
	arenas       domain.ArenaRepository
	games        domain.GameRepository
	auth         domain.AuthGateway
	managerRoles []string
}

func NewCatalogService(catalog domain.Catalog, arenas domain.ArenaRepository, games domain.GameRepository, auth domain.AuthGateway, managerRoles []string) *CatalogService {
	return &CatalogService{
		catalog:      catalog,
		arenas:       arenas,
		games:        games,
		auth:         auth,
		managerRoles: managerRoles,
	}
}

func (s *CatalogService) Arenas(ctx context.Context) ([]domain.Arena, error) {
	return s.catalog.Arenas(ctx)
}

func (s *CatalogService) Games(ctx context.Context) ([]domain.Game, error) {
	return s.catalog.Games(ctx)
}

// requireManager resolves the caller's role. A missing profile or role is
// ErrNoRole; a role outside the allow list is ErrForbidden.
func (s *CatalogService) requireManager(ctx context.Context) error {
	user, err := s.auth.Me(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrMissingToken) {
			return domain.ErrNoRole
		}
		return err
	}
	return domain.CanManage(user.Role, s.managerRoles)
}

func (s *CatalogService) CreateArena(ctx context.Context, name, address string) (map[string]any, error) {
	if err := s.requireManager(ctx); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("Missing name")
	}
	created, err := s.arenas.Create(ctx, name, strings.TrimSpace(address))
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, domain.CatalogArenas)
	return created, nil
}

// UpdateArena stores a blank address as null.
func (s *CatalogService) UpdateArena(ctx context.Context, id, name string, address *string) (map[string]any, error) {
	if err := s.requireManager(ctx); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if strings.TrimSpace(id) == "" || name == "" {
		return nil, domain.Invalid("Missing id or name")
	}
	updated, err := s.arenas.Update(ctx, id, name, address)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, domain.CatalogArenas)
	return updated, nil
}

func (s *CatalogService) DeleteArena(ctx context.Context, id string) error {
	if err := s.requireManager(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return domain.Invalid("Missing id")
	}
	if err := s.arenas.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, domain.CatalogArenas)
	return nil
}

func (s *CatalogService) CreateGame(ctx context.Context, name, category string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("Missing name")
	}
	created, err := s.games.Create(ctx, name, strings.TrimSpace(category))
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, domain.CatalogGames)
	return created, nil
}

// UpdateGame leaves the category untouched when it is nil.
func (s *CatalogService) UpdateGame(ctx context.Context, id, name string, category *string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if strings.TrimSpace(id) == "" || name == "" {
		return nil, domain.Invalid("Missing id or name")
	}
	updated, err := s.games.Update(ctx, id, name, category)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, domain.CatalogGames)
	return updated, nil
}

func (s *CatalogService) DeleteGame(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.Invalid("Missing id")
	}
	if err := s.games.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, domain.CatalogGames)
	return nil
}

// invalidate never fails the write that triggered it; a stale list expires on its own.
func (s *CatalogService) invalidate(ctx context.Context, kind domain.CatalogKind) {
	if err := s.catalog.Invalidate(ctx, kind); err != nil {
		slog.WarnContext(ctx, "Catalog cache invalidation failed", "catalog", string(kind), "error", err)
	}
}
