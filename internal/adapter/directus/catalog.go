package directus

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pscheid92/arenadesk/internal/domain"
)

const (
	arenasPath = "/items/arenas"
	gamesPath  = "/items/games"
)

type arenaRecord struct {
	ID      flexID  `json:"id"`
	Name    *string `json:"name"`
	Address *string `json:"address"`
}

// ArenaRepo lists arenas with the service token and mutates them with the
// signed-in user's token so Directus enforces that user's permissions.
type ArenaRepo struct {
	client *Client
}

var _ domain.ArenaRepository = (*ArenaRepo)(nil)

func NewArenaRepo(c *Client) *ArenaRepo {
	return &ArenaRepo{client: c}
}

// List falls back to id,name when the schema has no address field or the
// token may not read it.
func (r *ArenaRepo) List(ctx context.Context) ([]domain.Arena, error) {
	var records []arenaRecord
	err := r.client.Do(ctx, Request{Path: arenasPath, Query: NewQuery().Fields("id", "name", "address").Sort("name").Values()}, &records)
	if err != nil {
		slog.WarnContext(ctx, "Arena list failed, retrying without address", "error", err)
		records = nil
		if err := r.client.Do(ctx, Request{Path: arenasPath, Query: NewQuery().Fields("id", "name").Sort("name").Values()}, &records); err != nil {
			return nil, err
		}
	}

	arenas := make([]domain.Arena, len(records))
	for i, rec := range records {
		a := domain.Arena{ID: string(rec.ID), Name: deref(rec.Name), Address: rec.Address}
		a.Title = a.Name
		if rec.Name == nil {
			a.Title = "Arena " + a.ID
		}
		arenas[i] = a
	}
	return arenas, nil
}

func (r *ArenaRepo) Create(ctx context.Context, name, address string) (map[string]any, error) {
	payload := map[string]any{"name": name}
	if address != "" {
		payload["address"] = address
	}
	var created map[string]any
	err := r.client.Do(ctx, Request{Method: http.MethodPost, Path: arenasPath, Body: payload, Auth: AsUser}, &created)
	return created, err
}

func (r *ArenaRepo) Update(ctx context.Context, id, name string, address *string) (map[string]any, error) {
	payload := map[string]any{"name": name, "address": nil}
	if a := nonBlank(address); a != nil {
		payload["address"] = strings.TrimSpace(*a)
	}
	var updated map[string]any
	err := r.client.Do(ctx, Request{Method: http.MethodPatch, Path: arenasPath + "/" + url.PathEscape(id), Body: payload, Auth: AsUser}, &updated)
	return updated, err
}

func (r *ArenaRepo) Delete(ctx context.Context, id string) error {
	return r.client.Do(ctx, Request{Method: http.MethodDelete, Path: arenasPath + "/" + url.PathEscape(id), Auth: AsUser}, nil)
}

type gameRecord struct {
	ID             flexID   `json:"id"`
	Name           *string  `json:"name"`
	Category       *string  `json:"category"`
	PricePerPlayer *float64 `json:"price_per_player"`
}

type GameRepo struct {
	client *Client
}

var _ domain.GameRepository = (*GameRepo)(nil)

func NewGameRepo(c *Client) *GameRepo {
	return &GameRepo{client: c}
}

func (r *GameRepo) List(ctx context.Context) ([]domain.Game, error) {
	var records []gameRecord
	err := r.client.Do(ctx, Request{Path: gamesPath, Query: NewQuery().Fields("id", "name", "category", "price_per_player").Sort("name").Values()}, &records)
	if err != nil {
		slog.WarnContext(ctx, "Game list failed, retrying with id,name", "error", err)
		records = nil
		if err := r.client.Do(ctx, Request{Path: gamesPath, Query: NewQuery().Fields("id", "name").Sort("name").Values()}, &records); err != nil {
			return nil, err
		}
	}

	games := make([]domain.Game, len(records))
	for i, rec := range records {
		games[i] = domain.Game{
			ID:             string(rec.ID),
			Name:           deref(rec.Name),
			Category:       rec.Category,
			PricePerPlayer: rec.PricePerPlayer,
		}
	}
	return games, nil
}

func (r *GameRepo) Create(ctx context.Context, name, category string) (map[string]any, error) {
	payload := map[string]any{"name": name}
	if category != "" {
		payload["category"] = category
	}
	var created map[string]any
	err := r.client.Do(ctx, Request{Method: http.MethodPost, Path: gamesPath, Body: payload}, &created)
	return created, err
}

// Update leaves category untouched when it is nil.
func (r *GameRepo) Update(ctx context.Context, id, name string, category *string) (map[string]any, error) {
	payload := map[string]any{"name": name}
	if category != nil {
		payload["category"] = *category
	}
	var updated map[string]any
	err := r.client.Do(ctx, Request{Method: http.MethodPatch, Path: gamesPath + "/" + url.PathEscape(id), Body: payload}, &updated)
	return updated, err
}

func (r *GameRepo) Delete(ctx context.Context, id string) error {
	return r.client.Do(ctx, Request{Method: http.MethodDelete, Path: gamesPath + "/" + url.PathEscape(id)}, nil)
}
