package domain

import "context"

type Game struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Category       *string  `json:"category"`
	PricePerPlayer *float64 `json:"price_per_player,omitempty"`
}

type GameRepository interface {
	List(ctx context.Context) ([]Game, error)
	Create(ctx context.Context, name, category string) (map[string]any, error)
	Update(ctx context.Context, id, name string, category *string) (map[string]any, error)
	Delete(ctx context.Context, id string) error
}
