package domain

import "context"

type Arena struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Name    string  `json:"name,omitempty"`
	Address *string `json:"address"`
}

type ArenaRepository interface {
	List(ctx context.Context) ([]Arena, error)
	Create(ctx context.Context, name, address string) (map[string]any, error)
	Update(ctx context.Context, id, name string, address *string) (map[string]any, error)
	Delete(ctx context.Context, id string) error
}
