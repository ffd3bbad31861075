package domain

import "context"

// CatalogKind names one cached catalog list.
type CatalogKind string

const (
	CatalogArenas CatalogKind = "arenas"
	CatalogGames  CatalogKind = "games"
)

// Catalog serves the arena and game lists, possibly from a cache.
type Catalog interface {
	Arenas(ctx context.Context) ([]Arena, error)
	Games(ctx context.Context) ([]Game, error)
	Invalidate(ctx context.Context, kind CatalogKind) error
}
