package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pscheid92/arenadesk/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const catalogInvalidationChannel = "catalog:invalidate"

type CatalogInvalidationSubscriber struct {
	rdb   *goredis.Client
	cache *CatalogCache
}

func NewCatalogInvalidationSubscriber(rdb *goredis.Client, cache *CatalogCache) *CatalogInvalidationSubscriber {
	return &CatalogInvalidationSubscriber{rdb: rdb, cache: cache}
}

// Start blocks until ctx is cancelled or the subscription closes.
func (s *CatalogInvalidationSubscriber) Start(ctx context.Context) {
	pubsub := s.rdb.Subscribe(ctx, catalogInvalidationChannel)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				return
			}
			s.handleInvalidation(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

func (s *CatalogInvalidationSubscriber) handleInvalidation(payload string) {
	kind := domain.CatalogKind(payload)
	switch kind {
	case domain.CatalogArenas, domain.CatalogGames:
	default:
		slog.Warn("Unknown catalog invalidation message", "payload", payload)
		return
	}

	s.cache.dropLocal(kind)
	slog.Debug("Catalog cache invalidated via pub/sub", "catalog", payload)
}

func publishCatalogInvalidation(ctx context.Context, rdb goredis.Cmdable, kind domain.CatalogKind) error {
	if err := rdb.Publish(ctx, catalogInvalidationChannel, string(kind)).Err(); err != nil {
		return fmt.Errorf("failed to publish catalog invalidation: %w", err)
	}
	return nil
}
