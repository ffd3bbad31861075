package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/arenadesk/internal/adapter/directus"
	"github.com/pscheid92/arenadesk/internal/adapter/httpserver"
	"github.com/pscheid92/arenadesk/internal/adapter/metrics"
	"github.com/pscheid92/arenadesk/internal/adapter/redis"
	"github.com/pscheid92/arenadesk/internal/app"
	"github.com/pscheid92/arenadesk/internal/domain"
	"github.com/pscheid92/arenadesk/internal/platform/config"
	"github.com/pscheid92/arenadesk/internal/platform/logging"
	"github.com/pscheid92/arenadesk/internal/platform/version"
	goredis "github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout       = 10 * time.Second
	cacheEvictionInterval = time.Minute
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupRedis connects the optional shared cache. Without REDIS_URL the
// catalog is cached in process memory only.
func setupRedis(ctx context.Context, cfg *config.Config, m *metrics.RedisMetrics) *goredis.Client {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, catalog cache is process-local")
		return nil
	}

	client, err := redis.NewClient(ctx, cfg.RedisURL, m)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *httpserver.Server, stopBackground context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopBackground()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Version)

	registry := metrics.NewRegistry()
	directusMetrics := metrics.NewDirectusMetrics(registry)
	cacheMetrics := metrics.NewCacheMetrics(registry)
	bookingMetrics := metrics.NewBookingMetrics(registry)
	redisMetrics := metrics.NewRedisMetrics(registry)

	bgCtx, stopBackground := context.WithCancel(context.Background())

	redisClient := setupRedis(bgCtx, cfg, redisMetrics)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	dc := directus.NewClient(directus.Config{
		BaseURL:      cfg.DirectusURL,
		ServiceToken: cfg.DirectusServiceToken,
		Timeout:      cfg.DirectusTimeout,
	}, directusMetrics)

	authAPI := directus.NewAuthAPI(dc, clock)
	arenaRepo := directus.NewArenaRepo(dc)
	gameRepo := directus.NewGameRepo(dc)
	bookingRepo := directus.NewBookingRepo(dc)
	clientRepo := directus.NewClientRepo(dc)

	// Pass nil explicitly to avoid a typed-nil Cmdable.
	var catalogCache *redis.CatalogCache
	if redisClient != nil {
		catalogCache = redis.NewCatalogCache(redisClient, arenaRepo, gameRepo, cfg.CatalogCacheTTL, clock, cacheMetrics)
		subscriber := redis.NewCatalogInvalidationSubscriber(redisClient, catalogCache)
		go subscriber.Start(bgCtx)
	} else {
		catalogCache = redis.NewCatalogCache(nil, arenaRepo, gameRepo, cfg.CatalogCacheTTL, clock, cacheMetrics)
	}
	stopEviction := catalogCache.StartEvictionTimer(cacheEvictionInterval)
	defer stopEviction()

	authSvc := app.NewAuthService(authAPI, clock, bookingMetrics)
	catalogSvc := app.NewCatalogService(catalogCache, arenaRepo, gameRepo, authAPI, cfg.ManagerRoleList())
	bookingSvc := app.NewBookingService(bookingRepo, clientRepo, catalogCache, app.BookingOptions{
		Unit:     domain.DurationUnit(cfg.DurationUnit),
		Location: cfg.Location(),
	}, bookingMetrics)

	healthChecks := []httpserver.HealthCheck{
		{Name: "directus", Check: authAPI.ServerHealth},
	}
	if redisClient != nil {
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	srv, err := httpserver.NewServer(cfg, httpserver.Services{
		Auth:     authSvc,
		Bookings: bookingSvc,
		Catalog:  catalogSvc,
		Probe:    authAPI,
	}, registry, healthChecks)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, stopBackground)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
