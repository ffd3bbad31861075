package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const minSessionSecretLen = 32

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`
	AppURL string `env:"APP_URL"`

	DirectusURL          string        `env:"DIRECTUS_URL"`
	DirectusServiceToken string        `env:"DIRECTUS_SERVICE_TOKEN"`
	DirectusTimeout      time.Duration `env:"DIRECTUS_TIMEOUT" default:"30s"`

	SessionSecret        string        `env:"SESSION_SECRET"`
	SessionEncryptionKey string        `env:"SESSION_ENCRYPTION_KEY"`
	RefreshTokenMaxAge   time.Duration `env:"REFRESH_TOKEN_MAX_AGE" default:"720h"` // 30 days

	RedisURL        string        `env:"REDIS_URL"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" default:"30s"`

	ScheduleTimezone string `env:"SCHEDULE_TIMEZONE" default:"Local"`
	DurationUnit     string `env:"DURATION_UNIT" default:"minutes"`
	ManagerRoles     string `env:"MANAGER_ROLES" default:"admin,director,owner,директор,управля"`

	LoginRateLimit float64 `env:"LOGIN_RATE_LIMIT" default:"1"`
	LoginRateBurst int     `env:"LOGIN_RATE_BURST" default:"5"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	location *time.Location
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Location is the time zone booking wall-clock times are interpreted in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// ManagerRoleList returns the lower-cased role-name fragments allowed to manage arenas.
func (c *Config) ManagerRoleList() []string {
	var roles []string
	for _, r := range strings.Split(c.ManagerRoles, ",") {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

func validate(cfg *Config) error {
	required := []struct{ name, value string }{
		{"DIRECTUS_URL", cfg.DirectusURL},
		{"DIRECTUS_SERVICE_TOKEN", cfg.DirectusServiceToken},
		{"SESSION_SECRET", cfg.SessionSecret},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	cfg.DirectusURL = strings.TrimRight(cfg.DirectusURL, "/")
	u, err := url.Parse(cfg.DirectusURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("DIRECTUS_URL must be an absolute http(s) URL, got %q", cfg.DirectusURL)
	}

	if cfg.AppURL != "" {
		if u, err := url.Parse(cfg.AppURL); err != nil || u.Host == "" {
			return fmt.Errorf("APP_URL must be an absolute URL, got %q", cfg.AppURL)
		}
	}

	if len(cfg.SessionSecret) < minSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLen)
	}

	switch len(cfg.SessionEncryptionKey) {
	case 0, 16, 24, 32:
	default:
		return errors.New("SESSION_ENCRYPTION_KEY must be 16, 24 or 32 bytes long")
	}

	switch cfg.DurationUnit {
	case "minutes", "hours":
	default:
		return fmt.Errorf("DURATION_UNIT must be 'minutes' or 'hours', got %q", cfg.DurationUnit)
	}

	loc, err := time.LoadLocation(cfg.ScheduleTimezone)
	if err != nil {
		return fmt.Errorf("SCHEDULE_TIMEZONE is invalid: %w", err)
	}
	cfg.location = loc

	if cfg.DirectusTimeout <= 0 {
		return errors.New("DIRECTUS_TIMEOUT must be positive")
	}
	if cfg.LoginRateLimit <= 0 || cfg.LoginRateBurst < 1 {
		return errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_BURST must be positive")
	}

	return nil
}
