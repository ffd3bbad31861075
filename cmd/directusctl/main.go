// Command directusctl inspects and prepares the Directus project the admin
// panel runs against: permissions for branch admins and optional game fields.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/arenadesk/internal/adapter/directus"
	"github.com/pscheid92/arenadesk/internal/adapter/metrics"
	"github.com/pscheid92/arenadesk/internal/platform/logging"
	"github.com/pscheid92/arenadesk/internal/platform/version"
	"github.com/spf13/cobra"
	"go-simpler.org/env"
)

const branchAdminRole = "branch-admin"

type ctlConfig struct {
	DirectusURL string        `env:"DIRECTUS_URL"`
	AdminToken  string        `env:"DIRECTUS_ADMIN_TOKEN"`
	UserToken   string        `env:"DIRECTUS_USER_TOKEN"`
	Timeout     time.Duration `env:"DIRECTUS_TIMEOUT" default:"30s"`
	LogLevel    string        `env:"LOG_LEVEL" default:"warn"`
}

// cli carries what every subcommand needs once the root command has loaded
// its configuration.
type cli struct {
	cfg   ctlConfig
	admin *directus.AdminRepo
	role  string
}

func loadConfig() (ctlConfig, error) {
	_ = godotenv.Load()

	var cfg ctlConfig
	if err := env.Load(&cfg, nil); err != nil {
		return cfg, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if cfg.DirectusURL == "" {
		return cfg, errors.New("DIRECTUS_URL is required")
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "directusctl",
		Short:         "Check and prepare the Directus project behind arenadesk",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logging.Init(cfg.LogLevel, "text")

			c.cfg = cfg
			client := directus.NewClient(directus.Config{
				BaseURL:      cfg.DirectusURL,
				ServiceToken: cfg.AdminToken,
				Timeout:      cfg.Timeout,
			}, metrics.NewDirectusMetrics(prometheus.NewRegistry()))
			c.admin = directus.NewAdminRepo(client)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.role, "role", branchAdminRole, "Directus role the permissions apply to")

	root.AddCommand(
		newCheckCmd(c),
		newGrantPermissionsCmd(c),
		newAddFieldCmd(c),
	)
	return root
}

// requireAdmin fails commands that cannot work without the admin token.
func (c *cli) requireAdmin() error {
	if c.cfg.AdminToken == "" {
		return errors.New("DIRECTUS_ADMIN_TOKEN is required")
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("directusctl failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
