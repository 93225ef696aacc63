package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/edudash/credential-service/internal/infrastructure/tenants"
	"github.com/edudash/credential-service/internal/pkg/config"
	"github.com/edudash/credential-service/pkg/logger"
)

// cli carries state shared by every subcommand.
type cli struct {
	tenantsFile string
	verbose     bool
	lookuper    envconfig.Lookuper
}

func newRootCmd() *cobra.Command {
	c := &cli{lookuper: envconfig.OsLookuper()}

	root := &cobra.Command{
		Use:   "credmigrate",
		Short: "Credential migration CLI",
		Long: `credmigrate moves plaintext passwords of tenant schools to the canonical
salted hash format and inspects the tenant table.

Configuration comes from the same environment variables as the server
(TENANTS_FILE, MONGO_TIMEOUT, REDIS_ADDR, MIGRATION_*).

Example usage:
  credmigrate tenants                          # List configured tenants
  credmigrate run --tenant cfss.edu.hk         # Migrate one tenant
  credmigrate run --all --workers 4 --json     # Migrate every tenant`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&c.tenantsFile, "tenants-file", "", "tenant table (default: $TENANTS_FILE)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newRunCmd(c), newTenantsCmd(c), newHashCmd(), newVerifyCmd())
	return root
}

func (c *cli) config(ctx context.Context) (*config.Config, error) {
	cfg, err := config.LoadWith(ctx, c.lookuper)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if c.tenantsFile != "" {
		cfg.TenantsFile = c.tenantsFile
	}
	return cfg, nil
}

func (c *cli) registry(cfg *config.Config) (*tenants.Registry, error) {
	return tenants.LoadFile(cfg.TenantsFile)
}

func (c *cli) logger(cfg *config.Config) zerolog.Logger {
	level := cfg.LogLevel
	if c.verbose {
		level = "debug"
	}
	return logger.Init(logger.Options{Level: level, Pretty: true, Output: os.Stderr, Service: "credmigrate"})
}
