package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/edudash/credential-service/internal/core/domain"
	"github.com/edudash/credential-service/internal/core/ports"
	"github.com/edudash/credential-service/internal/core/service"
	"github.com/edudash/credential-service/internal/infrastructure/db/mongo"
	"github.com/edudash/credential-service/internal/infrastructure/db/redis"
	"github.com/edudash/credential-service/internal/pkg/hashcodec"
	"github.com/edudash/credential-service/pkg/logger"
)

type runOptions struct {
	tenants        []string
	all            bool
	workers        int
	writesPerSec   float64
	purgePlaintext bool
	noLock         bool
	asJSON         bool
}

func newRunCmd(c *cli) *cobra.Command {
	var o runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Hash plaintext passwords of one or more tenants",
		Long: `Run migrates every credential row without a stored hash. Rows are hashed
with a fresh salt and written only while they are still unhashed, so the
command is safe to rerun and safe next to a running server.

Rows without any plaintext password are marked as unset and reported as
failures on the first run.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if !o.all && len(o.tenants) == 0 {
				return errors.New("pass --tenant <domain> or --all")
			}
			if o.workers < 0 || o.writesPerSec < 0 {
				return errors.New("--workers and --writes-per-second must not be negative")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.run(ctx, cmd, o)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&o.tenants, "tenant", "t", nil, "tenant domain to migrate (repeatable)")
	f.BoolVar(&o.all, "all", false, "migrate every configured tenant")
	f.IntVarP(&o.workers, "workers", "w", 0, "concurrent record writes (default: $MIGRATION_WORKERS)")
	f.Float64Var(&o.writesPerSec, "writes-per-second", 0, "cap on hash writes per second (default: $MIGRATION_WRITES_PER_SECOND)")
	f.BoolVar(&o.purgePlaintext, "purge-plaintext", false, "remove the plaintext column after a confirmed write")
	f.BoolVar(&o.noLock, "no-lock", false, "skip the Redis tenant lock")
	f.BoolVar(&o.asJSON, "json", false, "print summaries as JSON")
	cmd.MarkFlagsMutuallyExclusive("tenant", "all")
	return cmd
}

func (c *cli) run(ctx context.Context, cmd *cobra.Command, o runOptions) error {
	cfg, err := c.config(ctx)
	if err != nil {
		return err
	}
	log := c.logger(cfg)

	reg, err := c.registry(cfg)
	if err != nil {
		return err
	}

	targets := reg.Projects()
	if !o.all {
		targets = targets[:0:0]
		for _, d := range o.tenants {
			p, ok := reg.ResolveByDomain(d)
			if !ok {
				return fmt.Errorf("%w: %s", domain.ErrUnknownTenant, d)
			}
			targets = append(targets, p)
		}
	}

	stores, err := mongo.ConnectTenants(ctx, targets, cfg.Mongo.Timeout)
	if err != nil {
		return err
	}
	defer func() { _ = stores.Close(context.Background()) }()

	var lock ports.MigrationLock = service.NewLocalLock()
	if !o.noLock && cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer func(r *goredis.Client) { _ = r.Close() }(rdb)
		lock = redis.NewMigrationLock(rdb, cfg.Migration.LockTTL)
	}

	bc := service.BatcherConfig{
		Workers:         cfg.Migration.Workers,
		WritesPerSecond: cfg.Migration.WritesPerSecond,
		RecordTimeout:   cfg.Migration.RecordTimeout,
		PurgePlaintext:  cfg.Migration.PurgePlaintext || o.purgePlaintext,
	}
	if o.workers > 0 {
		bc.Workers = o.workers
	}
	if o.writesPerSec > 0 {
		bc.WritesPerSecond = o.writesPerSec
	}

	codec := hashcodec.New(hashcodec.WithLogger(logger.With("hashcodec")))
	batcher := service.NewMigrationBatcher(codec, bc, logger.With("migration"))
	svc := service.NewMigrationService(reg, stores, batcher, lock, logger.With("migration"))

	var (
		summaries []*domain.MigrationSummary
		runErr    error
	)
	if o.all {
		summaries, runErr = svc.RunAll(ctx)
	} else {
		var errs []error
		for _, p := range targets {
			s, err := svc.Run(ctx, p.Domain)
			if err != nil {
				errs = append(errs, fmt.Errorf("tenant %s: %w", p.Domain, err))
				continue
			}
			summaries = append(summaries, s)
		}
		runErr = errors.Join(errs...)
	}

	if err := printSummaries(cmd, summaries, o.asJSON); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	for _, s := range summaries {
		if s.Status() != "ok" {
			log.Warn().Str("tenant", s.Tenant).Str("status", s.Status()).Msg("migration incomplete, rerun to retry failed records")
			return fmt.Errorf("tenant %s finished with status %s", s.Tenant, s.Status())
		}
	}
	return nil
}

func printSummaries(cmd *cobra.Command, summaries []*domain.MigrationSummary, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	for _, s := range summaries {
		fmt.Fprintf(out, "%s  run=%s  status=%s  processed=%d succeeded=%d failed=%d skipped=%d\n",
			s.Tenant, s.RunID, s.Status(), s.Processed, s.Succeeded, s.Failed, s.Skipped)
		for _, tf := range s.TableFailures {
			fmt.Fprintf(out, "  table %s: %s\n", tf.Source, tf.Error)
		}
		for _, rf := range s.Errors {
			fmt.Fprintf(out, "  %s %s <%s>: %s\n", rf.Source, rf.Identifier, rf.Email, rf.Error)
		}
	}
	return nil
}
