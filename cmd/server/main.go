package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/edudash/credential-service/internal/api"
	"github.com/edudash/credential-service/internal/core/domain"
	"github.com/edudash/credential-service/internal/core/ports"
	"github.com/edudash/credential-service/internal/core/service"
	"github.com/edudash/credential-service/internal/infrastructure/db/mongo"
	"github.com/edudash/credential-service/internal/infrastructure/db/redis"
	"github.com/edudash/credential-service/internal/infrastructure/http/handlers"
	"github.com/edudash/credential-service/internal/infrastructure/queue"
	"github.com/edudash/credential-service/internal/infrastructure/tenants"
	"github.com/edudash/credential-service/internal/pkg/config"
	"github.com/edudash/credential-service/internal/pkg/hashcodec"
	"github.com/edudash/credential-service/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "credential-service",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := tenants.LoadFile(cfg.TenantsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("loading tenant table")
	}
	log.Info().Int("tenants", len(registry.Projects())).Str("file", cfg.TenantsFile).Msg("tenant table loaded")

	stores, err := mongo.ConnectTenants(ctx, registry.Projects(), cfg.Mongo.Timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting tenant databases")
	}
	defer func() {
		if err := stores.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("closing tenant databases")
		}
	}()
	if err := stores.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("credential indexes not ensured")
	}

	var (
		lock      ports.MigrationLock = service.NewLocalLock()
		redisPing handlers.RedisPinger
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("connecting redis")
		}
		defer func(c *goredis.Client) { _ = c.Close() }(rdb)
		lock = redis.NewMigrationLock(rdb, cfg.Migration.LockTTL)
		redisPing = rdb
	} else {
		log.Warn().Msg("REDIS_ADDR unset, migration lock is process local")
	}

	codec := hashcodec.New(hashcodec.WithLogger(logger.With("hashcodec")))
	authService := service.NewAuthService(registry, stores, codec, cfg.JWTSecret, cfg.TokenTTL, logger.With("auth"))
	batcher := service.NewMigrationBatcher(codec, service.BatcherConfig{
		Workers:         cfg.Migration.Workers,
		WritesPerSecond: cfg.Migration.WritesPerSecond,
		RecordTimeout:   cfg.Migration.RecordTimeout,
		PurgePlaintext:  cfg.Migration.PurgePlaintext,
	}, logger.With("migration"))
	migrations := service.NewMigrationService(registry, stores, batcher, lock, logger.With("migration"))

	dispatchLog := logger.With("dispatcher")
	dispatcher := queue.NewDispatcher(cfg.Migration.DispatcherWorkers, migrations,
		func(tenant string, summary *domain.MigrationSummary, err error) {
			if err == nil {
				dispatchLog.Info().Str("tenant", tenant).Str("run_id", summary.RunID).Str("status", summary.Status()).Msg("queued migration done")
			}
		}, dispatchLog)
	dispatcher.Start(ctx)

	e, err := api.NewRouter(api.Deps{
		Auth:         authService,
		Codec:        codec,
		Migrations:   migrations,
		Dispatcher:   dispatcher,
		Tenants:      registry,
		TenantHealth: stores,
		Redis:        redisPing,
		JWTSecret:    cfg.JWTSecret,
		Log:          logger.With("http"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("building router")
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	dispatcher.Close()
}
