package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port        string        `env:"PORT,         default=8080"`
	Env         string        `env:"ENV,          default=development"`
	JWTSecret   string        `env:"JWT_SECRET"`
	LogLevel    string        `env:"LOG_LEVEL,    default=info"`
	TokenTTL    time.Duration `env:"TOKEN_TTL,    default=24h"`
	TenantsFile string        `env:"TENANTS_FILE, default=config/tenants.yaml"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Migration MigrationConfig
}

type MongoConfig struct {
	Timeout time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// MigrationConfig tunes plaintext-to-hash migration runs.
type MigrationConfig struct {
	Workers           int           `env:"MIGRATION_WORKERS,           default=1"`
	WritesPerSecond   float64       `env:"MIGRATION_WRITES_PER_SECOND, default=0"`
	RecordTimeout     time.Duration `env:"MIGRATION_RECORD_TIMEOUT,    default=10s"`
	PurgePlaintext    bool          `env:"MIGRATION_PURGE_PLAINTEXT,   default=false"`
	LockTTL           time.Duration `env:"MIGRATION_LOCK_TTL,          default=15m"`
	DispatcherWorkers int           `env:"DISPATCHER_WORKERS,          default=4"`
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.IsProduction() && c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required in production"))
	}
	if c.TenantsFile == "" {
		errs = append(errs, errors.New("TENANTS_FILE must not be empty"))
	}
	if c.Migration.Workers < 1 {
		errs = append(errs, fmt.Errorf("MIGRATION_WORKERS must be at least 1, got %d", c.Migration.Workers))
	}
	if c.Migration.WritesPerSecond < 0 {
		errs = append(errs, fmt.Errorf("MIGRATION_WRITES_PER_SECOND must not be negative, got %v", c.Migration.WritesPerSecond))
	}
	if c.Migration.DispatcherWorkers < 1 {
		errs = append(errs, fmt.Errorf("DISPATCHER_WORKERS must be at least 1, got %d", c.Migration.DispatcherWorkers))
	}
	return errors.Join(errs...)
}

// LoadWith reads and validates configuration from lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}
