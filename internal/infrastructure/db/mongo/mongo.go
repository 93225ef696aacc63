package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/edudash/credential-service/internal/core/domain"
	"github.com/edudash/credential-service/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// Config captures the settings required to reach one tenant's database.
type Config struct {
	URI      string
	Database string
	Username string
	Password string
	Timeout  time.Duration
}

// ConfigFor builds a Config from a tenant's connection descriptor.
func ConfigFor(p domain.TenantProject, timeout time.Duration) Config {
	return Config{
		URI:      p.Connection.Endpoint,
		Database: p.Connection.Database,
		Username: p.Connection.Username,
		Password: p.Connection.Password,
		Timeout:  timeout,
	}
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. A default timeout is
// applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{Username: cfg.Username, Password: cfg.Password})
	}

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// TenantStores owns one client and credential store per tenant. Tenants never
// share a client.
type TenantStores struct {
	clients map[string]*mongo.Client
	stores  map[string]*CredentialStore
}

// ConnectTenants connects to every tenant's backend. A tenant that cannot be
// reached fails the whole call so misconfiguration surfaces at startup.
func ConnectTenants(ctx context.Context, projects []domain.TenantProject, timeout time.Duration) (*TenantStores, error) {
	ts := &TenantStores{
		clients: make(map[string]*mongo.Client, len(projects)),
		stores:  make(map[string]*CredentialStore, len(projects)),
	}
	for _, p := range projects {
		client, db, err := Connect(ctx, ConfigFor(p, timeout))
		if err != nil {
			_ = ts.Close(ctx)
			return nil, fmt.Errorf("tenant %s: %w", p.Domain, err)
		}
		ts.clients[p.Domain] = client
		ts.stores[p.Domain] = NewCredentialStore(db, timeout)
	}
	return ts, nil
}

// ForTenant returns the credential store bound to a tenant.
func (ts *TenantStores) ForTenant(tenantDomain string) (ports.CredentialStore, bool) {
	s, ok := ts.stores[tenantDomain]
	if !ok {
		return nil, false
	}
	return s, true
}

// Ping checks every tenant's backend and returns per-tenant errors.
func (ts *TenantStores) Ping(ctx context.Context) map[string]error {
	out := make(map[string]error, len(ts.clients))
	for d, c := range ts.clients {
		out[d] = c.Ping(ctx, nil)
	}
	return out
}

// Close disconnects every tenant client.
func (ts *TenantStores) Close(ctx context.Context) error {
	var errs []error
	for d, c := range ts.clients {
		if err := c.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", d, err))
		}
	}
	return errors.Join(errs...)
}

// EnsureIndexes creates the credential lookup indexes in every tenant database.
func (ts *TenantStores) EnsureIndexes(ctx context.Context) error {
	for d, s := range ts.stores {
		if err := s.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("tenant %s: %w", d, err)
		}
	}
	return nil
}
