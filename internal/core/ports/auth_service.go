package ports

import (
	"context"

	"github.com/edudash/credential-service/internal/core/domain"
)

// AuthService authenticates users against their tenant's credential store.
type AuthService interface {
	Authenticate(ctx context.Context, email, password string) (*domain.Identity, error)
	Login(ctx context.Context, email, password string) (string, *domain.Identity, error)
}

// MigrationService runs plaintext-to-hash migrations per tenant.
type MigrationService interface {
	Run(ctx context.Context, tenantDomain string) (*domain.MigrationSummary, error)
	RunAll(ctx context.Context) ([]*domain.MigrationSummary, error)
}

// MigrationLock keeps two runs for the same tenant from overlapping, across
// processes. Acquire returns domain.ErrMigrationInProgress when the lock is held.
type MigrationLock interface {
	Acquire(ctx context.Context, tenantDomain string) (token string, err error)
	Release(ctx context.Context, tenantDomain, token string) error
}
