package ports

import (
	"context"
	"iter"

	"github.com/edudash/credential-service/internal/core/domain"
	"github.com/edudash/credential-service/internal/pkg/hashcodec"
)

// CredentialStore is the persistence boundary for one tenant's credential
// records, across both source tables.
type CredentialStore interface {
	// FindByEmail returns domain.ErrCredentialNotFound when no row matches.
	FindByEmail(ctx context.Context, source domain.Source, email string) (*domain.Credential, error)

	// ListUnhashed lazily yields every row in source without a stored hash.
	// Each call starts a fresh scan. A scan that cannot be opened yields a
	// single error wrapping domain.ErrStoreUnavailable; an undecodable row
	// yields an error wrapping domain.ErrMalformedRecord and the scan goes on.
	ListUnhashed(ctx context.Context, source domain.Source) iter.Seq2[*domain.Credential, error]

	// SetHashedPassword stores hash on the row keyed by identifier, only if no
	// hash is present yet. When purgePlaintext is set the plaintext column is
	// removed in the same write.
	SetHashedPassword(ctx context.Context, source domain.Source, identifier, hash string, purgePlaintext bool) (domain.UpdateResult, error)
}

// CredentialStores hands out the store bound to a tenant's own backend.
type CredentialStores interface {
	ForTenant(tenantDomain string) (CredentialStore, bool)
}

// TenantResolver maps email domains and connection endpoints to tenants.
// A miss is a normal outcome reported through the boolean.
type TenantResolver interface {
	ResolveByEmail(email string) (domain.TenantProject, bool)
	ResolveByDomain(tenantDomain string) (domain.TenantProject, bool)
	ResolveByConnection(endpoint string) (domain.TenantProject, bool)
	Projects() []domain.TenantProject
}

// PasswordCodec hashes and verifies stored passwords.
type PasswordCodec interface {
	Hash(password string) (string, error)
	Check(password, stored string) hashcodec.Outcome
}
