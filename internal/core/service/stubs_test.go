package service

import (
	"context"
	"iter"
	"sync"
	"testing"

	"github.com/edudash/credential-service/internal/core/domain"
	"github.com/edudash/credential-service/internal/core/ports"
	"github.com/edudash/credential-service/internal/infrastructure/tenants"
)

const testTenant = "cfss.edu.hk"

func ptr(s string) *string { return &s }

// memStore is an in-memory ports.CredentialStore.
type memStore struct {
	mu       sync.Mutex
	rows     map[domain.Source][]*domain.Credential
	findErr  error
	scanErr  map[domain.Source]error
	writeErr map[string]error
	writes   int
}

func newMemStore() *memStore {
	return &memStore{
		rows:     make(map[domain.Source][]*domain.Credential),
		scanErr:  make(map[domain.Source]error),
		writeErr: make(map[string]error),
	}
}

func (m *memStore) add(c *domain.Credential) *memStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.Source] = append(m.rows[c.Source], c)
	return m
}

func cloneCredential(c *domain.Credential) *domain.Credential {
	clone := *c
	if c.PlaintextPassword != nil {
		clone.PlaintextPassword = ptr(*c.PlaintextPassword)
	}
	if c.HashedPassword != nil {
		clone.HashedPassword = ptr(*c.HashedPassword)
	}
	return &clone
}

func (m *memStore) get(source domain.Source, identifier string) *domain.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows[source] {
		if c.Identifier == identifier {
			return cloneCredential(c)
		}
	}
	return nil
}

func (m *memStore) FindByEmail(_ context.Context, source domain.Source, email string) (*domain.Credential, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows[source] {
		if c.Email == email {
			return cloneCredential(c), nil
		}
	}
	return nil, domain.ErrCredentialNotFound
}

func (m *memStore) ListUnhashed(_ context.Context, source domain.Source) iter.Seq2[*domain.Credential, error] {
	return func(yield func(*domain.Credential, error) bool) {
		if err := m.scanErr[source]; err != nil {
			yield(nil, err)
			return
		}
		m.mu.Lock()
		var pending []*domain.Credential
		for _, c := range m.rows[source] {
			if !c.IsMigrated() {
				pending = append(pending, cloneCredential(c))
			}
		}
		m.mu.Unlock()

		for _, c := range pending {
			if !yield(c, nil) {
				return
			}
		}
	}
}

func (m *memStore) SetHashedPassword(_ context.Context, source domain.Source, identifier, hash string, purgePlaintext bool) (domain.UpdateResult, error) {
	if err := m.writeErr[identifier]; err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows[source] {
		if c.Identifier != identifier {
			continue
		}
		if c.IsMigrated() {
			return domain.UpdateAlreadyHashed, nil
		}
		c.HashedPassword = ptr(hash)
		if purgePlaintext {
			c.PlaintextPassword = nil
		}
		m.writes++
		return domain.UpdateApplied, nil
	}
	return 0, domain.ErrCredentialNotFound
}

type stubStores map[string]ports.CredentialStore

func (s stubStores) ForTenant(d string) (ports.CredentialStore, bool) {
	st, ok := s[d]
	return st, ok
}

func newTestRegistry(t *testing.T, domains ...string) *tenants.Registry {
	t.Helper()
	if len(domains) == 0 {
		domains = []string{testTenant}
	}
	projects := make([]domain.TenantProject, 0, len(domains))
	for _, d := range domains {
		projects = append(projects, domain.TenantProject{
			Domain:      d,
			DisplayName: d,
			Connection:  domain.Connection{Endpoint: "mongodb://" + d, Database: "school"},
		})
	}
	reg, err := tenants.New(projects)
	if err != nil {
		t.Fatalf("tenants.New: %v", err)
	}
	return reg
}
