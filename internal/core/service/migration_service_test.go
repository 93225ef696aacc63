package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/edudash/credential-service/internal/core/domain"
	"github.com/edudash/credential-service/internal/core/ports"
	"github.com/edudash/credential-service/internal/pkg/hashcodec"
)

func newTestMigrationService(t *testing.T, stores stubStores, lock ports.MigrationLock, domains ...string) ports.MigrationService {
	t.Helper()
	return NewMigrationService(newTestRegistry(t, domains...), stores, newTestBatcher(BatcherConfig{}), lock, zerolog.Nop())
}

func TestMigrationService_Run_UnknownTenant(t *testing.T) {
	svc := newTestMigrationService(t, stubStores{}, NewLocalLock())

	if _, err := svc.Run(context.Background(), "unknown.tld"); !errors.Is(err, domain.ErrUnknownTenant) {
		t.Fatalf("expected ErrUnknownTenant, got %v", err)
	}
}

func TestMigrationService_Run_ThenLogin(t *testing.T) {
	store := newMemStore().
		add(student("S1", "amy@cfss.edu.hk", ptr("pw1"))).
		add(teacher("lee@cfss.edu.hk", ptr("chalk")))
	stores := stubStores{testTenant: store}
	auth := NewAuthService(newTestRegistry(t), stores, hashcodec.New(), "secret", time.Hour, zerolog.Nop())

	if _, err := auth.Authenticate(context.Background(), "amy@cfss.edu.hk", "pw1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("plaintext row must not authenticate before migration, got %v", err)
	}

	summary, err := newTestMigrationService(t, stores, NewLocalLock()).Run(context.Background(), testTenant)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Succeeded != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	id, err := auth.Authenticate(context.Background(), "amy@cfss.edu.hk", "pw1")
	if err != nil {
		t.Fatalf("login after migration failed: %v", err)
	}
	if id.Role != domain.RoleStudent {
		t.Fatalf("unexpected role %s", id.Role)
	}
	if id, err := auth.Authenticate(context.Background(), "lee@cfss.edu.hk", "chalk"); err != nil || id.Role != domain.RoleAdmin {
		t.Fatalf("teacher login after migration: id=%v err=%v", id, err)
	}
}

func TestMigrationService_Run_LockHeld(t *testing.T) {
	lock := NewLocalLock()
	token, err := lock.Acquire(context.Background(), testTenant)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	store := newMemStore().add(student("S1", "amy@cfss.edu.hk", ptr("pw1")))
	svc := newTestMigrationService(t, stubStores{testTenant: store}, lock)

	if _, err := svc.Run(context.Background(), testTenant); !errors.Is(err, domain.ErrMigrationInProgress) {
		t.Fatalf("expected ErrMigrationInProgress, got %v", err)
	}
	if store.writes != 0 {
		t.Fatalf("locked run must not write")
	}

	if err := lock.Release(context.Background(), testTenant, token); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := svc.Run(context.Background(), testTenant); err != nil {
		t.Fatalf("run after release: %v", err)
	}
	if _, err := lock.Acquire(context.Background(), testTenant); err != nil {
		t.Fatalf("run should release its lock: %v", err)
	}
}

func TestMigrationService_RunAll(t *testing.T) {
	cfss := newMemStore().add(student("S1", "amy@cfss.edu.hk", ptr("pw1")))
	demo := newMemStore().add(student("D1", "bob@demo.edudash.io", ptr("pw2")))
	svc := newTestMigrationService(t,
		stubStores{testTenant: cfss, "demo.edudash.io": demo},
		NewLocalLock(),
		testTenant, "demo.edudash.io", "orphan.edudash.io",
	)

	summaries, err := svc.RunAll(context.Background())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected joined store error for the tenant without a store, got %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected two summaries, got %d", len(summaries))
	}
	if summaries[0].Tenant != testTenant || summaries[1].Tenant != "demo.edudash.io" {
		t.Fatalf("summaries out of domain order: %s, %s", summaries[0].Tenant, summaries[1].Tenant)
	}
}

func TestLocalLock_TokenMismatchKeepsLock(t *testing.T) {
	lock := NewLocalLock()
	if _, err := lock.Acquire(context.Background(), testTenant); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	_ = lock.Release(context.Background(), testTenant, "stale")
	if _, err := lock.Acquire(context.Background(), testTenant); !errors.Is(err, domain.ErrMigrationInProgress) {
		t.Fatalf("stale token must not release the lock, got %v", err)
	}
	if _, err := lock.Acquire(context.Background(), "demo.edudash.io"); err != nil {
		t.Fatalf("other tenants are independent: %v", err)
	}
}
