package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/edudash/credential-service/internal/api/metrics"
	"github.com/edudash/credential-service/internal/core/domain"
	"github.com/edudash/credential-service/internal/core/ports"
)

type migrationService struct {
	tenants ports.TenantResolver
	stores  ports.CredentialStores
	batcher *MigrationBatcher
	lock    ports.MigrationLock
	log     zerolog.Logger
}

// NewMigrationService returns a MigrationService that serialises runs per
// tenant through lock.
func NewMigrationService(
	tenants ports.TenantResolver,
	stores ports.CredentialStores,
	batcher *MigrationBatcher,
	lock ports.MigrationLock,
	log zerolog.Logger,
) ports.MigrationService {
	return &migrationService{
		tenants: tenants,
		stores:  stores,
		batcher: batcher,
		lock:    lock,
		log:     log,
	}
}

func (s *migrationService) Run(ctx context.Context, tenantDomain string) (*domain.MigrationSummary, error) {
	project, ok := s.tenants.ResolveByDomain(tenantDomain)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTenant, tenantDomain)
	}
	log := s.log.With().Str("tenant", project.Domain).Logger()

	store, ok := s.stores.ForTenant(project.Domain)
	if !ok {
		metrics.MigrationRunsTotal.WithLabelValues(project.Domain, "error").Inc()
		return nil, fmt.Errorf("%w: no store bound for tenant %s", domain.ErrStoreUnavailable, project.Domain)
	}

	token, err := s.lock.Acquire(ctx, project.Domain)
	if err != nil {
		if errors.Is(err, domain.ErrMigrationInProgress) {
			metrics.MigrationRunsTotal.WithLabelValues(project.Domain, "locked").Inc()
			log.Info().Msg("migration skipped, another run holds the lock")
		} else {
			metrics.MigrationRunsTotal.WithLabelValues(project.Domain, "error").Inc()
		}
		return nil, err
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), project.Domain, token); err != nil {
			log.Error().Err(err).Msg("releasing migration lock failed")
		}
	}()

	start := time.Now()
	log.Info().Msg("migration started")
	summary := s.batcher.Run(ctx, project.Domain, store)

	metrics.MigrationRunDuration.WithLabelValues(project.Domain).Observe(time.Since(start).Seconds())
	metrics.MigrationRunsTotal.WithLabelValues(project.Domain, summary.Status()).Inc()
	metrics.MigrationRecordsTotal.WithLabelValues(project.Domain, "succeeded").Add(float64(summary.Succeeded))
	metrics.MigrationRecordsTotal.WithLabelValues(project.Domain, "failed").Add(float64(summary.Failed))
	metrics.MigrationRecordsTotal.WithLabelValues(project.Domain, "skipped").Add(float64(summary.Skipped))

	log.Info().
		Str("run_id", summary.RunID).
		Str("status", summary.Status()).
		Int("processed", summary.Processed).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Dur("took", time.Since(start)).
		Msg("migration finished")
	return summary, nil
}

// RunAll migrates every configured tenant in domain order. A tenant that
// cannot run does not stop the others; its error is joined into the result.
func (s *migrationService) RunAll(ctx context.Context) ([]*domain.MigrationSummary, error) {
	var (
		summaries []*domain.MigrationSummary
		errs      []error
	)
	for _, p := range s.tenants.Projects() {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		summary, err := s.Run(ctx, p.Domain)
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", p.Domain, err))
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, errors.Join(errs...)
}

// LocalLock is an in-process MigrationLock for single-instance deployments
// and tools that run without Redis.
type LocalLock struct {
	mu   sync.Mutex
	held map[string]string
	seq  int
}

func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]string)}
}

func (l *LocalLock) Acquire(_ context.Context, tenantDomain string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[tenantDomain]; ok {
		return "", domain.ErrMigrationInProgress
	}
	l.seq++
	token := fmt.Sprintf("local-%d", l.seq)
	l.held[tenantDomain] = token
	return token, nil
}

func (l *LocalLock) Release(_ context.Context, tenantDomain, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[tenantDomain] == token {
		delete(l.held, tenantDomain)
	}
	return nil
}
