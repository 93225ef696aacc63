package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/edudash/credential-service/internal/core/domain"
	"github.com/edudash/credential-service/internal/core/ports"
	"github.com/edudash/credential-service/internal/pkg/hashcodec"
)

const defaultRecordTimeout = 10 * time.Second

// BatcherConfig tunes a migration run.
type BatcherConfig struct {
	// Workers is the number of records migrated concurrently; 1 is sequential.
	Workers int
	// WritesPerSecond caps hash writes per run; 0 disables pacing.
	WritesPerSecond float64
	// RecordTimeout bounds the write of a single record.
	RecordTimeout time.Duration
	// PurgePlaintext removes the plaintext column once the hash is stored.
	PurgePlaintext bool
}

// MigrationBatcher moves plaintext passwords of one tenant to the canonical
// hashed format. Runs are convergent: rows hashed by an earlier run are no
// longer listed, so a rerun only retries what failed.
type MigrationBatcher struct {
	codec ports.PasswordCodec
	cfg   BatcherConfig
	log   zerolog.Logger
	now   func() time.Time
}

func NewMigrationBatcher(codec ports.PasswordCodec, cfg BatcherConfig, log zerolog.Logger) *MigrationBatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = defaultRecordTimeout
	}
	return &MigrationBatcher{codec: codec, cfg: cfg, log: log, now: time.Now}
}

// tally is the mutex-guarded summary shared by the workers of a run.
type tally struct {
	mu      sync.Mutex
	summary domain.MigrationSummary
}

func (t *tally) succeed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Processed++
	t.summary.Succeeded++
}

func (t *tally) skip() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Processed++
	t.summary.Skipped++
}

func (t *tally) fail(f domain.RecordFailure) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Processed++
	t.summary.Failed++
	t.summary.Errors = append(t.summary.Errors, f)
}

func (t *tally) tableFailure(source domain.Source, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.TableFailures = append(t.summary.TableFailures, domain.TableFailure{Source: source, Error: err.Error()})
}

func (t *tally) cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.summary.Cancelled = true
}

// Run migrates every unhashed credential of both sources in store. It never
// fails as a whole: record errors and unreadable tables are reported in the
// summary. Cancelling ctx stops picking up new records; records already being
// written are finished.
func (b *MigrationBatcher) Run(ctx context.Context, tenant string, store ports.CredentialStore) *domain.MigrationSummary {
	t := &tally{summary: domain.MigrationSummary{
		RunID:     uuid.NewString(),
		Tenant:    tenant,
		StartedAt: b.now().UTC(),
		Errors:    []domain.RecordFailure{},
	}}
	log := b.log.With().Str("tenant", tenant).Str("run_id", t.summary.RunID).Logger()

	var limiter *rate.Limiter
	if b.cfg.WritesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(b.cfg.WritesPerSecond), 1)
	}

	for _, source := range domain.Sources {
		if ctx.Err() != nil {
			t.cancel()
			break
		}
		b.migrateSource(ctx, t, store, source, limiter, log.With().Str("source", string(source)).Logger())
	}

	t.summary.FinishedAt = b.now().UTC()
	return &t.summary
}

func (b *MigrationBatcher) migrateSource(ctx context.Context, t *tally, store ports.CredentialStore, source domain.Source, limiter *rate.Limiter, log zerolog.Logger) {
	var g errgroup.Group
	g.SetLimit(b.cfg.Workers)

	for cred, err := range store.ListUnhashed(ctx, source) {
		if ctx.Err() != nil {
			t.cancel()
			break
		}
		if err != nil {
			if errors.Is(err, domain.ErrMalformedRecord) {
				log.Warn().Err(err).Msg("skipping undecodable credential row")
				t.fail(domain.RecordFailure{Source: source, Error: err.Error()})
				continue
			}
			log.Error().Err(err).Msg("credential table scan failed")
			t.tableFailure(source, err)
			break
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				t.cancel()
				break
			}
		}

		if b.cfg.Workers == 1 {
			b.migrateRecord(ctx, t, store, cred, log)
			continue
		}
		g.Go(func() error {
			b.migrateRecord(ctx, t, store, cred, log)
			return nil
		})
	}

	_ = g.Wait()
}

// migrateRecord hashes one credential and stores the hash. Rows without a
// plaintext password get the unset sentinel so they stop being listed.
func (b *MigrationBatcher) migrateRecord(ctx context.Context, t *tally, store ports.CredentialStore, cred *domain.Credential, log zerolog.Logger) {
	log = log.With().Str("email", cred.Email).Logger()
	failure := domain.RecordFailure{Source: cred.Source, Identifier: cred.Identifier, Email: cred.Email}

	if cred.IsMigrated() {
		t.skip()
		return
	}
	if cred.Identifier == "" {
		failure.Error = fmt.Errorf("%w: missing identifier", domain.ErrMalformedRecord).Error()
		log.Warn().Msg(failure.Error)
		t.fail(failure)
		return
	}

	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.RecordTimeout)
	defer cancel()

	plaintext := cred.Plaintext()
	if plaintext == "" {
		res, err := store.SetHashedPassword(recCtx, cred.Source, cred.Identifier, hashcodec.UnsetSentinel, false)
		if err == nil && res == domain.UpdateAlreadyHashed {
			t.skip()
			return
		}
		failure.Error = domain.ErrMissingPlaintext.Error()
		if err != nil {
			failure.Error = fmt.Sprintf("%s; quarantine failed: %v", failure.Error, err)
		}
		log.Warn().Str("error", failure.Error).Msg("credential has no plaintext password")
		t.fail(failure)
		return
	}

	hash, err := b.codec.Hash(plaintext)
	if err != nil {
		failure.Error = err.Error()
		log.Error().Err(err).Msg("hashing credential failed")
		t.fail(failure)
		return
	}

	res, err := store.SetHashedPassword(recCtx, cred.Source, cred.Identifier, hash, b.cfg.PurgePlaintext)
	switch {
	case err != nil:
		failure.Error = err.Error()
		log.Error().Err(err).Msg("storing credential hash failed")
		t.fail(failure)
	case res == domain.UpdateAlreadyHashed:
		log.Debug().Msg("credential hashed concurrently")
		t.skip()
	default:
		t.succeed()
	}
}
