package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/edudash/credential-service/internal/api/metrics"
	"github.com/edudash/credential-service/internal/core/domain"
	"github.com/edudash/credential-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

var (
	// ErrClosed is returned by Enqueue after Close or once the start context is done.
	ErrClosed = errors.New("dispatcher closed")
	// ErrQueueFull is returned when the tenant's worker buffer has no room.
	ErrQueueFull = errors.New("dispatcher queue full")
)

// CompletionFunc receives the outcome of every dispatched migration.
type CompletionFunc func(tenantDomain string, summary *domain.MigrationSummary, err error)

// Dispatcher runs tenant migrations on a fixed set of workers using consistent
// hashing on the tenant domain, so one tenant is never migrated twice at the
// same time by this process.
type Dispatcher struct {
	workers []chan string
	service ports.MigrationService
	onDone  CompletionFunc
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	done   <-chan struct{}
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used. onDone may be nil.
func NewDispatcher(numWorkers int, service ports.MigrationService, onDone CompletionFunc, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan string, numWorkers),
		service: service,
		onDone:  onDone,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan string, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled or
// once their channel is drained after Close.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	d.done = ctx.Done()
	d.mu.Unlock()
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue schedules a migration for tenantDomain on its worker. It never
// blocks: a full worker buffer yields ErrQueueFull.
func (d *Dispatcher) Enqueue(tenantDomain string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case <-d.done:
		return ErrClosed
	default:
	}

	idx := d.shardIndex(tenantDomain)
	select {
	case d.workers[idx] <- tenantDomain:
	default:
		return ErrQueueFull
	}
	metrics.MigrationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	return nil
}

// Close stops accepting work, lets the workers drain what is queued and waits
// for them to exit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// shardIndex maps a tenant domain deterministically to a worker index.
func (d *Dispatcher) shardIndex(tenantDomain string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tenantDomain))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan string) {
	defer d.wg.Done()
	depth := metrics.MigrationQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case tenant, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))

			summary, err := d.service.Run(ctx, tenant)
			if err != nil {
				ev := d.log.Error()
				if errors.Is(err, domain.ErrMigrationInProgress) {
					ev = d.log.Info()
				}
				ev.Err(err).
					Str("tenant", tenant).
					Int("worker_id", id).
					Msg("queued migration did not run")
			}
			if d.onDone != nil {
				d.onDone(tenant, summary, err)
			}
		}
	}
}
