// Package metrics defines and registers the custom Prometheus metrics of the
// credential service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default registry through promauto as soon as
// the package is imported.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "credentials"

// ── Login metrics ─────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts authentication attempts.
// Label:
//   - outcome: "success", "unknown_tenant", "not_found", "no_hash", "mismatch",
//     "malformed", "unset", "empty" or "store_unavailable"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of authentication attempts, by outcome.",
	},
	[]string{"outcome"},
)

// HashFormatVerificationsTotal counts stored hashes seen at verification time.
// Label:
//   - format: "bcrypt", "salted_sha256", "unset" or "malformed"
var HashFormatVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hash_format_verifications_total",
		Help:      "Total number of stored hashes verified, by detected format.",
	},
	[]string{"format"},
)

// ── Migration metrics ─────────────────────────────────────────────────────────

// MigrationRecordsTotal counts migration outcomes per record.
// Labels:
//   - tenant: tenant domain
//   - result: "succeeded", "failed" or "skipped"
var MigrationRecordsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "migration_records_total",
		Help:      "Total number of credential records handled by migration runs.",
	},
	[]string{"tenant", "result"},
)

// MigrationRunsTotal counts finished migration runs.
// Labels:
//   - tenant: tenant domain
//   - status: "ok", "partial", "table_failure", "cancelled", "locked" or "error"
var MigrationRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "migration_runs_total",
		Help:      "Total number of migration runs, by final status.",
	},
	[]string{"tenant", "status"},
)

// MigrationRunDuration measures a whole migration run for one tenant.
var MigrationRunDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "migration_run_duration_seconds",
		Help:      "Duration of a tenant migration run.",
		Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300, 900},
	},
	[]string{"tenant"},
)

// MigrationQueueDepth tracks tenants waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index
var MigrationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "migration_queue_depth",
		Help:      "Current number of tenant migrations pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
