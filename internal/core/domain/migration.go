package domain

import "time"

// RecordFailure describes one credential that could not be migrated.
type RecordFailure struct {
	Source     Source `json:"source"`
	Identifier string `json:"identifier,omitempty"`
	Email      string `json:"email,omitempty"`
	Error      string `json:"error"`
}

// TableFailure is recorded when a whole source could not be scanned.
type TableFailure struct {
	Source Source `json:"source"`
	Error  string `json:"error"`
}

// MigrationSummary aggregates the outcome of one migration run for one tenant.
type MigrationSummary struct {
	RunID         string          `json:"run_id"`
	Tenant        string          `json:"tenant"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
	Processed     int             `json:"processed"`
	Succeeded     int             `json:"succeeded"`
	Failed        int             `json:"failed"`
	Skipped       int             `json:"skipped"`
	Cancelled     bool            `json:"cancelled"`
	Errors        []RecordFailure `json:"errors"`
	TableFailures []TableFailure  `json:"table_failures,omitempty"`
}

// Status is a coarse label for metrics and logs.
func (s *MigrationSummary) Status() string {
	switch {
	case s.Cancelled:
		return "cancelled"
	case len(s.TableFailures) > 0:
		return "table_failure"
	case s.Failed > 0:
		return "partial"
	default:
		return "ok"
	}
}
