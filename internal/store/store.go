// internal/store/store.go
package store

import (
	"context"
)

// Store defines the persistence contract for the check pipeline. Run history
// is ordered by run_at descending everywhere.
type Store interface {
	// Run history
	SaveRun(ctx context.Context, run *CheckRun) (string, error)
	GetRuns(ctx context.Context, filters RunFilters) ([]CheckRun, error)
	GetLatestRun(ctx context.Context, checkName string) (*CheckRun, error)

	// Current state
	GetState(ctx context.Context, checkName string) (*CheckState, error)
	UpdateState(ctx context.Context, state *CheckState) error

	// Maintenance
	CleanupOlderThan(ctx context.Context, days int) (int, error)
	GetStatusCounts(ctx context.Context, checkName string, sinceDays int) (map[Status]int, error)

	Close() error
}
