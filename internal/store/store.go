// Package store keeps the history of finished crawl runs. It records
// outcomes only; in-flight progress is never checkpointed.
package store

import (
	"context"

	"github.com/sells-group/credit-crawler/internal/model"
)

// Store is the run-history persistence interface.
type Store interface {
	// CreateRun registers a new run in the running state.
	CreateRun(ctx context.Context) (*model.Run, error)
	// CompleteRun marks a run finished with its stats and report path.
	CompleteRun(ctx context.Context, runID string, stats model.RunStats, reportPath string) error
	// FailRun marks a run failed, keeping whatever stats it had.
	FailRun(ctx context.Context, runID string, stats model.RunStats, cause string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	// ListRuns returns runs newest first, up to limit (0 = a sane cap).
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
