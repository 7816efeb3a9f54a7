// Package activities implements the Temporal activities behind the
// scheduler workflows.
package activities

import (
	"context"
	"fmt"
	"time"

	"github.com/replyhive/replyhive-go/internal/queue"
	"github.com/replyhive/replyhive-go/internal/rollover"
)

// Activities holds the dependencies for all Temporal activities. Each
// method is registered as a Temporal activity.
type Activities struct {
	Processor *rollover.Processor
	Queue     queue.Store

	// Retention bounds how long queue items are kept regardless of
	// status.
	Retention time.Duration
}

// RunRollover executes one rollover pass. It is idempotent and safe to
// invoke on any cadence; concurrent invocations collapse inside the
// processor.
func (a *Activities) RunRollover(ctx context.Context) (RolloverOutput, error) {
	report, err := a.Processor.Run(ctx)
	if err != nil {
		return RolloverOutput{}, fmt.Errorf("rollover activity: %w", err)
	}
	return RolloverOutput{Report: report}, nil
}

// PurgeExpired removes queue items older than the retention bound.
func (a *Activities) PurgeExpired(ctx context.Context) (PurgeOutput, error) {
	retention := a.Retention
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	cutoff := time.Now().UTC().Add(-retention)
	removed, err := a.Queue.Purge(ctx, cutoff)
	if err != nil {
		return PurgeOutput{}, fmt.Errorf("purge activity: %w", err)
	}
	return PurgeOutput{Removed: removed}, nil
}
