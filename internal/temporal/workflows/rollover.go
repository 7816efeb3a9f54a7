// Package workflows defines the Temporal workflow functions.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/replyhive/replyhive-go/internal/rollover"
	"github.com/replyhive/replyhive-go/internal/temporal/activities"
)

// RolloverResult is the output of the rollover workflow.
type RolloverResult struct {
	Report rollover.Report `json:"report"`
}

// RolloverWorkflow runs one window-rollover pass. It is scheduled on a
// cron cadence (every few minutes is fine: the activity is idempotent
// and skips windows it has already drained). Retries stay at one
// attempt per run: the next scheduled run is the retry.
func RolloverWorkflow(ctx workflow.Context) (RolloverResult, error) {
	logger := workflow.GetLogger(ctx)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	actCtx := workflow.WithActivityOptions(ctx, actOpts)

	var out activities.RolloverOutput
	if err := workflow.ExecuteActivity(actCtx, "RunRollover").Get(ctx, &out); err != nil {
		return RolloverResult{}, err
	}

	if !out.Report.Skipped {
		logger.Info("rollover pass",
			"window", out.Report.Window,
			"dispatched", out.Report.Dispatched,
			"requeued", out.Report.Requeued,
			"failed", out.Report.Failed)
	}
	return RolloverResult{Report: out.Report}, nil
}

// PurgeResult is the output of the purge workflow.
type PurgeResult struct {
	Removed int `json:"removed"`
}

// PurgeWorkflow removes queue items past the retention bound. Scheduled
// daily.
func PurgeWorkflow(ctx workflow.Context) (PurgeResult, error) {
	logger := workflow.GetLogger(ctx)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	actCtx := workflow.WithActivityOptions(ctx, actOpts)

	var out activities.PurgeOutput
	if err := workflow.ExecuteActivity(actCtx, "PurgeExpired").Get(ctx, &out); err != nil {
		return PurgeResult{}, err
	}

	logger.Info("purge pass", "removed", out.Removed)
	return PurgeResult{Removed: out.Removed}, nil
}
