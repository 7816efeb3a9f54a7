// Package rollover drains the deferred queue when a new window opens:
// items queued against any window that has since closed are re-evaluated
// through the admission controller and either dispatched, carried into
// the current window, or terminally failed. Sweeping every closed
// window, not just the most recent one, means a gap in coverage (worker
// outage, redeploy) delays deferred work instead of stranding it.
package rollover

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/replyhive/replyhive-go/internal/admission"
	"github.com/replyhive/replyhive-go/internal/dispatch"
	"github.com/replyhive/replyhive-go/internal/domain"
	"github.com/replyhive/replyhive-go/internal/observability"
	"github.com/replyhive/replyhive-go/internal/queue"
	"github.com/replyhive/replyhive-go/internal/window"
)

// Report summarizes one rollover pass.
type Report struct {
	Window     string `json:"window"`
	Skipped    bool   `json:"skipped"`
	Drained    int    `json:"drained"`
	Dispatched int    `json:"dispatched"`
	Requeued   int    `json:"requeued"`
	Failed     int    `json:"failed"`
}

// Processor runs the window-rollover pass. Run is safe to invoke on any
// cadence from any goroutine: concurrent invocations collapse to a
// single active pass. For multi-node deployments a single worker must
// own the pass; double-draining the same window would double-execute
// queued actions.
type Processor struct {
	ctrl  *admission.Controller
	queue queue.Store
	disp  *dispatch.Dispatcher

	batchSize int
	now       func() time.Time
	logger    *slog.Logger
	metrics   *observability.Metrics

	group         singleflight.Group
	mu            sync.Mutex
	lastProcessed atomic.Int64
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithBatchSize bounds how many items one pass drains.
func WithBatchSize(n int) Option {
	return func(p *Processor) { p.batchSize = n }
}

// WithMetrics attaches rollover metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// New creates a Processor.
func New(ctrl *admission.Controller, q queue.Store, disp *dispatch.Dispatcher, opts ...Option) *Processor {
	p := &Processor{
		ctrl:      ctrl,
		queue:     q,
		disp:      disp,
		batchSize: 50,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.lastProcessed.Store(-1)
	return p
}

// Run executes one rollover pass over every closed window. Concurrent
// calls share a single pass and its report.
func (p *Processor) Run(ctx context.Context) (Report, error) {
	v, err, _ := p.group.Do("rollover", func() (any, error) {
		return p.runOnce(ctx)
	})
	if err != nil {
		return Report{}, err
	}
	return v.(Report), nil
}

func (p *Processor) runOnce(ctx context.Context) (Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := window.At(p.now())
	// prev.Key is the inclusive upper bound of the sweep: every item at
	// or before it belongs to a closed window. Admission only ever
	// enqueues into the live window, so once the range drains to zero it
	// stays at zero until the clock advances.
	prev := current.Prev()
	report := Report{Window: prev.Label()}

	if p.lastProcessed.Load() == prev.Key {
		report.Skipped = true
		return report, nil
	}

	if _, err := p.queue.ResetStalled(ctx, prev.Key); err != nil {
		return report, fmt.Errorf("rollover: reset stalled items: %w", err)
	}

	queued, err := p.queue.CountQueued(ctx, prev.Key)
	if err != nil {
		return report, fmt.Errorf("rollover: count queued: %w", err)
	}
	if queued == 0 {
		p.lastProcessed.Store(prev.Key)
		report.Skipped = true
		return report, nil
	}

	start := p.now()
	batch, err := p.queue.DequeueBatch(ctx, prev.Key, p.batchSize)
	if err != nil {
		return report, fmt.Errorf("rollover: dequeue batch: %w", err)
	}

	for _, item := range batch {
		// Check-and-set: an item another path already moved on is left
		// alone, so a COMPLETED item is never revisited.
		ok, err := p.queue.CASStatus(ctx, item.ID, domain.StatusQueued, domain.StatusPending)
		if err != nil {
			p.logger.Error("rollover: claim item failed", "item", item.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		item.Status = domain.StatusPending

		report.Drained++
		switch p.processItem(ctx, item, current) {
		case domain.StatusCompleted:
			report.Dispatched++
		case domain.StatusQueued:
			report.Requeued++
		case domain.StatusFailed:
			report.Failed++
		}
	}

	if report.Drained > 0 {
		remaining, err := p.queue.CountQueued(ctx, prev.Key)
		if err == nil && remaining == 0 {
			p.lastProcessed.Store(prev.Key)
		}
	}

	p.metrics.RecordRollover(ctx, report.Dispatched+report.Failed, p.now().Sub(start))
	p.logger.Info("rollover pass complete",
		"window", report.Window, "drained", report.Drained,
		"dispatched", report.Dispatched, "requeued", report.Requeued, "failed", report.Failed)
	return report, nil
}

// processItem decides one claimed item's fate and persists it. Failures
// are isolated: no error escapes to abort the batch.
func (p *Processor) processItem(ctx context.Context, item domain.QueueItem, current window.Window) domain.ItemStatus {
	out, err := p.ctrl.Evaluate(ctx, item.TenantID, item.AccountID, item.Action)
	if err != nil {
		// Ledger unreachable: keep the item for the next pass.
		p.logger.Error("rollover: evaluate failed", "item", item.ID, "error", err)
		p.requeue(ctx, item, current, item.Attempts)
		return domain.StatusQueued
	}

	switch {
	case out.Allow:
		return p.dispatchItem(ctx, item, current, out)

	case out.Deferrable:
		// Still blocked by a deferrable limit: age into the next window.
		p.requeue(ctx, item, current, item.Attempts)
		return domain.StatusQueued

	default:
		item.Status = domain.StatusFailed
		item.Error = out.Reason
		if out.BlockReason != "" {
			item.BlockReason = out.BlockReason
		}
		p.persist(ctx, item)
		return domain.StatusFailed
	}
}

func (p *Processor) dispatchItem(ctx context.Context, item domain.QueueItem, current window.Window, out admission.Outcome) domain.ItemStatus {
	if _, err := p.ctrl.Commit(ctx, item.TenantID, item.AccountID, item.Action, out.Limits); err != nil {
		p.logger.Error("rollover: commit counters failed", "item", item.ID, "error", err)
		p.requeue(ctx, item, current, item.Attempts)
		return domain.StatusQueued
	}

	item.WindowKey = current.Key
	item.WindowLabel = current.Label()
	item.Status = domain.StatusProcessing
	if err := p.queue.Update(ctx, item); err != nil {
		p.logger.Error("rollover: mark processing failed", "item", item.ID, "error", err)
	}

	executed, execErr := p.disp.Execute(ctx, item)
	if execErr == nil {
		executed.Status = domain.StatusCompleted
		p.persist(ctx, executed)
		return domain.StatusCompleted
	}

	executed.Attempts++
	executed.RetryCount++
	if executed.Attempts >= executed.MaxAttempts {
		executed.Status = domain.StatusFailed
		p.persist(ctx, executed)
		return domain.StatusFailed
	}

	p.requeue(ctx, executed, current, executed.Attempts)
	return domain.StatusQueued
}

func (p *Processor) requeue(ctx context.Context, item domain.QueueItem, current window.Window, attempts int) {
	item.Status = domain.StatusQueued
	item.Attempts = attempts
	item.WindowKey = current.Key
	item.WindowLabel = current.Label()
	p.persist(ctx, item)
}

func (p *Processor) persist(ctx context.Context, item domain.QueueItem) {
	if err := p.queue.Update(ctx, item); err != nil {
		p.logger.Error("rollover: persist item failed", "item", item.ID, "status", item.Status, "error", err)
	}
}
