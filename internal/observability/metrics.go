package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds OTel metric instruments for the scheduler. A nil
// *Metrics is valid and records nothing, so callers never need to guard.
type Metrics struct {
	Admissions      metric.Int64Counter
	Deferrals       metric.Int64Counter
	Rejections      metric.Int64Counter
	Dispatches      metric.Int64Counter
	RolloverBatches metric.Int64Counter
	RolloverSeconds metric.Float64Histogram
	QueueDepth      metric.Int64UpDownCounter
}

// NewMetrics creates the scheduler metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("replyhive")

	admissions, err := meter.Int64Counter("replyhive.admission.allowed",
		metric.WithDescription("Actions admitted immediately"),
	)
	if err != nil {
		return nil, err
	}

	deferrals, err := meter.Int64Counter("replyhive.admission.deferred",
		metric.WithDescription("Actions deferred into the queue"),
	)
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter("replyhive.admission.rejected",
		metric.WithDescription("Actions rejected outright"),
	)
	if err != nil {
		return nil, err
	}

	dispatches, err := meter.Int64Counter("replyhive.dispatch.executed",
		metric.WithDescription("Vendor-API actions executed"),
	)
	if err != nil {
		return nil, err
	}

	batches, err := meter.Int64Counter("replyhive.rollover.batches",
		metric.WithDescription("Rollover passes completed"),
	)
	if err != nil {
		return nil, err
	}

	seconds, err := meter.Float64Histogram("replyhive.rollover.duration_seconds",
		metric.WithDescription("Duration of a rollover pass"),
	)
	if err != nil {
		return nil, err
	}

	depth, err := meter.Int64UpDownCounter("replyhive.queue.depth",
		metric.WithDescription("Deferred queue depth delta"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		Admissions:      admissions,
		Deferrals:       deferrals,
		Rejections:      rejections,
		Dispatches:      dispatches,
		RolloverBatches: batches,
		RolloverSeconds: seconds,
		QueueDepth:      depth,
	}, nil
}

// RecordAdmission records an immediately admitted action.
func (m *Metrics) RecordAdmission(ctx context.Context, action string) {
	if m == nil {
		return
	}
	m.Admissions.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

// RecordDispatch records a vendor-API execution attempt and its outcome.
func (m *Metrics) RecordDispatch(ctx context.Context, action string, ok bool) {
	if m == nil {
		return
	}
	m.Dispatches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.Bool("success", ok),
	))
}

// RecordDeferral records an action deferred into the queue.
func (m *Metrics) RecordDeferral(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.Deferrals.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	m.QueueDepth.Add(ctx, 1)
}

// RecordRejection records a non-deferrable rejection.
func (m *Metrics) RecordRejection(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.Rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordRollover records a completed rollover pass.
func (m *Metrics) RecordRollover(ctx context.Context, drained int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RolloverBatches.Add(ctx, 1)
	m.RolloverSeconds.Record(ctx, elapsed.Seconds())
	m.QueueDepth.Add(ctx, int64(-drained))
}
