// Package dispatch executes admitted actions against the external social
// API. The vendor client is an adapter boundary: the core only relies on
// the VendorClient contract.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/replyhive/replyhive-go/internal/domain"
	"github.com/replyhive/replyhive-go/internal/observability"
)

// VendorClient is the contract for the external social API. Timeouts are
// the client's concern, not the scheduler's.
type VendorClient interface {
	ReplyToComment(ctx context.Context, p domain.CommentPayload) (string, error)
	SendDM(ctx context.Context, p domain.DMPayload) (string, error)
	CheckFollow(ctx context.Context, p domain.FollowCheckPayload) (bool, error)
	FetchProfile(ctx context.Context, p domain.ProfilePayload) (string, error)
	SendPostback(ctx context.Context, p domain.PostbackPayload) (string, error)
}

// Dispatcher routes queue items by payload kind to the vendor client.
// It is the only writer of an item's result, error, and processed-at
// fields; status and attempt bookkeeping stay with the rollover
// processor.
type Dispatcher struct {
	client  VendorClient
	limiter *EndpointLimiter
	now     func() time.Time
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithMetrics attaches dispatch metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New creates a Dispatcher.
func New(client VendorClient, limiter *EndpointLimiter, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:  client,
		limiter: limiter,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute runs the item's action and stamps result, error, and
// processed-at on the returned copy. A non-nil error means the vendor
// call failed; the caller decides between requeue and terminal failure
// based on the item's attempts.
func (d *Dispatcher) Execute(ctx context.Context, item domain.QueueItem) (domain.QueueItem, error) {
	if err := d.limiter.Wait(ctx, endpointFor(item.Action)); err != nil {
		return d.stamp(ctx, item, "", err)
	}

	kind, err := item.Payload.Kind()
	if err != nil {
		return d.stamp(ctx, item, "", fmt.Errorf("dispatch: %w", err))
	}
	if kind != item.Action {
		return d.stamp(ctx, item, "", fmt.Errorf("dispatch: payload variant %s does not match action %s", kind, item.Action))
	}

	var result string
	switch item.Action {
	case domain.ActionComment:
		result, err = d.client.ReplyToComment(ctx, *item.Payload.Comment)
	case domain.ActionDM:
		result, err = d.client.SendDM(ctx, *item.Payload.DM)
	case domain.ActionFollowCheck:
		var follows bool
		follows, err = d.client.CheckFollow(ctx, *item.Payload.FollowCheck)
		result = fmt.Sprintf("follows=%t", follows)
	case domain.ActionProfile:
		result, err = d.client.FetchProfile(ctx, *item.Payload.Profile)
	case domain.ActionPostback:
		result, err = d.client.SendPostback(ctx, *item.Payload.Postback)
	default:
		err = fmt.Errorf("dispatch: unknown action type %q", item.Action)
	}

	return d.stamp(ctx, item, result, err)
}

func (d *Dispatcher) stamp(ctx context.Context, item domain.QueueItem, result string, err error) (domain.QueueItem, error) {
	processedAt := d.now().UTC()
	item.ProcessedAt = &processedAt

	if err != nil {
		item.Error = err.Error()
		d.logger.Warn("dispatch failed",
			"item", item.ID, "action", item.Action, "attempt", item.Attempts+1, "error", err)
		d.metrics.RecordDispatch(ctx, string(item.Action), false)
		return item, err
	}

	item.Result = result
	item.Error = ""
	d.metrics.RecordDispatch(ctx, string(item.Action), true)
	return item, nil
}

func endpointFor(a domain.ActionType) string {
	switch a {
	case domain.ActionComment:
		return "comments"
	case domain.ActionDM, domain.ActionPostback:
		return "dms"
	case domain.ActionFollowCheck:
		return "follows"
	case domain.ActionProfile:
		return "profiles"
	}
	return ""
}
