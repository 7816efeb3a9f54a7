// Package admission implements the quota-aware admission controller: the
// component that decides, for every attempted vendor-API action, whether
// it may proceed now, must be rejected, or must be deferred into the
// queue for replay in a later window.
package admission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/replyhive/replyhive-go/internal/domain"
	"github.com/replyhive/replyhive-go/internal/ledger"
	"github.com/replyhive/replyhive-go/internal/observability"
	"github.com/replyhive/replyhive-go/internal/queue"
	"github.com/replyhive/replyhive-go/internal/subscription"
	"github.com/replyhive/replyhive-go/internal/window"
)

// Config holds the fixed limits the controller enforces.
type Config struct {
	// AppLimit is the platform-wide call ceiling per window.
	AppLimit int64
	// AccountCeiling is the vendor-imposed per-account calls/hour cap.
	AccountCeiling int64
	// MaxAttempts bounds execution retries for deferred items.
	MaxAttempts int
	// PerItemLatency is the fixed per-item cost used to estimate queue
	// wait times.
	PerItemLatency time.Duration
}

// DefaultConfig returns the reference deployment limits.
func DefaultConfig() Config {
	return Config{
		AppLimit:       5000,
		AccountCeiling: 180,
		MaxAttempts:    3,
		PerItemLatency: 2 * time.Second,
	}
}

// Controller evaluates action requests against the three ledgers. It is
// the exclusive creator of ledger entries and queue items.
type Controller struct {
	ledger  ledger.Store
	queue   queue.Store
	subs    subscription.Source
	cfg     Config
	now     func() time.Time
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithMetrics attaches admission metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// New creates a Controller.
func New(l ledger.Store, q queue.Store, subs subscription.Source, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		ledger: l,
		queue:  q,
		subs:   subs,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Window returns the live window per the controller's clock.
func (c *Controller) Window() window.Window {
	return window.At(c.now())
}

// Outcome is the side-effect-free result of evaluating the limit checks.
// The rollover processor re-evaluates queued items through this without
// creating new queue entries.
type Outcome struct {
	Allow       bool
	Deferrable  bool
	Reason      string
	BlockReason domain.BlockReason
	Limits      domain.Limits
}

// Evaluate runs the admission checks in fixed order; the first failing
// check wins and assigns blame:
//
//  1. Active subscription exists, else reject (business-state failure).
//  2. Global window under the platform ceiling, else reject: queuing
//     against a global ceiling would only worsen contention.
//  3. Tenant count under the subscription limit, else defer.
//  4. Account count under the vendor ceiling, else defer.
//
// Evaluate performs only reads (the stores lazily reset stale counters
// on those reads); counters move in Commit.
func (c *Controller) Evaluate(ctx context.Context, tenantID, accountID string, action domain.ActionType) (Outcome, error) {
	w := c.Window()

	sub, err := c.subs.Lookup(ctx, tenantID)
	if err != nil {
		if errors.Is(err, subscription.ErrUnknownTenant) {
			return Outcome{Reason: "tenant has no active subscription"}, nil
		}
		return Outcome{}, fmt.Errorf("admission: subscription lookup for %s: %w", tenantID, err)
	}
	if !sub.IsActive {
		return Outcome{Reason: "tenant has no active subscription"}, nil
	}

	global, err := c.ledger.Global(ctx, w)
	if err != nil {
		return Outcome{}, fmt.Errorf("admission: read global ledger: %w", err)
	}
	tenant, err := c.ledger.Tenant(ctx, tenantID, w)
	if err != nil {
		return Outcome{}, fmt.Errorf("admission: read tenant ledger: %w", err)
	}
	account, err := c.ledger.Account(ctx, accountID, w)
	if err != nil {
		return Outcome{}, fmt.Errorf("admission: read account ledger: %w", err)
	}

	userLimit := effectiveLimit(sub, action)
	limits := domain.Limits{
		UserLimit:    userLimit,
		UserUsed:     tenant.Count,
		GlobalLimit:  c.cfg.AppLimit,
		GlobalUsed:   global.TotalCalls,
		AccountLimit: c.cfg.AccountCeiling,
		AccountUsed:  account.CallsInWindow,
	}

	if global.TotalCalls >= c.cfg.AppLimit {
		return Outcome{
			Reason:      "platform hourly call ceiling reached",
			BlockReason: domain.BlockAppLimit,
			Limits:      limits,
		}, nil
	}

	if tenant.Count >= userLimit {
		return Outcome{
			Deferrable:  true,
			Reason:      fmt.Sprintf("subscription limit reached (%d/%d this window)", tenant.Count, userLimit),
			BlockReason: domain.BlockSubscriptionLimit,
			Limits:      limits,
		}, nil
	}

	if account.CallsInWindow >= c.cfg.AccountCeiling {
		return Outcome{
			Deferrable:  true,
			Reason:      fmt.Sprintf("account rate ceiling reached (%d/%d this window)", account.CallsInWindow, c.cfg.AccountCeiling),
			BlockReason: domain.BlockRateLimit,
			Limits:      limits,
		}, nil
	}

	return Outcome{Allow: true, Limits: limits}, nil
}

// Commit increments the tenant, account, and global counters for an
// admitted action and returns the limits snapshot after the increments.
func (c *Controller) Commit(ctx context.Context, tenantID, accountID string, action domain.ActionType, limits domain.Limits) (domain.Limits, error) {
	w := c.Window()

	userCount, err := c.ledger.IncrTenant(ctx, tenantID, w, action)
	if err != nil {
		return limits, fmt.Errorf("admission: incr tenant %s: %w", tenantID, err)
	}
	accountCount, err := c.ledger.IncrAccount(ctx, accountID, w)
	if err != nil {
		return limits, fmt.Errorf("admission: incr account %s: %w", accountID, err)
	}
	globalCount, err := c.ledger.IncrGlobal(ctx, w, accountID)
	if err != nil {
		return limits, fmt.Errorf("admission: incr global: %w", err)
	}

	limits.UserUsed = userCount
	limits.AccountUsed = accountCount
	limits.GlobalUsed = globalCount
	return limits, nil
}

// CanMakeCall is the admission boundary. On full admission it commits
// the counter increments; on a deferrable block it persists a queue item
// carrying the replay payload; on rejection the caller must not retry
// automatically.
func (c *Controller) CanMakeCall(ctx context.Context, req domain.AdmissionRequest) (domain.Decision, error) {
	if err := domain.ValidateAdmissionRequest(req); err != nil {
		return domain.Decision{}, fmt.Errorf("admission: invalid request: %w", err)
	}

	out, err := c.Evaluate(ctx, req.TenantID, req.AccountID, req.Action)
	if err != nil {
		return domain.Decision{}, err
	}

	if out.Allow {
		limits, err := c.Commit(ctx, req.TenantID, req.AccountID, req.Action, out.Limits)
		if err != nil {
			return domain.Decision{}, err
		}
		c.metrics.RecordAdmission(ctx, string(req.Action))
		return domain.Decision{Allowed: true, Limits: limits}, nil
	}

	if !out.Deferrable {
		c.logger.Info("admission rejected",
			"tenant", req.TenantID, "account", req.AccountID,
			"action", req.Action, "reason", out.Reason)
		c.metrics.RecordRejection(ctx, string(out.BlockReason))
		return domain.Decision{
			Allowed:     false,
			ShouldQueue: false,
			Reason:      out.Reason,
			BlockReason: out.BlockReason,
			Limits:      out.Limits,
		}, nil
	}

	info, err := c.enqueue(ctx, req, out.BlockReason)
	if err != nil {
		return domain.Decision{}, err
	}
	c.metrics.RecordDeferral(ctx, string(out.BlockReason))
	return domain.Decision{
		Allowed:     false,
		ShouldQueue: true,
		Reason:      out.Reason,
		BlockReason: out.BlockReason,
		QueueInfo:   info,
		Limits:      out.Limits,
	}, nil
}

func (c *Controller) enqueue(ctx context.Context, req domain.AdmissionRequest, reason domain.BlockReason) (*domain.QueueInfo, error) {
	w := c.Window()

	item := domain.NewQueueItem(req.TenantID, req.AccountID, req.Action, req.Payload, reason, c.cfg.MaxAttempts)
	item.WindowKey = w.Key
	item.WindowLabel = w.Label()

	item, err := c.queue.Enqueue(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("admission: enqueue deferred item: %w", err)
	}

	if reason == domain.BlockRateLimit {
		if err := c.ledger.MarkBlocked(ctx, w, req.AccountID); err != nil {
			c.logger.Warn("mark blocked account failed", "account", req.AccountID, "error", err)
		}
	}

	// Bookkeeping only; a failure here never loses the item.
	if size, err := c.queue.CountQueued(ctx, w.Key); err == nil {
		if err := c.ledger.SetQueueSize(ctx, w, size); err != nil {
			c.logger.Warn("record queue size failed", "window", w.Label(), "error", err)
		}
	}

	c.logger.Info("action deferred",
		"tenant", req.TenantID, "account", req.AccountID, "action", req.Action,
		"reason", reason, "window", w.Label(), "position", item.Position)

	return &domain.QueueInfo{
		ItemID:          item.ID,
		Position:        item.Position,
		EstimatedWaitMs: int64(item.Position) * c.cfg.PerItemLatency.Milliseconds(),
		WindowLabel:     w.Label(),
	}, nil
}

// effectiveLimit picks the plan limit that bounds this action type; DMs
// have their own budget on every tier, everything else draws from the
// reply budget.
func effectiveLimit(sub domain.Subscription, action domain.ActionType) int64 {
	if action == domain.ActionDM && sub.DMLimit > 0 {
		return sub.DMLimit
	}
	return sub.ReplyLimit
}
