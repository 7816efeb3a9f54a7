package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueueItem is the unit of postponed work. Created by the admission
// controller when a deferrable limit blocks an action; drained by the
// rollover processor when a new window opens.
type QueueItem struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	AccountID string     `json:"account_id"`
	Action    ActionType `json:"action_type"`
	Payload   Payload    `json:"payload"`

	Priority int        `json:"priority"`
	Status   ItemStatus `json:"status"`

	// WindowKey is the absolute epoch-hour of the window the item is
	// currently associated with; re-stamped on rollover. WindowLabel is
	// the display form.
	WindowKey   int64  `json:"window_key"`
	WindowLabel string `json:"window_label"`

	// Position is the FIFO sequence within the window at enqueue time.
	Position int `json:"position"`

	Attempts    int         `json:"attempts"`
	MaxAttempts int         `json:"max_attempts"`
	RetryCount  int         `json:"retry_count"`
	BlockReason BlockReason `json:"blocking_reason"`

	// OriginalTimestamp is when the item was first queued. Never mutated.
	OriginalTimestamp time.Time `json:"original_timestamp"`

	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// NewQueueItem creates a QueueItem with generated defaults. Position is
// assigned by the store on enqueue.
func NewQueueItem(tenantID, accountID string, action ActionType, payload Payload, reason BlockReason, maxAttempts int) QueueItem {
	priority := ActionPriority[action]
	if priority == 0 {
		priority = 5
	}
	return QueueItem{
		ID:                uuid.New().String(),
		TenantID:          tenantID,
		AccountID:         accountID,
		Action:            action,
		Payload:           payload,
		Priority:          priority,
		Status:            StatusQueued,
		MaxAttempts:       maxAttempts,
		BlockReason:       reason,
		OriginalTimestamp: time.Now().UTC(),
	}
}

// GlobalUsage is the platform-wide ledger row for one window.
type GlobalUsage struct {
	WindowKey   int64  `json:"window_key"`
	WindowLabel string `json:"window_label"`

	TotalCalls int64 `json:"total_calls"`
	AppLimit   int64 `json:"app_limit"`
	IsActive   bool  `json:"is_active"`

	StartedAt time.Time `json:"started_at"`
	EndsAt    time.Time `json:"ends_at"`

	AccountsProcessed []string `json:"accounts_processed"`
	BlockedAccounts   []string `json:"blocked_accounts"`
	QueueSize         int      `json:"queue_size"`
}

// TenantUsage is one tenant's ledger row. Count resets to zero exactly
// when WindowKey no longer matches the live window.
type TenantUsage struct {
	TenantID    string `json:"tenant_id"`
	WindowKey   int64  `json:"window_key"`
	WindowLabel string `json:"window_label"`

	Count             int64 `json:"count"`
	SubscriptionLimit int64 `json:"subscription_limit"`

	Comments     int64 `json:"comments"`
	DMs          int64 `json:"dms"`
	FollowChecks int64 `json:"follow_checks"`
}

// AccountUsage is the embedded rate counter on an external account,
// capped at the vendor's fixed per-account ceiling.
type AccountUsage struct {
	AccountID     string `json:"account_id"`
	WindowKey     int64  `json:"window_key"`
	CallsInWindow int64  `json:"calls_in_window"`
}

// Subscription is the read-only view of a tenant's purchased plan, as
// returned by the subscription lookup collaborator.
type Subscription struct {
	Plan         PlanTier `json:"plan"`
	AccountLimit int      `json:"account_limit"`
	ReplyLimit   int64    `json:"reply_limit"`
	DMLimit      int64    `json:"dm_limit"`
	IsActive     bool     `json:"is_active"`
}

// Limits reports the three limit/usage pairs alongside every admission
// decision so callers can render quota state without a second query.
type Limits struct {
	UserLimit    int64 `json:"user_limit"`
	UserUsed     int64 `json:"user_used"`
	GlobalLimit  int64 `json:"global_limit"`
	GlobalUsed   int64 `json:"global_used"`
	AccountLimit int64 `json:"account_limit"`
	AccountUsed  int64 `json:"account_used"`
}

// QueueInfo describes where a deferred action landed.
type QueueInfo struct {
	ItemID          string `json:"item_id"`
	Position        int    `json:"position"`
	EstimatedWaitMs int64  `json:"estimated_wait_ms"`
	WindowLabel     string `json:"window_label"`
}

// Decision is the outcome of an admission request.
type Decision struct {
	Allowed     bool        `json:"allowed"`
	Reason      string      `json:"reason,omitempty"`
	ShouldQueue bool        `json:"should_queue"`
	BlockReason BlockReason `json:"blocking_reason,omitempty"`
	QueueInfo   *QueueInfo  `json:"queue_info,omitempty"`
	Limits      Limits      `json:"limits"`
}

// AdmissionRequest is the function/RPC boundary input for an admission
// check.
type AdmissionRequest struct {
	TenantID  string     `json:"tenant_id"`
	AccountID string     `json:"account_id"`
	Action    ActionType `json:"action_type"`
	Payload   Payload    `json:"payload,omitempty"`
}
