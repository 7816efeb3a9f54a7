package domain

import "fmt"

// ActionType classifies an outbound vendor-API action.
type ActionType string

const (
	ActionComment     ActionType = "COMMENT"
	ActionDM          ActionType = "DM"
	ActionFollowCheck ActionType = "FOLLOW_CHECK"
	ActionProfile     ActionType = "PROFILE"
	ActionPostback    ActionType = "POSTBACK"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionComment, ActionDM, ActionFollowCheck, ActionProfile, ActionPostback:
		return true
	}
	return false
}

// ItemStatus tracks a deferred queue item through its lifecycle.
type ItemStatus string

const (
	StatusQueued     ItemStatus = "QUEUED"
	StatusPending    ItemStatus = "PENDING"
	StatusProcessing ItemStatus = "PROCESSING"
	StatusCompleted  ItemStatus = "COMPLETED"
	StatusFailed     ItemStatus = "FAILED"
	StatusHold       ItemStatus = "HOLD"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusHold:
		return true
	}
	return false
}

// Terminal reports whether the status is final. Terminal items are never
// picked up by a rollover pass.
func (s ItemStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// BlockReason records which limit blocked an admission.
type BlockReason string

const (
	BlockRateLimit         BlockReason = "RATE_LIMIT"
	BlockSubscriptionLimit BlockReason = "SUBSCRIPTION_LIMIT"
	BlockAppLimit          BlockReason = "APP_LIMIT"
)

func (b BlockReason) Valid() bool {
	switch b {
	case BlockRateLimit, BlockSubscriptionLimit, BlockAppLimit:
		return true
	}
	return false
}

// Deferrable reports whether an action blocked for this reason may be
// queued for a later window. The platform-wide ceiling is never
// deferrable: queuing against it would only worsen contention.
func (b BlockReason) Deferrable() bool {
	return b == BlockRateLimit || b == BlockSubscriptionLimit
}

// PlanTier is a tenant's purchased subscription tier.
type PlanTier string

const (
	PlanStarter PlanTier = "starter"
	PlanGrowth  PlanTier = "growth"
	PlanPro     PlanTier = "pro"
)

func (p PlanTier) Valid() bool {
	switch p {
	case PlanStarter, PlanGrowth, PlanPro:
		return true
	}
	return false
}

// ActionPriority maps action types to queue priority (1 = highest, 5 =
// lowest). Never rely on enum ordering; use this map.
var ActionPriority = map[ActionType]int{
	ActionComment:     2,
	ActionDM:          3,
	ActionFollowCheck: 3,
	ActionProfile:     3,
	ActionPostback:    3,
}

// PriorityFor returns the queue priority for an action type, or an error
// for unknown types.
func PriorityFor(a ActionType) (int, error) {
	p, ok := ActionPriority[a]
	if !ok {
		return 0, fmt.Errorf("unknown action type: %q", a)
	}
	return p, nil
}
