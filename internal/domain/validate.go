package domain

import "fmt"

// ValidateAdmissionRequest checks required fields on an AdmissionRequest.
// The payload is only required for deferrable action types, since it is
// what the queue replays later.
func ValidateAdmissionRequest(r AdmissionRequest) error {
	if r.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if r.AccountID == "" {
		return fmt.Errorf("account_id is required")
	}
	if !r.Action.Valid() {
		return fmt.Errorf("invalid action_type: %q", r.Action)
	}
	kind, err := r.Payload.Kind()
	if err != nil {
		return fmt.Errorf("payload: %v", err)
	}
	if kind != r.Action {
		return fmt.Errorf("payload variant %s does not match action_type %s", kind, r.Action)
	}
	return nil
}

// ValidateQueueItem checks required fields on a QueueItem.
func ValidateQueueItem(it QueueItem) error {
	if it.ID == "" {
		return fmt.Errorf("id is required")
	}
	if it.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if it.AccountID == "" {
		return fmt.Errorf("account_id is required")
	}
	if !it.Action.Valid() {
		return fmt.Errorf("invalid action_type: %q", it.Action)
	}
	if !it.Status.Valid() {
		return fmt.Errorf("invalid status: %q", it.Status)
	}
	if it.Priority < 1 || it.Priority > 5 {
		return fmt.Errorf("priority must be 1..5, got %d", it.Priority)
	}
	if it.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive")
	}
	if !it.BlockReason.Valid() {
		return fmt.Errorf("invalid blocking_reason: %q", it.BlockReason)
	}
	return nil
}
