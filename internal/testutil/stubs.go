// Package testutil provides stub collaborators for tests and stub mode.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/replyhive/replyhive-go/internal/domain"
)

// StubVendor is an in-memory VendorClient. Calls are recorded, and
// failures can be scripted per action type: the first FailTimes[action]
// calls for that action return an error, later calls succeed.
type StubVendor struct {
	mu        sync.Mutex
	FailTimes map[domain.ActionType]int
	Calls     []domain.ActionType
	failed    map[domain.ActionType]int
}

// NewStubVendor creates a StubVendor that always succeeds.
func NewStubVendor() *StubVendor {
	return &StubVendor{
		FailTimes: make(map[domain.ActionType]int),
		failed:    make(map[domain.ActionType]int),
	}
}

// CallCount returns how many calls were made for the action type.
func (v *StubVendor) CallCount(action domain.ActionType) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := 0
	for _, a := range v.Calls {
		if a == action {
			n++
		}
	}
	return n
}

func (v *StubVendor) record(action domain.ActionType) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.Calls = append(v.Calls, action)
	if v.failed[action] < v.FailTimes[action] {
		v.failed[action]++
		return fmt.Errorf("stub vendor: scripted %s failure %d", action, v.failed[action])
	}
	return nil
}

func (v *StubVendor) ReplyToComment(_ context.Context, p domain.CommentPayload) (string, error) {
	if err := v.record(domain.ActionComment); err != nil {
		return "", err
	}
	return "replied to " + p.CommentID, nil
}

func (v *StubVendor) SendDM(_ context.Context, p domain.DMPayload) (string, error) {
	if err := v.record(domain.ActionDM); err != nil {
		return "", err
	}
	return fmt.Sprintf("dm %s sent to %s", p.Stage, p.RecipientID), nil
}

func (v *StubVendor) CheckFollow(_ context.Context, p domain.FollowCheckPayload) (bool, error) {
	if err := v.record(domain.ActionFollowCheck); err != nil {
		return false, err
	}
	return true, nil
}

func (v *StubVendor) FetchProfile(_ context.Context, p domain.ProfilePayload) (string, error) {
	if err := v.record(domain.ActionProfile); err != nil {
		return "", err
	}
	return "profile " + p.UserID, nil
}

func (v *StubVendor) SendPostback(_ context.Context, p domain.PostbackPayload) (string, error) {
	if err := v.record(domain.ActionPostback); err != nil {
		return "", err
	}
	return "postback sent to " + p.RecipientID, nil
}

// CommentPayload builds a minimal valid comment payload.
func CommentPayload(commentID string) domain.Payload {
	return domain.Payload{Comment: &domain.CommentPayload{CommentID: commentID, Text: "thanks!"}}
}

// DMPayload builds a minimal valid DM payload.
func DMPayload(recipientID string) domain.Payload {
	return domain.Payload{DM: &domain.DMPayload{
		RecipientID: recipientID,
		Stage:       domain.DMStageAccess,
		Template:    "hey {{name}}",
	}}
}

// FollowCheckPayload builds a minimal valid follow-check payload.
func FollowCheckPayload(followerID, targetID string) domain.Payload {
	return domain.Payload{FollowCheck: &domain.FollowCheckPayload{
		FollowerID: followerID,
		TargetID:   targetID,
	}}
}
