package domain

import (
	"encoding/json"
	"fmt"
)

// CommentPayload replays a reply to a public comment.
type CommentPayload struct {
	CommentID string `json:"comment_id"`
	MediaID   string `json:"media_id,omitempty"`
	Text      string `json:"text"`
}

// DMStage identifies a step of the three-stage DM sequence.
type DMStage string

const (
	DMStageAccess   DMStage = "access"
	DMStageReminder DMStage = "reminder"
	DMStageLink     DMStage = "link"
)

func (s DMStage) Valid() bool {
	switch s {
	case DMStageAccess, DMStageReminder, DMStageLink:
		return true
	}
	return false
}

// DMPayload replays one stage of a direct-message sequence.
type DMPayload struct {
	RecipientID string  `json:"recipient_id"`
	Stage       DMStage `json:"stage"`
	Template    string  `json:"template"`
	LinkURL     string  `json:"link_url,omitempty"`
}

// FollowCheckPayload replays a follow-relationship check.
type FollowCheckPayload struct {
	FollowerID string `json:"follower_id"`
	TargetID   string `json:"target_id"`
}

// ProfilePayload replays a profile fetch.
type ProfilePayload struct {
	UserID string `json:"user_id"`
}

// PostbackPayload replays a postback button response.
type PostbackPayload struct {
	RecipientID string `json:"recipient_id"`
	PayloadKey  string `json:"payload_key"`
	Template    string `json:"template"`
}

// Payload is the tagged union of action-specific replay data. Exactly one
// variant is non-nil; Kind reports which. Storing the variant explicitly
// gives the dispatcher an exhaustive switch instead of an untyped blob.
type Payload struct {
	Comment     *CommentPayload     `json:"comment,omitempty"`
	DM          *DMPayload          `json:"dm,omitempty"`
	FollowCheck *FollowCheckPayload `json:"follow_check,omitempty"`
	Profile     *ProfilePayload     `json:"profile,omitempty"`
	Postback    *PostbackPayload    `json:"postback,omitempty"`
}

// Kind returns the ActionType the payload carries, or an error when the
// union holds zero or more than one variant.
func (p Payload) Kind() (ActionType, error) {
	var (
		kind ActionType
		n    int
	)
	if p.Comment != nil {
		kind, n = ActionComment, n+1
	}
	if p.DM != nil {
		kind, n = ActionDM, n+1
	}
	if p.FollowCheck != nil {
		kind, n = ActionFollowCheck, n+1
	}
	if p.Profile != nil {
		kind, n = ActionProfile, n+1
	}
	if p.Postback != nil {
		kind, n = ActionPostback, n+1
	}
	if n != 1 {
		return "", fmt.Errorf("payload must carry exactly one variant, has %d", n)
	}
	return kind, nil
}

// Encode serializes the payload for durable storage.
func (p Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// DecodePayload deserializes a stored payload.
func DecodePayload(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}
