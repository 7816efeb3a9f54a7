package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadKind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		payload Payload
		want    ActionType
		wantErr bool
	}{
		{
			name:    "comment",
			payload: Payload{Comment: &CommentPayload{CommentID: "c1", Text: "hi"}},
			want:    ActionComment,
		},
		{
			name:    "dm",
			payload: Payload{DM: &DMPayload{RecipientID: "u1", Stage: DMStageAccess}},
			want:    ActionDM,
		},
		{
			name:    "follow check",
			payload: Payload{FollowCheck: &FollowCheckPayload{FollowerID: "u1", TargetID: "u2"}},
			want:    ActionFollowCheck,
		},
		{
			name:    "profile",
			payload: Payload{Profile: &ProfilePayload{UserID: "u1"}},
			want:    ActionProfile,
		},
		{
			name:    "postback",
			payload: Payload{Postback: &PostbackPayload{RecipientID: "u1", PayloadKey: "k"}},
			want:    ActionPostback,
		},
		{
			name:    "empty union rejected",
			payload: Payload{},
			wantErr: true,
		},
		{
			name: "two variants rejected",
			payload: Payload{
				Comment: &CommentPayload{CommentID: "c1"},
				DM:      &DMPayload{RecipientID: "u1"},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kind, err := tt.payload.Kind()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestPayloadEncodeDecode(t *testing.T) {
	t.Parallel()
	p := Payload{DM: &DMPayload{
		RecipientID: "user-9",
		Stage:       DMStageLink,
		Template:    "here you go {{name}}",
		LinkURL:     "https://example.com/guide",
	}}

	raw, err := p.Encode()
	require.NoError(t, err)

	got, err := DecodePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	kind, err := got.Kind()
	require.NoError(t, err)
	assert.Equal(t, ActionDM, kind)
}

func TestDecodePayload_Invalid(t *testing.T) {
	t.Parallel()
	_, err := DecodePayload([]byte("{not json"))
	assert.Error(t, err)
}

func TestDMStageValid(t *testing.T) {
	t.Parallel()
	assert.True(t, DMStageAccess.Valid())
	assert.True(t, DMStageReminder.Valid())
	assert.True(t, DMStageLink.Valid())
	assert.False(t, DMStage("followup").Valid())
}
