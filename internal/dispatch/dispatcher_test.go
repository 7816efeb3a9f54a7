package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replyhive/replyhive-go/internal/domain"
	"github.com/replyhive/replyhive-go/internal/testutil"
)

func newDispatcher(vendor *testutil.StubVendor) *Dispatcher {
	at := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	return New(vendor, NewEndpointLimiter(DefaultEndpointRates()),
		WithClock(func() time.Time { return at }))
}

func queueItem(action domain.ActionType, payload domain.Payload) domain.QueueItem {
	return domain.NewQueueItem("tenant-1", "acct-1", action, payload, domain.BlockRateLimit, 3)
}

func TestExecute_RoutesByAction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	vendor := testutil.NewStubVendor()
	d := newDispatcher(vendor)

	tests := []struct {
		name       string
		item       domain.QueueItem
		wantResult string
	}{
		{
			name:       "comment reply",
			item:       queueItem(domain.ActionComment, testutil.CommentPayload("c42")),
			wantResult: "replied to c42",
		},
		{
			name:       "dm",
			item:       queueItem(domain.ActionDM, testutil.DMPayload("u7")),
			wantResult: "dm access sent to u7",
		},
		{
			name:       "follow check",
			item:       queueItem(domain.ActionFollowCheck, testutil.FollowCheckPayload("u1", "u2")),
			wantResult: "follows=true",
		},
		{
			name:       "profile fetch",
			item:       queueItem(domain.ActionProfile, domain.Payload{Profile: &domain.ProfilePayload{UserID: "u9"}}),
			wantResult: "profile u9",
		},
		{
			name: "postback",
			item: queueItem(domain.ActionPostback, domain.Payload{Postback: &domain.PostbackPayload{
				RecipientID: "u5", PayloadKey: "GET_GUIDE",
			}}),
			wantResult: "postback sent to u5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Execute(ctx, tt.item)
			require.NoError(t, err)
			assert.Equal(t, tt.wantResult, got.Result)
			assert.Empty(t, got.Error)
			require.NotNil(t, got.ProcessedAt)
		})
	}
}

func TestExecute_VendorFailureStampsError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	vendor := testutil.NewStubVendor()
	vendor.FailTimes[domain.ActionDM] = 1
	d := newDispatcher(vendor)

	item := queueItem(domain.ActionDM, testutil.DMPayload("u1"))
	got, err := d.Execute(ctx, item)
	require.Error(t, err)
	assert.NotEmpty(t, got.Error)
	assert.Empty(t, got.Result)
	require.NotNil(t, got.ProcessedAt)

	// The stub recovers on the next call.
	got, err = d.Execute(ctx, item)
	require.NoError(t, err)
	assert.Empty(t, got.Error)
	assert.Equal(t, 2, vendor.CallCount(domain.ActionDM))
}

func TestExecute_PayloadMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	vendor := testutil.NewStubVendor()
	d := newDispatcher(vendor)

	item := queueItem(domain.ActionComment, testutil.DMPayload("u1"))
	_, err := d.Execute(ctx, item)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match action")
	assert.Zero(t, vendor.CallCount(domain.ActionComment))
	assert.Zero(t, vendor.CallCount(domain.ActionDM))
}

func TestExecute_EmptyPayload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDispatcher(testutil.NewStubVendor())

	item := queueItem(domain.ActionComment, domain.Payload{})
	got, err := d.Execute(ctx, item)
	require.Error(t, err)
	assert.Contains(t, got.Error, "exactly one variant")
}

func TestExecute_DoesNotTouchStatusBookkeeping(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d := newDispatcher(testutil.NewStubVendor())

	item := queueItem(domain.ActionComment, testutil.CommentPayload("c1"))
	item.Status = domain.StatusProcessing
	item.Attempts = 1

	got, err := d.Execute(ctx, item)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)
}
