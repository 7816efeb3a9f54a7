package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replyhive/replyhive-go/internal/domain"
)

func newItem(tenantID string, action domain.ActionType, windowKey int64) domain.QueueItem {
	payload := domain.Payload{Comment: &domain.CommentPayload{CommentID: "c1", Text: "hi"}}
	switch action {
	case domain.ActionDM:
		payload = domain.Payload{DM: &domain.DMPayload{RecipientID: "u1", Stage: domain.DMStageAccess}}
	case domain.ActionFollowCheck:
		payload = domain.Payload{FollowCheck: &domain.FollowCheckPayload{FollowerID: "u1", TargetID: "u2"}}
	}
	item := domain.NewQueueItem(tenantID, "acct-1", action, payload, domain.BlockRateLimit, 3)
	item.WindowKey = windowKey
	return item
}

func TestMemoryStore_EnqueuePositions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	a, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 100))
	require.NoError(t, err)
	b, err := s.Enqueue(ctx, newItem("tenant-2", domain.ActionComment, 100))
	require.NoError(t, err)
	assert.Equal(t, 1, a.Position)
	assert.Equal(t, 2, b.Position)

	// Positions are per window.
	c, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 101))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Position)
}

func TestMemoryStore_Get(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	item, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 100))
	require.NoError(t, err)

	got, err := s.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item, got)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DequeueBatchOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	// Enqueue order: DM, comment, DM. Comments carry higher priority and
	// jump the line; within a priority band FIFO position holds.
	dm1, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionDM, 100))
	require.NoError(t, err)
	comment, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 100))
	require.NoError(t, err)
	dm2, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionDM, 100))
	require.NoError(t, err)

	batch, err := s.DequeueBatch(ctx, 100, 10)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, comment.ID, batch[0].ID)
	assert.Equal(t, dm1.ID, batch[1].ID)
	assert.Equal(t, dm2.ID, batch[2].ID)
}

func TestMemoryStore_DequeueBatchSpansClosedWindows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	// An item left behind in an older window is still swept up, ahead of
	// same-priority items from later windows.
	stale, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 98))
	require.NoError(t, err)
	recent, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 100))
	require.NoError(t, err)
	future, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 101))
	require.NoError(t, err)

	batch, err := s.DequeueBatch(ctx, 100, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, stale.ID, batch[0].ID)
	assert.Equal(t, recent.ID, batch[1].ID)

	n, err := s.CountQueued(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.Get(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, got.Status)
}

func TestMemoryStore_ResetStalledSpansClosedWindows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	stale, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 98))
	require.NoError(t, err)
	stale.Status = domain.StatusPending
	require.NoError(t, s.Update(ctx, stale))

	n, err := s.ResetStalled(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, got.Status)
}

func TestMemoryStore_DequeueBatchFilters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	queued, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 100))
	require.NoError(t, err)

	done, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 100))
	require.NoError(t, err)
	done.Status = domain.StatusCompleted
	require.NoError(t, s.Update(ctx, done))

	_, err = s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 101))
	require.NoError(t, err)

	batch, err := s.DequeueBatch(ctx, 100, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, queued.ID, batch[0].ID)

	// Limit truncates.
	_, err = s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 100))
	require.NoError(t, err)
	batch, err = s.DequeueBatch(ctx, 100, 1)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestMemoryStore_CountQueuedAndDepth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 100))
	require.NoError(t, err)
	failed, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionDM, 100))
	require.NoError(t, err)
	failed.Status = domain.StatusFailed
	require.NoError(t, s.Update(ctx, failed))

	n, err := s.CountQueued(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	depth, err := s.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth[domain.StatusQueued])
	assert.Equal(t, 1, depth[domain.StatusFailed])
}

func TestMemoryStore_CASStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	item, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 100))
	require.NoError(t, err)

	ok, err := s.CASStatus(ctx, item.ID, domain.StatusQueued, domain.StatusPending)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second claim loses.
	ok, err = s.CASStatus(ctx, item.ID, domain.StatusQueued, domain.StatusPending)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.CASStatus(ctx, "missing", domain.StatusQueued, domain.StatusPending)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ResetStalled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	pending, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 100))
	require.NoError(t, err)
	pending.Status = domain.StatusPending
	require.NoError(t, s.Update(ctx, pending))

	processing, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionDM, 100))
	require.NoError(t, err)
	processing.Status = domain.StatusProcessing
	require.NoError(t, s.Update(ctx, processing))

	completed, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 100))
	require.NoError(t, err)
	completed.Status = domain.StatusCompleted
	require.NoError(t, s.Update(ctx, completed))

	otherWindow, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 101))
	require.NoError(t, err)
	otherWindow.Status = domain.StatusPending
	require.NoError(t, s.Update(ctx, otherWindow))

	n, err := s.ResetStalled(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := s.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, got.Status)

	got, err = s.Get(ctx, completed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	got, err = s.Get(ctx, otherWindow.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestMemoryStore_Restamp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	item, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 100))
	require.NoError(t, err)

	require.NoError(t, s.Restamp(ctx, item.ID, 101, "15-16"))
	got, err := s.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(101), got.WindowKey)
	assert.Equal(t, "15-16", got.WindowLabel)

	assert.ErrorIs(t, s.Restamp(ctx, "missing", 101, "15-16"), ErrNotFound)
}

func TestMemoryStore_RestampReservesPosition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	carried, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 100))
	require.NoError(t, err)
	require.Equal(t, 1, carried.Position)
	require.NoError(t, s.Restamp(ctx, carried.ID, 101, "15-16"))

	// A fresh enqueue in the target window must not reuse the carried
	// item's position, and drains behind it.
	fresh, err := s.Enqueue(ctx, newItem("tenant-2", domain.ActionComment, 101))
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Position)

	batch, err := s.DequeueBatch(ctx, 101, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, carried.ID, batch[0].ID)
	assert.Equal(t, fresh.ID, batch[1].ID)
}

func TestMemoryStore_UpdateReservesPosition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	carried, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 100))
	require.NoError(t, err)
	carried.WindowKey = 101
	carried.WindowLabel = "15-16"
	require.NoError(t, s.Update(ctx, carried))

	fresh, err := s.Enqueue(ctx, newItem("tenant-2", domain.ActionComment, 101))
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Position)
}

func TestMemoryStore_Purge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	old, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionComment, 100))
	require.NoError(t, err)
	old.OriginalTimestamp = time.Now().UTC().Add(-8 * 24 * time.Hour)
	require.NoError(t, s.Update(ctx, old))

	fresh, err := s.Enqueue(ctx, newItem("tenant-1", domain.ActionDM, 100))
	require.NoError(t, err)

	n, err := s.Purge(ctx, time.Now().UTC().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.Get(ctx, old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}
