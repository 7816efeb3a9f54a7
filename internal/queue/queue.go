// Package queue is the durable, priority-ordered, FIFO-within-priority
// store of postponed actions. It only stores payload and bookkeeping;
// execution is delegated to the dispatcher.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/replyhive/replyhive-go/internal/domain"
)

// ErrNotFound is returned when no item exists for an id.
var ErrNotFound = errors.New("queue: item not found")

// Store is the persistence port for deferred queue items.
type Store interface {
	// Enqueue persists the item, assigning the next FIFO position for
	// its window, and returns the stored item.
	Enqueue(ctx context.Context, item domain.QueueItem) (domain.QueueItem, error)

	// Get returns the item with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (domain.QueueItem, error)

	// DequeueBatch returns up to limit QUEUED items whose window key is
	// at or before maxKey, ordered by ascending priority value, then
	// window key, then position. Sweeping every closed window rather
	// than exactly one means items stranded by a gap in rollover
	// coverage are still picked up. Items are not mutated; callers
	// transition status via CASStatus.
	DequeueBatch(ctx context.Context, maxKey int64, limit int) ([]domain.QueueItem, error)

	// CountQueued returns the number of QUEUED items at or before the
	// window key.
	CountQueued(ctx context.Context, maxKey int64) (int, error)

	// Depth returns item counts by status across all windows.
	Depth(ctx context.Context) (map[domain.ItemStatus]int, error)

	// CASStatus transitions the item's status from from to to. Returns
	// false without error if the item is no longer in the from status;
	// this is what keeps a crashed batch from double-executing items.
	CASStatus(ctx context.Context, id string, from, to domain.ItemStatus) (bool, error)

	// ResetStalled returns PENDING and PROCESSING items at or before the
	// window key to QUEUED. Only the rollover processor moves items into
	// those states, and only one pass runs at a time, so anything found
	// there at the start of a pass is a crash leftover.
	ResetStalled(ctx context.Context, maxKey int64) (int, error)

	// Restamp moves the item to a new window, leaving position and
	// original timestamp untouched.
	Restamp(ctx context.Context, id string, windowKey int64, windowLabel string) error

	// Update persists execution bookkeeping (status, attempts, retry
	// count, result, error, processed-at) for an existing item.
	Update(ctx context.Context, item domain.QueueItem) error

	// Purge deletes items first queued before the cutoff regardless of
	// status, returning the number removed.
	Purge(ctx context.Context, before time.Time) (int, error)
}
