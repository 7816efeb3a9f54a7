package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/replyhive/replyhive-go/internal/domain"
)

// MemoryStore is an in-memory Store for tests and stub mode.
type MemoryStore struct {
	mu        sync.Mutex
	items     map[string]domain.QueueItem
	positions map[int64]int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory queue store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:     make(map[string]domain.QueueItem),
		positions: make(map[int64]int),
	}
}

func (s *MemoryStore) Enqueue(_ context.Context, item domain.QueueItem) (domain.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[item.WindowKey]++
	item.Position = s.positions[item.WindowKey]
	s.items[item.ID] = item
	return item, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return domain.QueueItem{}, ErrNotFound
	}
	return item, nil
}

func (s *MemoryStore) DequeueBatch(_ context.Context, maxKey int64, limit int) ([]domain.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batch []domain.QueueItem
	for _, item := range s.items {
		if item.WindowKey <= maxKey && item.Status == domain.StatusQueued {
			batch = append(batch, item)
		}
	}
	sort.Slice(batch, func(i, j int) bool {
		if batch[i].Priority != batch[j].Priority {
			return batch[i].Priority < batch[j].Priority
		}
		if batch[i].WindowKey != batch[j].WindowKey {
			return batch[i].WindowKey < batch[j].WindowKey
		}
		return batch[i].Position < batch[j].Position
	})
	if len(batch) > limit {
		batch = batch[:limit]
	}
	return batch, nil
}

func (s *MemoryStore) CountQueued(_ context.Context, maxKey int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, item := range s.items {
		if item.WindowKey <= maxKey && item.Status == domain.StatusQueued {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Depth(_ context.Context) (map[domain.ItemStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	depth := make(map[domain.ItemStatus]int)
	for _, item := range s.items {
		depth[item.Status]++
	}
	return depth, nil
}

func (s *MemoryStore) CASStatus(_ context.Context, id string, from, to domain.ItemStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return false, ErrNotFound
	}
	if item.Status != from {
		return false, nil
	}
	item.Status = to
	s.items[id] = item
	return true, nil
}

func (s *MemoryStore) ResetStalled(_ context.Context, maxKey int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, item := range s.items {
		if item.WindowKey > maxKey {
			continue
		}
		if item.Status == domain.StatusPending || item.Status == domain.StatusProcessing {
			item.Status = domain.StatusQueued
			s.items[id] = item
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Restamp(_ context.Context, id string, windowKey int64, windowLabel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return ErrNotFound
	}
	item.WindowKey = windowKey
	item.WindowLabel = windowLabel
	s.items[id] = item
	s.reservePosition(item)
	return nil
}

// reservePosition keeps the window's position counter ahead of any item
// carried in with an existing position, so a fresh Enqueue never reuses
// it. Matches the durable backend, where the next position is computed
// from the max over the window.
func (s *MemoryStore) reservePosition(item domain.QueueItem) {
	if item.Position > s.positions[item.WindowKey] {
		s.positions[item.WindowKey] = item.Position
	}
}

func (s *MemoryStore) Update(_ context.Context, item domain.QueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.ID]; !ok {
		return ErrNotFound
	}
	s.items[item.ID] = item
	s.reservePosition(item)
	return nil
}

func (s *MemoryStore) Purge(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, item := range s.items {
		if item.OriginalTimestamp.Before(before) {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}
