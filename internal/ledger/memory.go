package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/replyhive/replyhive-go/internal/domain"
	"github.com/replyhive/replyhive-go/internal/window"
)

// MemoryStore is an in-memory Store for tests and stub mode. Global rows
// auto-expire a grace period after their window closes, mirroring the TTL
// policy of the durable backends.
type MemoryStore struct {
	mu       sync.Mutex
	appLimit int64
	ttl      time.Duration
	now      func() time.Time

	globals  map[int64]*globalRow
	tenants  map[string]*tenantRow
	accounts map[string]*accountRow
}

type globalRow struct {
	total     int64
	startedAt time.Time
	endsAt    time.Time
	processed map[string]bool
	blocked   map[string]bool
	queueSize int
}

type tenantRow struct {
	windowKey    int64
	count        int64
	comments     int64
	dms          int64
	followChecks int64
}

type accountRow struct {
	windowKey int64
	calls     int64
}

var _ Store = (*MemoryStore)(nil)

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the wall clock, for tests. The TTL sweep measures
// row age against this clock, so fixtures pinning a synthetic time must
// pass it here or their global rows expire against real time.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an in-memory ledger with the given platform-wide
// per-window call ceiling.
func NewMemoryStore(appLimit int64, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		appLimit: appLimit,
		ttl:      24 * time.Hour,
		now:      time.Now,
		globals:  make(map[int64]*globalRow),
		tenants:  make(map[string]*tenantRow),
		accounts: make(map[string]*accountRow),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) global(w window.Window) *globalRow {
	s.expireGlobals()
	g, ok := s.globals[w.Key]
	if !ok {
		g = &globalRow{
			startedAt: w.Start,
			endsAt:    w.End,
			processed: make(map[string]bool),
			blocked:   make(map[string]bool),
		}
		s.globals[w.Key] = g
	}
	return g
}

func (s *MemoryStore) expireGlobals() {
	cutoff := s.now().UTC().Add(-s.ttl)
	for key, g := range s.globals {
		if g.endsAt.Before(cutoff) {
			delete(s.globals, key)
		}
	}
}

func (s *MemoryStore) Global(_ context.Context, w window.Window) (domain.GlobalUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.global(w)
	return domain.GlobalUsage{
		WindowKey:         w.Key,
		WindowLabel:       w.Label(),
		TotalCalls:        g.total,
		AppLimit:          s.appLimit,
		IsActive:          w.Contains(s.now()),
		StartedAt:         g.startedAt,
		EndsAt:            g.endsAt,
		AccountsProcessed: keys(g.processed),
		BlockedAccounts:   keys(g.blocked),
		QueueSize:         g.queueSize,
	}, nil
}

func (s *MemoryStore) IncrGlobal(_ context.Context, w window.Window, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.global(w)
	g.total++
	g.processed[accountID] = true
	return g.total, nil
}

func (s *MemoryStore) MarkBlocked(_ context.Context, w window.Window, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.global(w).blocked[accountID] = true
	return nil
}

func (s *MemoryStore) SetQueueSize(_ context.Context, w window.Window, size int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.global(w).queueSize = size
	return nil
}

// tenant applies the lazy reset: a stored row whose window key differs
// from the live window is zeroed and re-stamped.
func (s *MemoryStore) tenant(tenantID string, w window.Window) *tenantRow {
	t, ok := s.tenants[tenantID]
	if !ok || t.windowKey != w.Key {
		t = &tenantRow{windowKey: w.Key}
		s.tenants[tenantID] = t
	}
	return t
}

func (s *MemoryStore) Tenant(_ context.Context, tenantID string, w window.Window) (domain.TenantUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tenant(tenantID, w)
	return domain.TenantUsage{
		TenantID:     tenantID,
		WindowKey:    w.Key,
		WindowLabel:  w.Label(),
		Count:        t.count,
		Comments:     t.comments,
		DMs:          t.dms,
		FollowChecks: t.followChecks,
	}, nil
}

func (s *MemoryStore) IncrTenant(_ context.Context, tenantID string, w window.Window, action domain.ActionType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tenant(tenantID, w)
	t.count++
	switch action {
	case domain.ActionComment:
		t.comments++
	case domain.ActionDM:
		t.dms++
	case domain.ActionFollowCheck:
		t.followChecks++
	}
	return t.count, nil
}

func (s *MemoryStore) account(accountID string, w window.Window) *accountRow {
	a, ok := s.accounts[accountID]
	if !ok || a.windowKey != w.Key {
		a = &accountRow{windowKey: w.Key}
		s.accounts[accountID] = a
	}
	return a
}

func (s *MemoryStore) Account(_ context.Context, accountID string, w window.Window) (domain.AccountUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.account(accountID, w)
	return domain.AccountUsage{
		AccountID:     accountID,
		WindowKey:     w.Key,
		CallsInWindow: a.calls,
	}, nil
}

func (s *MemoryStore) IncrAccount(_ context.Context, accountID string, w window.Window) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.account(accountID, w)
	a.calls++
	return a.calls, nil
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
