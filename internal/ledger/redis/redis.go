// Package redis provides a Redis-backed ledger.Store.
//
// Counters live under keys that embed the absolute window key, so the
// lazy window reset is structural: a new window simply reads a key that
// does not exist yet. Increments use INCRBY/HINCRBY, which are atomic on
// the server, avoiding read-modify-write races between instances. Rows
// auto-expire a grace period after their window closes.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/replyhive/replyhive-go/internal/domain"
	"github.com/replyhive/replyhive-go/internal/ledger"
	"github.com/replyhive/replyhive-go/internal/window"
)

// Store is a Redis-backed ledger.Store.
type Store struct {
	client    goredis.Cmdable
	keyPrefix string
	appLimit  int64
	ttl       time.Duration
	now       func() time.Time
}

var _ ledger.Store = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithKeyPrefix sets the Redis key prefix (default "replyhive:ledger:").
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.keyPrefix = prefix }
}

// WithTTL sets how long after a window closes its rows are retained.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// New creates a Redis-backed ledger with the given platform-wide
// per-window call ceiling. The client must be a connected
// *goredis.Client or *goredis.ClusterClient.
func New(client goredis.Cmdable, appLimit int64, opts ...Option) *Store {
	s := &Store{
		client:    client,
		keyPrefix: "replyhive:ledger:",
		appLimit:  appLimit,
		ttl:       24 * time.Hour,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) globalKey(w window.Window) string {
	return fmt.Sprintf("%sglobal:%d", s.keyPrefix, w.Key)
}

func (s *Store) globalSetKey(w window.Window, set string) string {
	return fmt.Sprintf("%sglobal:%d:%s", s.keyPrefix, w.Key, set)
}

func (s *Store) tenantKey(tenantID string, w window.Window) string {
	return fmt.Sprintf("%stenant:%s:%d", s.keyPrefix, tenantID, w.Key)
}

func (s *Store) accountKey(accountID string, w window.Window) string {
	return fmt.Sprintf("%saccount:%s:%d", s.keyPrefix, accountID, w.Key)
}

func (s *Store) expiry(w window.Window) time.Time {
	return w.End.Add(s.ttl)
}

func (s *Store) Global(ctx context.Context, w window.Window) (domain.GlobalUsage, error) {
	pipe := s.client.Pipeline()
	hash := pipe.HGetAll(ctx, s.globalKey(w))
	processed := pipe.SMembers(ctx, s.globalSetKey(w, "accounts"))
	blocked := pipe.SMembers(ctx, s.globalSetKey(w, "blocked"))
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		return domain.GlobalUsage{}, fmt.Errorf("ledger redis: read global: %w", err)
	}

	fields := hash.Val()
	total, _ := strconv.ParseInt(fields["total_calls"], 10, 64)
	queueSize, _ := strconv.Atoi(fields["queue_size"])

	return domain.GlobalUsage{
		WindowKey:         w.Key,
		WindowLabel:       w.Label(),
		TotalCalls:        total,
		AppLimit:          s.appLimit,
		IsActive:          w.Contains(s.now()),
		StartedAt:         w.Start,
		EndsAt:            w.End,
		AccountsProcessed: processed.Val(),
		BlockedAccounts:   blocked.Val(),
		QueueSize:         queueSize,
	}, nil
}

func (s *Store) IncrGlobal(ctx context.Context, w window.Window, accountID string) (int64, error) {
	key := s.globalKey(w)
	setKey := s.globalSetKey(w, "accounts")

	pipe := s.client.TxPipeline()
	incr := pipe.HIncrBy(ctx, key, "total_calls", 1)
	pipe.SAdd(ctx, setKey, accountID)
	pipe.ExpireAt(ctx, key, s.expiry(w))
	pipe.ExpireAt(ctx, setKey, s.expiry(w))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("ledger redis: incr global: %w", err)
	}
	return incr.Val(), nil
}

func (s *Store) MarkBlocked(ctx context.Context, w window.Window, accountID string) error {
	key := s.globalSetKey(w, "blocked")
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, accountID)
	pipe.ExpireAt(ctx, key, s.expiry(w))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ledger redis: mark blocked: %w", err)
	}
	return nil
}

func (s *Store) SetQueueSize(ctx context.Context, w window.Window, size int) error {
	key := s.globalKey(w)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, "queue_size", size)
	pipe.ExpireAt(ctx, key, s.expiry(w))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ledger redis: set queue size: %w", err)
	}
	return nil
}

func (s *Store) Tenant(ctx context.Context, tenantID string, w window.Window) (domain.TenantUsage, error) {
	fields, err := s.client.HGetAll(ctx, s.tenantKey(tenantID, w)).Result()
	if err != nil && err != goredis.Nil {
		return domain.TenantUsage{}, fmt.Errorf("ledger redis: read tenant %s: %w", tenantID, err)
	}

	count, _ := strconv.ParseInt(fields["count"], 10, 64)
	comments, _ := strconv.ParseInt(fields["comments"], 10, 64)
	dms, _ := strconv.ParseInt(fields["dms"], 10, 64)
	followChecks, _ := strconv.ParseInt(fields["follow_checks"], 10, 64)

	return domain.TenantUsage{
		TenantID:     tenantID,
		WindowKey:    w.Key,
		WindowLabel:  w.Label(),
		Count:        count,
		Comments:     comments,
		DMs:          dms,
		FollowChecks: followChecks,
	}, nil
}

func (s *Store) IncrTenant(ctx context.Context, tenantID string, w window.Window, action domain.ActionType) (int64, error) {
	key := s.tenantKey(tenantID, w)

	pipe := s.client.TxPipeline()
	incr := pipe.HIncrBy(ctx, key, "count", 1)
	switch action {
	case domain.ActionComment:
		pipe.HIncrBy(ctx, key, "comments", 1)
	case domain.ActionDM:
		pipe.HIncrBy(ctx, key, "dms", 1)
	case domain.ActionFollowCheck:
		pipe.HIncrBy(ctx, key, "follow_checks", 1)
	}
	pipe.ExpireAt(ctx, key, s.expiry(w))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("ledger redis: incr tenant %s: %w", tenantID, err)
	}
	return incr.Val(), nil
}

func (s *Store) Account(ctx context.Context, accountID string, w window.Window) (domain.AccountUsage, error) {
	raw, err := s.client.Get(ctx, s.accountKey(accountID, w)).Result()
	if err == goredis.Nil {
		return domain.AccountUsage{AccountID: accountID, WindowKey: w.Key}, nil
	}
	if err != nil {
		return domain.AccountUsage{}, fmt.Errorf("ledger redis: read account %s: %w", accountID, err)
	}

	calls, _ := strconv.ParseInt(raw, 10, 64)
	return domain.AccountUsage{
		AccountID:     accountID,
		WindowKey:     w.Key,
		CallsInWindow: calls,
	}, nil
}

func (s *Store) IncrAccount(ctx context.Context, accountID string, w window.Window) (int64, error) {
	key := s.accountKey(accountID, w)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireAt(ctx, key, s.expiry(w))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("ledger redis: incr account %s: %w", accountID, err)
	}
	return incr.Val(), nil
}
