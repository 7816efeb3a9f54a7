// Package postgres provides a PostgreSQL-backed queue.Store.
//
// Deferred items survive process restarts here: the rollover processor
// only ever transitions status with compare-and-set updates, so a crash
// mid-batch re-attempts items still QUEUED/PENDING and never re-executes
// COMPLETED ones. FIFO positions come from a per-window MAX+1 assigned
// inside the insert transaction.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/replyhive/replyhive-go/internal/domain"
	"github.com/replyhive/replyhive-go/internal/queue"
)

// Store is a PostgreSQL-backed queue.Store.
type Store struct {
	pool        *pgxpool.Pool
	tablePrefix string
}

var _ queue.Store = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithTablePrefix sets the table name prefix (default "replyhive_").
func WithTablePrefix(prefix string) Option {
	return func(s *Store) { s.tablePrefix = prefix }
}

// New creates a PostgreSQL-backed queue store.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:        pool,
		tablePrefix: "replyhive_",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) table() string { return s.tablePrefix + "queue_items" }

// EnsureSchema creates the required table and indexes if they don't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id UUID PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			action_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			priority INT NOT NULL,
			status TEXT NOT NULL,
			window_key BIGINT NOT NULL,
			window_label TEXT NOT NULL,
			fifo_position INT NOT NULL,
			attempts INT NOT NULL DEFAULT 0,
			max_attempts INT NOT NULL,
			retry_count INT NOT NULL DEFAULT 0,
			blocking_reason TEXT NOT NULL,
			original_timestamp TIMESTAMPTZ NOT NULL,
			result TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			processed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS %[1]s_window_status_idx
			ON %[1]s (window_key, status, priority, fifo_position);
		CREATE INDEX IF NOT EXISTS %[1]s_original_ts_idx
			ON %[1]s (original_timestamp);
	`, s.table())

	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("queue postgres: ensure schema: %w", err)
	}
	return nil
}

const itemColumns = `id, tenant_id, account_id, action_type, payload, priority, status,
	window_key, window_label, fifo_position, attempts, max_attempts, retry_count,
	blocking_reason, original_timestamp, result, error, processed_at`

func (s *Store) Enqueue(ctx context.Context, item domain.QueueItem) (domain.QueueItem, error) {
	raw, err := item.Payload.Encode()
	if err != nil {
		return domain.QueueItem{}, fmt.Errorf("queue postgres: encode payload: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.QueueItem{}, fmt.Errorf("queue postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	q := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
			(SELECT COALESCE(MAX(fifo_position), 0) + 1 FROM %[1]s WHERE window_key = $8),
			$10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING fifo_position
	`, s.table(), itemColumns)

	err = tx.QueryRow(ctx, q,
		item.ID, item.TenantID, item.AccountID, string(item.Action), raw,
		item.Priority, string(item.Status), item.WindowKey, item.WindowLabel,
		item.Attempts, item.MaxAttempts, item.RetryCount, string(item.BlockReason),
		item.OriginalTimestamp, item.Result, item.Error, item.ProcessedAt,
	).Scan(&item.Position)
	if err != nil {
		return domain.QueueItem{}, fmt.Errorf("queue postgres: enqueue: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.QueueItem{}, fmt.Errorf("queue postgres: commit enqueue: %w", err)
	}
	return item, nil
}

func scanItem(row pgx.Row) (domain.QueueItem, error) {
	var (
		item   domain.QueueItem
		action string
		status string
		reason string
		raw    []byte
	)
	err := row.Scan(
		&item.ID, &item.TenantID, &item.AccountID, &action, &raw,
		&item.Priority, &status, &item.WindowKey, &item.WindowLabel,
		&item.Position, &item.Attempts, &item.MaxAttempts, &item.RetryCount,
		&reason, &item.OriginalTimestamp, &item.Result, &item.Error, &item.ProcessedAt,
	)
	if err != nil {
		return domain.QueueItem{}, err
	}
	item.Action = domain.ActionType(action)
	item.Status = domain.ItemStatus(status)
	item.BlockReason = domain.BlockReason(reason)
	item.Payload, err = domain.DecodePayload(raw)
	if err != nil {
		return domain.QueueItem{}, err
	}
	return item, nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.QueueItem, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, itemColumns, s.table())
	item, err := scanItem(s.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return domain.QueueItem{}, queue.ErrNotFound
	}
	if err != nil {
		return domain.QueueItem{}, fmt.Errorf("queue postgres: get %s: %w", id, err)
	}
	return item, nil
}

func (s *Store) DequeueBatch(ctx context.Context, maxKey int64, limit int) ([]domain.QueueItem, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE window_key <= $1 AND status = $2
		ORDER BY priority ASC, window_key ASC, fifo_position ASC
		LIMIT $3
	`, itemColumns, s.table())

	rows, err := s.pool.Query(ctx, q, maxKey, string(domain.StatusQueued), limit)
	if err != nil {
		return nil, fmt.Errorf("queue postgres: dequeue batch: %w", err)
	}
	defer rows.Close()

	var batch []domain.QueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("queue postgres: scan item: %w", err)
		}
		batch = append(batch, item)
	}
	return batch, rows.Err()
}

func (s *Store) CountQueued(ctx context.Context, maxKey int64) (int, error) {
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE window_key <= $1 AND status = $2`, s.table())
	var n int
	if err := s.pool.QueryRow(ctx, q, maxKey, string(domain.StatusQueued)).Scan(&n); err != nil {
		return 0, fmt.Errorf("queue postgres: count queued: %w", err)
	}
	return n, nil
}

func (s *Store) Depth(ctx context.Context) (map[domain.ItemStatus]int, error) {
	q := fmt.Sprintf(`SELECT status, COUNT(*) FROM %s GROUP BY status`, s.table())
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("queue postgres: depth: %w", err)
	}
	defer rows.Close()

	depth := make(map[domain.ItemStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("queue postgres: scan depth: %w", err)
		}
		depth[domain.ItemStatus(status)] = n
	}
	return depth, rows.Err()
}

func (s *Store) CASStatus(ctx context.Context, id string, from, to domain.ItemStatus) (bool, error) {
	q := fmt.Sprintf(`UPDATE %s SET status = $1 WHERE id = $2 AND status = $3`, s.table())
	tag, err := s.pool.Exec(ctx, q, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("queue postgres: cas status %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ResetStalled(ctx context.Context, maxKey int64) (int, error) {
	q := fmt.Sprintf(`UPDATE %s SET status = $1 WHERE window_key <= $2 AND status IN ($3, $4)`, s.table())
	tag, err := s.pool.Exec(ctx, q,
		string(domain.StatusQueued), maxKey,
		string(domain.StatusPending), string(domain.StatusProcessing),
	)
	if err != nil {
		return 0, fmt.Errorf("queue postgres: reset stalled: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) Restamp(ctx context.Context, id string, windowKey int64, windowLabel string) error {
	q := fmt.Sprintf(`UPDATE %s SET window_key = $1, window_label = $2 WHERE id = $3`, s.table())
	tag, err := s.pool.Exec(ctx, q, windowKey, windowLabel, id)
	if err != nil {
		return fmt.Errorf("queue postgres: restamp %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return queue.ErrNotFound
	}
	return nil
}

func (s *Store) Update(ctx context.Context, item domain.QueueItem) error {
	q := fmt.Sprintf(`
		UPDATE %s SET
			status = $1, attempts = $2, retry_count = $3,
			window_key = $4, window_label = $5,
			result = $6, error = $7, processed_at = $8
		WHERE id = $9
	`, s.table())

	tag, err := s.pool.Exec(ctx, q,
		string(item.Status), item.Attempts, item.RetryCount,
		item.WindowKey, item.WindowLabel,
		item.Result, item.Error, item.ProcessedAt, item.ID,
	)
	if err != nil {
		return fmt.Errorf("queue postgres: update %s: %w", item.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return queue.ErrNotFound
	}
	return nil
}

func (s *Store) Purge(ctx context.Context, before time.Time) (int, error) {
	q := fmt.Sprintf(`DELETE FROM %s WHERE original_timestamp < $1`, s.table())
	tag, err := s.pool.Exec(ctx, q, before)
	if err != nil {
		return 0, fmt.Errorf("queue postgres: purge: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Connect opens a pgx pool for the given DSN and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("queue postgres: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("queue postgres: ping: %w", err)
	}
	return pool, nil
}
