// Package ledger tracks global, per-tenant, and per-account call counts
// per window. Counters are conservative estimates feeding a rate limiter,
// not a billing ledger: stores use atomic increments to avoid lost
// updates, and a stale nonzero count only ever makes admission more
// conservative.
package ledger

import (
	"context"

	"github.com/replyhive/replyhive-go/internal/domain"
	"github.com/replyhive/replyhive-go/internal/window"
)

// Store is the persistence port for quota counters. Reads for a tenant or
// account whose stored window no longer matches the requested one must
// return a zeroed counter stamped with the new window (lazy reset); no
// sweep job exists for these rows.
type Store interface {
	// Global returns the platform-wide row for the window, creating it
	// on first access.
	Global(ctx context.Context, w window.Window) (domain.GlobalUsage, error)

	// IncrGlobal atomically increments the window's total call count,
	// records the account in the processed set, and returns the new
	// total.
	IncrGlobal(ctx context.Context, w window.Window, accountID string) (int64, error)

	// MarkBlocked records an account that hit its vendor ceiling in the
	// window.
	MarkBlocked(ctx context.Context, w window.Window, accountID string) error

	// SetQueueSize stamps the current deferred-queue depth on the global
	// row for observability.
	SetQueueSize(ctx context.Context, w window.Window, size int) error

	// Tenant returns the tenant's counter for the window.
	Tenant(ctx context.Context, tenantID string, w window.Window) (domain.TenantUsage, error)

	// IncrTenant atomically increments the tenant's count and the
	// per-action sub-counter, returning the new count.
	IncrTenant(ctx context.Context, tenantID string, w window.Window, action domain.ActionType) (int64, error)

	// Account returns the external account's embedded rate counter for
	// the window.
	Account(ctx context.Context, accountID string, w window.Window) (domain.AccountUsage, error)

	// IncrAccount atomically increments the account counter, returning
	// the new value.
	IncrAccount(ctx context.Context, accountID string, w window.Window) (int64, error)
}
