// Package subscription defines the read-only lookup collaborator the
// admission controller uses to size a tenant's window budget.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/replyhive/replyhive-go/internal/domain"
)

// ErrUnknownTenant is returned when no subscription exists for a tenant.
var ErrUnknownTenant = errors.New("subscription: unknown tenant")

// Source resolves a tenant id to its purchased plan.
type Source interface {
	Lookup(ctx context.Context, tenantID string) (domain.Subscription, error)
}

// PlanDefaults returns the stock limits for a tier.
func PlanDefaults(tier domain.PlanTier) domain.Subscription {
	switch tier {
	case domain.PlanGrowth:
		return domain.Subscription{Plan: tier, AccountLimit: 3, ReplyLimit: 2000, DMLimit: 1000, IsActive: true}
	case domain.PlanPro:
		return domain.Subscription{Plan: tier, AccountLimit: 10, ReplyLimit: 10000, DMLimit: 5000, IsActive: true}
	default:
		return domain.Subscription{Plan: domain.PlanStarter, AccountLimit: 1, ReplyLimit: 500, DMLimit: 200, IsActive: true}
	}
}

// StaticSource is a mutable in-memory Source for tests, stub mode, and
// single-node deployments configured at boot.
type StaticSource struct {
	mu   sync.RWMutex
	subs map[string]domain.Subscription
}

var _ Source = (*StaticSource)(nil)

// NewStaticSource creates an empty StaticSource.
func NewStaticSource() *StaticSource {
	return &StaticSource{subs: make(map[string]domain.Subscription)}
}

// Set registers or replaces a tenant's subscription.
func (s *StaticSource) Set(tenantID string, sub domain.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[tenantID] = sub
}

// SetPlan registers a tenant on the stock limits for a tier.
func (s *StaticSource) SetPlan(tenantID string, tier domain.PlanTier) {
	s.Set(tenantID, PlanDefaults(tier))
}

// ParsePlans parses a comma-separated tenant:tier list (e.g.
// "acme:starter,globex:pro") into a StaticSource. Returns an error for
// unknown tiers or malformed entries.
func ParsePlans(raw string) (*StaticSource, error) {
	src := NewStaticSource()
	if raw == "" {
		return src, nil
	}
	for _, part := range strings.Split(raw, ",") {
		entry := strings.TrimSpace(part)
		if entry == "" {
			continue
		}
		tenant, tier, ok := strings.Cut(entry, ":")
		if !ok || tenant == "" {
			return nil, fmt.Errorf("subscription: malformed plan entry %q", entry)
		}
		p := domain.PlanTier(strings.ToLower(strings.TrimSpace(tier)))
		if !p.Valid() {
			return nil, fmt.Errorf("subscription: unknown tier %q for tenant %s", tier, tenant)
		}
		src.SetPlan(strings.TrimSpace(tenant), p)
	}
	return src, nil
}

func (s *StaticSource) Lookup(_ context.Context, tenantID string) (domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[tenantID]
	if !ok {
		return domain.Subscription{}, ErrUnknownTenant
	}
	return sub, nil
}
