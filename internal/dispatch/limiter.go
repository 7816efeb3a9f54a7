package dispatch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// EndpointRates configures per-endpoint request rates (requests per
// second) against the vendor API.
type EndpointRates struct {
	Comments float64
	DMs      float64
	Follows  float64
	Profiles float64
}

// DefaultEndpointRates returns conservative vendor rate limits.
func DefaultEndpointRates() EndpointRates {
	return EndpointRates{
		Comments: 5,
		DMs:      2,
		Follows:  10,
		Profiles: 10,
	}
}

// EndpointLimiter rate-limits vendor API calls per endpoint using token
// buckets. This paces dispatch bursts during rollover; the window quotas
// are enforced upstream by admission.
type EndpointLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewEndpointLimiter creates a limiter with the given per-endpoint rates.
func NewEndpointLimiter(rates EndpointRates) *EndpointLimiter {
	limiters := map[string]*rate.Limiter{
		"comments": rate.NewLimiter(rate.Limit(rates.Comments), int(rates.Comments)),
		"dms":      rate.NewLimiter(rate.Limit(rates.DMs), int(rates.DMs)),
		"follows":  rate.NewLimiter(rate.Limit(rates.Follows), int(rates.Follows)),
		"profiles": rate.NewLimiter(rate.Limit(rates.Profiles), int(rates.Profiles)),
	}
	return &EndpointLimiter{limiters: limiters}
}

// Wait blocks until a token is available for the named endpoint, or ctx
// is cancelled.
func (el *EndpointLimiter) Wait(ctx context.Context, endpoint string) error {
	el.mu.RLock()
	limiter, ok := el.limiters[endpoint]
	el.mu.RUnlock()
	if !ok {
		return nil // unknown endpoint = no limit
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit %s: %w", endpoint, err)
	}
	return nil
}
