package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointLimiter_BurstWithinLimit(t *testing.T) {
	t.Parallel()
	el := NewEndpointLimiter(DefaultEndpointRates())
	ctx := context.Background()

	// Burst capacity matches the per-second rate, so the first tokens are
	// immediate.
	start := time.Now()
	for i := 0; i < 2; i++ {
		require.NoError(t, el.Wait(ctx, "dms"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestEndpointLimiter_UnknownEndpoint(t *testing.T) {
	t.Parallel()
	el := NewEndpointLimiter(DefaultEndpointRates())
	assert.NoError(t, el.Wait(context.Background(), "stories"))
}

func TestEndpointLimiter_ContextCancelled(t *testing.T) {
	t.Parallel()
	el := NewEndpointLimiter(EndpointRates{Comments: 1, DMs: 1, Follows: 1, Profiles: 1})
	ctx, cancel := context.WithCancel(context.Background())

	// Drain the only token, then cancel: the next wait must fail instead
	// of blocking.
	require.NoError(t, el.Wait(ctx, "comments"))
	cancel()
	err := el.Wait(ctx, "comments")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit comments")
}
