package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAt(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 3, 14, 14, 37, 22, 0, time.UTC)
	w := At(at)

	assert.Equal(t, time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, 14, w.StartHour)
	assert.Equal(t, w.Start.Unix()/3600, w.Key)
	assert.Equal(t, "14-15", w.Label())
}

func TestAt_NonUTCInput(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("UTC+2", 2*3600)
	local := time.Date(2026, 3, 14, 16, 30, 0, 0, loc) // 14:30 UTC
	w := At(local)

	assert.Equal(t, 14, w.StartHour)
	assert.Equal(t, At(local.UTC()).Key, w.Key)
}

func TestKey_DistinctAcrossDays(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 3, 14, 14, 5, 0, 0, time.UTC)
	today := At(at)
	tomorrow := At(at.Add(24 * time.Hour))

	// Same hour of day, same label, different identity.
	assert.Equal(t, today.Label(), tomorrow.Label())
	assert.NotEqual(t, today.Key, tomorrow.Key)
	assert.Equal(t, today.Key+24, tomorrow.Key)
}

func TestFromKey_RoundTrip(t *testing.T) {
	t.Parallel()
	w := At(time.Date(2026, 3, 14, 9, 59, 59, 0, time.UTC))
	got := FromKey(w.Key)

	assert.Equal(t, w, got)
}

func TestPrev(t *testing.T) {
	t.Parallel()
	w := At(time.Date(2026, 3, 14, 0, 10, 0, 0, time.UTC))
	prev := w.Prev()

	assert.Equal(t, w.Key-1, prev.Key)
	assert.Equal(t, 23, prev.StartHour)
	assert.Equal(t, w.Start, prev.End)
}

func TestLabel_MidnightWrap(t *testing.T) {
	t.Parallel()
	w := At(time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC))
	assert.Equal(t, "23-0", w.Label())
}

func TestContains(t *testing.T) {
	t.Parallel()
	w := At(time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC))

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.Start.Add(59*time.Minute+59*time.Second)))
	assert.False(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.Start.Add(-time.Nanosecond)))
}
