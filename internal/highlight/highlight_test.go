package highlight

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

func newTestChannel(opts ...Option) (*Channel, *ManualClock) {
	clock := NewManualClock(epoch)
	return New(append([]Option{WithClock(clock)}, opts...)...), clock
}

func TestHighlight_ExpiresAfterDuration(t *testing.T) {
	ch, clock := newTestChannel()

	ch.Highlight([]string{"n1", "n2"}, 100*time.Millisecond)
	assert.True(t, ch.IsHighlighted("n1"))
	assert.True(t, ch.IsHighlighted("n2"))

	clock.Advance(150 * time.Millisecond)
	assert.False(t, ch.IsHighlighted("n1"))
	assert.False(t, ch.IsHighlighted("n2"))
	assert.Empty(t, ch.Current())
	assert.Equal(t, 0, clock.Pending())
}

func TestHighlight_ReplacesNotUnions(t *testing.T) {
	ch, clock := newTestChannel()

	ch.Highlight([]string{"n1", "n2"}, 100*time.Millisecond)
	clock.Advance(50 * time.Millisecond)
	ch.Highlight([]string{"n3"}, time.Second)

	assert.False(t, ch.IsHighlighted("n1"))
	assert.True(t, ch.IsHighlighted("n3"))
	assert.Equal(t, 1, clock.Pending(), "the first timer is cancelled")

	// the original 100ms deadline passes without touching the new set
	clock.Advance(100 * time.Millisecond)
	assert.True(t, ch.IsHighlighted("n3"))

	clock.Advance(time.Second)
	assert.False(t, ch.IsHighlighted("n3"))
}

func TestHighlight_StaleTimerIgnored(t *testing.T) {
	ch, _ := newTestChannel()
	ch.Highlight([]string{"old"}, time.Second)
	gen := ch.generation
	ch.Highlight([]string{"new"}, 0)

	ch.expire(gen)
	assert.True(t, ch.IsHighlighted("new"))
}

func TestHighlight_NonPositiveDurationNeverExpires(t *testing.T) {
	ch, clock := newTestChannel()

	ch.Highlight([]string{"n1"}, 0)
	clock.Advance(24 * time.Hour)
	assert.True(t, ch.IsHighlighted("n1"))
	_, ok := ch.Deadline()
	assert.False(t, ok)

	ch.Highlight([]string{"n2"}, -time.Second)
	assert.True(t, ch.IsHighlighted("n2"))
	assert.Equal(t, 0, clock.Pending())
}

func TestClear_DisarmsTimer(t *testing.T) {
	ch, clock := newTestChannel()

	ch.Highlight([]string{"n1"}, time.Second)
	ch.Clear()
	assert.False(t, ch.IsHighlighted("n1"))
	assert.Equal(t, 0, clock.Pending())
}

func TestDeadline(t *testing.T) {
	ch, clock := newTestChannel()
	ch.Highlight([]string{"n1"}, 3*time.Second)

	at, ok := ch.Deadline()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(3*time.Second), at)

	clock.Advance(3 * time.Second)
	_, ok = ch.Deadline()
	assert.False(t, ok)
}

func TestOnChange(t *testing.T) {
	var got [][]string
	ch, clock := newTestChannel(WithOnChange(func(ids []string) {
		got = append(got, ids)
	}))

	ch.Highlight([]string{"b", "a"}, time.Second)
	clock.Advance(time.Second)
	ch.Clear() // nothing to clear, no notification

	assert.Equal(t, [][]string{{"a", "b"}, nil}, got)
}

func TestRealClock_Expires(t *testing.T) {
	var mu sync.Mutex
	expired := false
	ch := New(WithOnChange(func(ids []string) {
		if ids == nil {
			mu.Lock()
			expired = true
			mu.Unlock()
		}
	}))

	ch.Highlight([]string{"n1"}, 20*time.Millisecond)
	assert.True(t, ch.IsHighlighted("n1"))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return expired
	}, time.Second, 5*time.Millisecond)
	assert.False(t, ch.IsHighlighted("n1"))
}
