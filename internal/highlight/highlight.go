// Package highlight broadcasts which nodes are currently flagged as invalid.
// The state is a single expiring token: a set of ids, a deadline and a
// generation. Highlighting again replaces the token instead of merging it.
package highlight

import (
	"sort"
	"sync"
	"time"
)

// Channel holds the current highlight token. It is safe for use from the
// timer goroutine of RealClock and the caller at the same time.
type Channel struct {
	mu         sync.Mutex
	clock      Clock
	ids        map[string]bool
	deadline   time.Time // zero means no expiry
	generation uint64
	timer      Timer
	onChange   func(ids []string)
}

// Option configures a Channel.
type Option func(*Channel)

// WithClock injects the time source.
func WithClock(c Clock) Option {
	return func(ch *Channel) { ch.clock = c }
}

// WithOnChange registers a callback fired after every change of the set,
// including expiry. It runs outside the channel's lock.
func WithOnChange(fn func(ids []string)) Option {
	return func(ch *Channel) { ch.onChange = fn }
}

// New returns an empty channel on the wall clock unless WithClock is given.
func New(opts ...Option) *Channel {
	ch := &Channel{clock: RealClock{}, ids: map[string]bool{}}
	for _, opt := range opts {
		opt(ch)
	}
	return ch
}

// Highlight replaces the current set with ids and re-arms the expiry. A
// non-positive d keeps the set until Clear or the next Highlight.
func (c *Channel) Highlight(ids []string, d time.Duration) {
	c.mu.Lock()
	c.disarm()
	c.generation++
	c.ids = make(map[string]bool, len(ids))
	for _, id := range ids {
		c.ids[id] = true
	}
	c.deadline = time.Time{}
	if d > 0 {
		gen := c.generation
		c.deadline = c.clock.Now().Add(d)
		c.timer = c.clock.AfterFunc(d, func() { c.expire(gen) })
	}
	current := c.currentLocked()
	c.mu.Unlock()
	c.notify(current)
}

// Clear empties the set immediately and disarms the expiry.
func (c *Channel) Clear() {
	c.mu.Lock()
	c.disarm()
	c.generation++
	hadIDs := len(c.ids) > 0
	c.ids = map[string]bool{}
	c.deadline = time.Time{}
	c.mu.Unlock()
	if hadIDs {
		c.notify(nil)
	}
}

// IsHighlighted reports whether id is in the live set. A token past its
// deadline counts as empty even if its timer has not run yet.
func (c *Channel) IsHighlighted(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expiredLocked() {
		return false
	}
	return c.ids[id]
}

// Current returns the live set, sorted.
func (c *Channel) Current() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLocked()
}

// Deadline returns when the live set expires; ok is false when nothing is
// highlighted or the set never expires.
func (c *Channel) Deadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.ids) == 0 || c.deadline.IsZero() || c.expiredLocked() {
		return time.Time{}, false
	}
	return c.deadline, true
}

func (c *Channel) currentLocked() []string {
	if c.expiredLocked() || len(c.ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.ids))
	for id := range c.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (c *Channel) expiredLocked() bool {
	return !c.deadline.IsZero() && !c.clock.Now().Before(c.deadline)
}

func (c *Channel) disarm() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// expire clears the token armed under gen. A timer from a superseded token
// is ignored.
func (c *Channel) expire(gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.ids = map[string]bool{}
	c.deadline = time.Time{}
	c.mu.Unlock()
	c.notify(nil)
}

func (c *Channel) notify(ids []string) {
	if c.onChange != nil {
		c.onChange(ids)
	}
}
