// Package clocktest provides a manually advanced clock for timer-driven tests.
package clocktest

import (
	"sync"
	"time"

	"github.com/omochice/toy-room-chat/internal/chat"
)

// Clock implements chat.Clock. Time only moves on Advance, and due callbacks
// run synchronously on the goroutine calling Advance.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*timer
}

type timer struct {
	clock  *Clock
	at     time.Time
	seq    int
	f      func()
	active bool
	listed bool
}

var _ chat.Clock = (*Clock)(nil)

// New returns a clock reading start.
func New(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) AfterFunc(d time.Duration, f func()) chat.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &timer{clock: c, at: c.now.Add(d), seq: c.seq, f: f, active: true}
	c.track(t)
	return t
}

// Advance moves the clock forward by d, running every callback that falls
// due on the way in deadline order.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		next := c.nextDue(target)
		if next == nil {
			break
		}
		c.now = next.at
		next.active = false
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	c.prune()
	c.mu.Unlock()
}

// Pending returns the number of armed timers.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if t.active {
			n++
		}
	}
	return n
}

// track lists t. The caller holds c.mu.
func (c *Clock) track(t *timer) {
	if !t.listed {
		t.listed = true
		c.timers = append(c.timers, t)
	}
}

// prune drops timers that can no longer fire. Reset lists them again.
func (c *Clock) prune() {
	kept := c.timers[:0]
	for _, t := range c.timers {
		if t.active {
			kept = append(kept, t)
		} else {
			t.listed = false
		}
	}
	clear(c.timers[len(kept):])
	c.timers = kept
}

func (c *Clock) nextDue(target time.Time) *timer {
	var next *timer
	for _, t := range c.timers {
		if !t.active || t.at.After(target) {
			continue
		}
		if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.active
	t.active = false
	return was
}

func (t *timer) Reset(d time.Duration) bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	was := t.active
	c.seq++
	t.at = c.now.Add(d)
	t.seq = c.seq
	t.active = true
	c.track(t)
	return was
}
