// Package timertest provides a manually advanced clock for timer-driven tests.
package timertest

import (
	"sort"
	"sync"
	"time"

	"quiz-gauntlet/internal/timer"
)

// Clock is a fake timer.Clock. Scheduled callbacks only run inside Advance,
// on the calling goroutine, in deadline order.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending []*scheduled
}

type scheduled struct {
	clock   *Clock
	at      time.Time
	seq     int
	f       func()
	stopped bool
}

func (s *scheduled) Stop() bool {
	s.clock.mu.Lock()
	defer s.clock.mu.Unlock()
	if s.stopped {
		return false
	}
	s.stopped = true
	s.clock.removeLocked(s)
	return true
}

// New returns a clock frozen at start.
func New(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) AfterFunc(d time.Duration, f func()) timer.Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	s := &scheduled{clock: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.pending = append(c.pending, s)
	return s
}

// Advance moves time forward by d, running every callback that falls due,
// including callbacks scheduled by earlier callbacks within the window.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.stopped = true
		c.removeLocked(next)
		c.mu.Unlock()

		next.f()
	}
}

// Pending reports how many callbacks are scheduled.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Clock) nextDueLocked(target time.Time) *scheduled {
	if len(c.pending) == 0 {
		return nil
	}
	sort.SliceStable(c.pending, func(i, j int) bool {
		if !c.pending[i].at.Equal(c.pending[j].at) {
			return c.pending[i].at.Before(c.pending[j].at)
		}
		return c.pending[i].seq < c.pending[j].seq
	})
	if c.pending[0].at.After(target) {
		return nil
	}
	return c.pending[0]
}

func (c *Clock) removeLocked(s *scheduled) {
	for i, p := range c.pending {
		if p == s {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}
