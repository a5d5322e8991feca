// Package timer implements the per-question countdown used by the extra stage.
//
// Every Start creates a new instance identified by a Token. Tick and timeout
// callbacks carry the token of the instance that produced them so a consumer can
// drop callbacks from an instance it has already stopped.
package timer

import (
	"sync"
	"time"
)

// DefaultWarning is the remaining time at or below which Warning reports true.
const DefaultWarning = 3 * time.Second

// Token identifies one started countdown. The zero Token never identifies a running timer.
type Token uint64

// Stopper cancels a scheduled callback.
type Stopper interface {
	Stop() bool
}

// Clock abstracts scheduling so tests can drive time by hand.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

type realClock struct{}

// RealClock schedules with the runtime timer.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// Option configures a Timer.
type Option func(*Timer)

// WithWarning overrides the warning threshold.
func WithWarning(d time.Duration) Option {
	return func(t *Timer) { t.warnAt = d }
}

// OnTick registers the callback invoked once per elapsed second with the remaining time.
func OnTick(fn func(tok Token, remaining time.Duration)) Option {
	return func(t *Timer) { t.onTick = fn }
}

// OnTimeout registers the callback invoked when the remaining time reaches zero.
func OnTimeout(fn func(tok Token)) Option {
	return func(t *Timer) { t.onTimeout = fn }
}

// Timer is a restartable countdown. At most one instance is active at a time.
type Timer struct {
	clock     Clock
	warnAt    time.Duration
	onTick    func(Token, time.Duration)
	onTimeout func(Token)

	mu        sync.Mutex
	last      Token
	active    Token
	duration  time.Duration
	remaining time.Duration
	pending   Stopper
}

// New returns a stopped timer driven by clock, or the real clock when nil.
func New(clock Clock, opts ...Option) *Timer {
	if clock == nil {
		clock = RealClock()
	}
	t := &Timer{clock: clock, warnAt: DefaultWarning}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start stops any running instance and begins a new countdown of d.
func (t *Timer) Start(d time.Duration) Token {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	t.last++
	t.active = t.last
	t.duration = d
	t.remaining = d
	t.scheduleLocked(t.active)
	return t.active
}

// Stop cancels the running instance. Calling it when nothing runs is a no-op.
// Once Stop returns, the stopped instance's token is no longer Active.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

// Active returns the token of the running instance.
func (t *Timer) Active() (Token, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active, t.active != 0
}

// Duration is the length of the most recent countdown.
func (t *Timer) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.duration
}

// Remaining is the time left on the running countdown.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Warning is a presentation hint; it has no effect on judging.
func (t *Timer) Warning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active != 0 && t.remaining <= t.warnAt
}

func (t *Timer) cancelLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.active = 0
}

func (t *Timer) scheduleLocked(tok Token) {
	step := time.Second
	if t.remaining < step {
		step = t.remaining
	}
	t.pending = t.clock.AfterFunc(step, func() { t.fire(tok, step) })
}

func (t *Timer) fire(tok Token, step time.Duration) {
	t.mu.Lock()
	if tok != t.active {
		t.mu.Unlock()
		return
	}
	t.remaining -= step
	if t.remaining <= 0 {
		t.remaining = 0
		t.active = 0
		t.pending = nil
		t.mu.Unlock()
		if t.onTimeout != nil {
			t.onTimeout(tok)
		}
		return
	}
	remaining := t.remaining
	t.scheduleLocked(tok)
	t.mu.Unlock()
	// callbacks run unlocked; consumers may call Stop or Start from them
	if t.onTick != nil {
		t.onTick(tok, remaining)
	}
}
