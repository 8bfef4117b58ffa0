package editwindow

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// TickInterval is the countdown cadence.
const TickInterval = time.Second

// Scheduler runs fn every interval until the returned cancel func is called.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func(), err error)
}

// Tick is one countdown emission.
type Tick struct {
	Verdict Verdict
	// Expired is true only on the tick where the window closed.
	Expired bool
}

// Countdown re-evaluates the edit window on every tick until stopped.
type Countdown struct {
	createdAt time.Time
	now       func() time.Time
	emit      func(Tick)

	mu      sync.Mutex
	last    Verdict
	stopped bool
	cancel  func()
}

// StartCountdown emits the current verdict immediately and then once per
// TickInterval. The countdown stops itself after emitting the expiry tick.
func StartCountdown(s Scheduler, createdAt time.Time, now func() time.Time, emit func(Tick)) (*Countdown, error) {
	if s == nil {
		return nil, errors.New("countdown scheduler is nil")
	}
	if now == nil {
		now = time.Now
	}
	if emit == nil {
		emit = func(Tick) {}
	}

	c := &Countdown{createdAt: createdAt, now: now, emit: emit}

	first := Evaluate(createdAt, now())
	c.last = first
	if !first.Editable() {
		c.stopped = true
		emit(Tick{Verdict: first})
		return c, nil
	}

	// Hold the lock so a fast first tick cannot run before cancel is stored.
	c.mu.Lock()
	cancel, err := s.Every(TickInterval, c.tick)
	if err != nil {
		c.stopped = true
		c.mu.Unlock()
		return nil, fmt.Errorf("schedule countdown: %w", err)
	}
	c.cancel = cancel
	c.mu.Unlock()

	emit(Tick{Verdict: first})
	return c, nil
}

func (c *Countdown) tick() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	v := Evaluate(c.createdAt, c.now())
	expired := c.last.Editable() && !v.Editable()
	c.last = v
	if expired {
		c.stopLocked()
	}
	c.mu.Unlock()

	c.emit(Tick{Verdict: v, Expired: expired})
}

// Current returns the latest emitted verdict.
func (c *Countdown) Current() Verdict {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Stop cancels the tick. Safe to call more than once.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Stopped reports whether the countdown no longer ticks.
func (c *Countdown) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *Countdown) stopLocked() {
	if c.stopped && c.cancel == nil {
		return
	}
	c.stopped = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
