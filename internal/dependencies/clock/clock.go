package clock

import (
	"sync"
	"time"
)

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time

	// AfterFunc runs fn once after d has elapsed
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a handle to a scheduled callback
type Timer interface {
	// Stop prevents the callback from firing. Returns false if it already fired or was stopped.
	Stop() bool
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules fn on the runtime timer
func (c *RealClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// repeater re-arms a one-shot timer after every tick until stopped
type repeater struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration
	fn       func()
	current  Timer
	stopped  bool
}

// Repeat runs fn every interval on c until the returned Timer is stopped
func Repeat(c Clock, interval time.Duration, fn func()) Timer {
	r := &repeater{clock: c, interval: interval, fn: fn}
	r.mu.Lock()
	r.current = c.AfterFunc(interval, r.tick)
	r.mu.Unlock()
	return r
}

func (r *repeater) tick() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.fn()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.stopped {
		r.current = r.clock.AfterFunc(r.interval, r.tick)
	}
}

// Stop halts the repetition
func (r *repeater) Stop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return false
	}
	r.stopped = true
	if r.current != nil {
		r.current.Stop()
	}
	return true
}
