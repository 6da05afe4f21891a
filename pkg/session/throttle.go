package session

import "time"

// Throttle turns host frame times into sync ticks. Elapsed time accumulates
// until it reaches Delay; the tick then fires and the accumulator keeps
// the remainder, so a slow frame does not cause a burst of ticks.
type Throttle struct {
	Delay time.Duration
	acc   time.Duration
}

// NewThrottle creates a Throttle. A non-positive delay uses
// DefaultTickInterval.
func NewThrottle(delay time.Duration) *Throttle {
	if delay <= 0 {
		delay = DefaultTickInterval
	}
	return &Throttle{Delay: delay}
}

// Advance adds dt and reports whether a tick is due.
func (t *Throttle) Advance(dt time.Duration) bool {
	if dt > 0 {
		t.acc += dt
	}
	if t.acc < t.Delay {
		return false
	}
	t.acc %= t.Delay
	return true
}

// Pending returns the accumulated time not yet consumed by a tick.
func (t *Throttle) Pending() time.Duration { return t.acc }

// Reset clears the accumulator.
func (t *Throttle) Reset() { t.acc = 0 }
