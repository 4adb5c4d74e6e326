// Package clock provides the time source the state buffer reads "now" from.
//
// The buffer never calls time.Now directly. Production code passes System;
// Offset layers simulated elapsed time on top of another clock so a run can
// age its buffer without sleeping.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock (with its monotonic reading).
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// Func adapts an ordinary function to Clock.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}

// Offset is a Clock that runs ahead of a base clock by an adjustable amount.
//
// Thread-safety: Offset is safe for concurrent use.
type Offset struct {
	base Clock

	mu     sync.Mutex
	offset time.Duration
}

// NewOffset wraps base with a zero offset. A nil base means System.
func NewOffset(base Clock) *Offset {
	if base == nil {
		base = System{}
	}
	return &Offset{base: base}
}

// Now returns base.Now() plus the accumulated offset.
func (o *Offset) Now() time.Time {
	o.mu.Lock()
	d := o.offset
	o.mu.Unlock()
	return o.base.Now().Add(d)
}

// Advance moves the clock forward by d. Negative durations are ignored so
// the clock never runs backwards relative to its base.
func (o *Offset) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.offset += d
}

// Elapsed returns the total simulated time added so far.
func (o *Offset) Elapsed() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.offset
}
