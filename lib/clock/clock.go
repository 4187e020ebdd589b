// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source every timing-sensitive component takes as
// a constructor argument instead of calling the time package
// directly. Production code uses Real(); tests use Fake().
type Clock interface {
	// Now reports the current time.
	Now() time.Time

	// After returns a channel that receives once, after duration d
	// has elapsed. A non-positive d fires immediately.
	After(d time.Duration) <-chan time.Time

	// AfterFunc schedules f to run after duration d and returns a
	// Timer that can cancel the pending call. The returned Timer's C
	// field is always nil, matching time.AfterFunc.
	AfterFunc(d time.Duration, f func()) *Timer

	// NewTicker returns a Ticker whose C channel receives at a fixed
	// interval d. Panics if d is not positive.
	NewTicker(d time.Duration) *Ticker

	// Sleep blocks the calling goroutine for at least duration d.
	Sleep(d time.Duration)
}

// Ticker delivers periodic ticks on C until Stop is called. C is
// buffered with capacity 1; a slow consumer drops ticks rather than
// queuing them, matching time.Ticker.
type Ticker struct {
	C <-chan time.Time

	stopFunc  func()
	resetFunc func(time.Duration)
}

// Stop halts the ticker. C receives no further ticks.
func (t *Ticker) Stop() { t.stopFunc() }

// Reset restarts the tick cycle at the new interval d.
func (t *Ticker) Reset(d time.Duration) { t.resetFunc(d) }

// Timer represents a single scheduled callback or channel delivery.
// C is nil for timers created by AfterFunc.
type Timer struct {
	C <-chan time.Time

	stopFunc  func() bool
	resetFunc func(time.Duration) bool
}

// Stop cancels the timer. It reports whether the cancellation
// happened before the timer fired.
func (t *Timer) Stop() bool { return t.stopFunc() }

// Reset reschedules the timer to fire after duration d, reporting
// whether the timer was still pending beforehand.
func (t *Timer) Reset(d time.Duration) bool { return t.resetFunc(d) }
