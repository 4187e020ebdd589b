// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock pinned at initial. Time never moves on its
// own; every timer, ticker, and sleep registered against it blocks
// until a test calls Advance past its deadline.
//
// FakeClock is safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	fc := &FakeClock{now: initial}
	fc.cond = sync.NewCond(&fc.mu)
	return fc
}

// FakeClock is a deterministic Clock for tests.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*fakeEntry
	cond    *sync.Cond
}

// fakeEntry is one registered timer, ticker, or sleep.
type fakeEntry struct {
	fireAt time.Time

	// ch receives the fire time for After/Sleep/Ticker entries.
	ch chan time.Time

	// fn runs synchronously during Advance for AfterFunc entries.
	fn func()

	// period is non-zero for tickers; the entry reschedules itself
	// by period after each firing instead of being removed.
	period time.Duration

	canceled bool
	done     bool
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.register(&fakeEntry{fireAt: c.now.Add(d), ch: ch})
	return ch
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{
			stopFunc:  func() bool { return false },
			resetFunc: func(time.Duration) bool { return false },
		}
	}

	c.mu.Lock()
	entry := &fakeEntry{fireAt: c.now.Add(d), fn: f}
	c.register(entry)
	c.mu.Unlock()

	return &Timer{
		stopFunc: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			if entry.canceled || entry.done {
				return false
			}
			entry.canceled = true
			return true
		},
		resetFunc: func(d time.Duration) bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			wasPending := !entry.canceled && !entry.done
			entry.canceled = false
			entry.done = false
			entry.fireAt = c.now.Add(d)
			if !wasPending {
				c.register(entry)
			}
			return wasPending
		},
	}
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: NewTicker requires a positive interval")
	}

	ch := make(chan time.Time, 1)
	c.mu.Lock()
	entry := &fakeEntry{fireAt: c.now.Add(d), ch: ch, period: d}
	c.register(entry)
	c.mu.Unlock()

	return &Ticker{
		C: ch,
		stopFunc: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			entry.canceled = true
		},
		resetFunc: func(d time.Duration) {
			c.mu.Lock()
			defer c.mu.Unlock()
			entry.period = d
			entry.fireAt = c.now.Add(d)
			entry.canceled = false
		},
	}
}

func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-c.After(d)
}

// register appends entry to the pending list and wakes any goroutine
// blocked in WaitForPending. Must be called with c.mu held.
func (c *FakeClock) register(entry *fakeEntry) {
	c.pending = append(c.pending, entry)
	c.cond.Broadcast()
}

// Advance moves the clock forward by d, firing every pending entry
// whose deadline now falls at or before the new time. Entries fire in
// deadline order. AfterFunc callbacks run synchronously on the
// calling goroutine; channel sends are non-blocking, matching
// time.Ticker's drop-if-full behavior. A ticker whose interval is
// crossed more than once during the advance fires once per interval.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		due := c.sweep(target)
		if len(due) == 0 {
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].fireAt.Before(due[j].fireAt) })
		for _, entry := range due {
			switch {
			case entry.fn != nil:
				entry.fn()
			case entry.ch != nil:
				select {
				case entry.ch <- target:
				default:
				}
			}
		}
	}
}

// sweep removes expired, non-canceled entries from the pending list
// (rescheduling tickers instead of removing them) and returns the
// ones that fired.
func (c *FakeClock) sweep(target time.Time) []*fakeEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due, kept []*fakeEntry
	for _, entry := range c.pending {
		if entry.canceled {
			continue
		}
		if entry.fireAt.After(target) {
			kept = append(kept, entry)
			continue
		}
		due = append(due, entry)
	}
	for _, entry := range due {
		if entry.period > 0 {
			entry.fireAt = entry.fireAt.Add(entry.period)
			kept = append(kept, entry)
		} else {
			entry.done = true
		}
	}
	c.pending = kept
	return due
}

// WaitForPending blocks until at least n timers, tickers, or sleeps
// are registered and not yet fired. Use this to avoid racing a
// goroutine that is about to call After/Sleep/NewTicker against a
// test's Advance call.
func (c *FakeClock) WaitForPending(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.activeLocked() < n {
		c.cond.Wait()
	}
}

// WaitForTimers is an alias for WaitForPending.
func (c *FakeClock) WaitForTimers(n int) {
	c.WaitForPending(n)
}

// PendingCount reports the number of active (not canceled, not fired)
// entries.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked()
}

func (c *FakeClock) activeLocked() int {
	n := 0
	for _, entry := range c.pending {
		if !entry.canceled {
			n++
		}
	}
	return n
}
