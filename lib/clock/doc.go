// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction. arbor's
// batcher (16ms flush interval), platform watcher (50ms debounce
// window), and directory cache (mtime freshness check) all take a
// Clock instead of calling the time package directly, so their
// timing-dependent behavior is exercisable from tests without racing
// the wall clock.
//
// # Wiring pattern
//
// Pass a Clock to every function or config that uses time:
//
//	type Config struct {
//	    // ...
//	    Clock clock.Clock
//	}
//
// Production code defaults to Real():
//
//	go batch.Run(clock.Real(), generation, batch.DefaultConfig(), input, output)
//
// Tests drive time explicitly with Fake():
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go batch.Run(c, generation, batch.DefaultConfig(), input, output)
//	input <- entry                   // buffer one entry
//	c.WaitForPending(1)              // block until Run registers its flush timer
//	c.Advance(16 * time.Millisecond) // fire it deterministically
//
// WaitForPending exists because a goroutine registering a timer and a
// test calling Advance otherwise race: Advance must happen strictly
// after registration for the fake to behave predictably.
package clock
