// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"time"

	"github.com/arborfs/arbor/lib/clock"
	"github.com/arborfs/arbor/lib/fsmodel"
)

// DefaultSize is the entry-count flush threshold.
const DefaultSize = 100

// DefaultFlushInterval is the time-based flush threshold.
const DefaultFlushInterval = 16 * time.Millisecond

// Config controls the Batcher's flush policy.
type Config struct {
	Size          int
	FlushInterval time.Duration
}

// DefaultConfig returns the spec's default batching policy.
func DefaultConfig() Config {
	return Config{Size: DefaultSize, FlushInterval: DefaultFlushInterval}
}

// Batch is one group of entries delivered to the model, tagged with
// the generation of the traversal that produced it. Done is set on
// exactly one terminal, possibly-empty batch per traversal, sent
// immediately before the output channel is closed — this lets a
// consumer distinguish "traversal finished cleanly" from "producer
// channel closed early" without racing the channel close.
type Batch struct {
	Generation int64
	Entries    []fsmodel.FileEntry
	Done       bool
}

// Run reads entries from input until it closes, grouping them into
// batches and sending each one on output as soon as it reaches Size
// entries or FlushInterval has elapsed since the batch's first entry
// — whichever happens first. When input closes, Run flushes any
// partial batch, sends a terminal Done batch, closes output, and
// returns the total number of entries it processed.
//
// Run blocks until input closes; callers run it in its own goroutine.
func Run(clk clock.Clock, generation int64, cfg Config, input <-chan fsmodel.FileEntry, output chan<- Batch) int {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	defer close(output)

	current := make([]fsmodel.FileEntry, 0, cfg.Size)
	total := 0

	// timer is armed when the first entry of a batch is buffered and is
	// nil (never ready) while the buffer is empty.
	var timer <-chan time.Time

	flush := func() {
		timer = nil
		if len(current) == 0 {
			return
		}
		output <- Batch{Generation: generation, Entries: current}
		current = make([]fsmodel.FileEntry, 0, cfg.Size)
	}

	for {
		select {
		case entry, ok := <-input:
			if !ok {
				flush()
				output <- Batch{Generation: generation, Done: true}
				return total
			}
			current = append(current, entry)
			total++
			if len(current) >= cfg.Size {
				flush()
			} else if len(current) == 1 {
				timer = clk.After(cfg.FlushInterval)
			}

		case <-timer:
			flush()
		}
	}
}

// MaxBatches returns the upper bound on the number of batches a
// traversal of itemCount entries can produce under cfg, given that
// the traversal's wall-clock duration allows at most timeFlushes
// time-triggered flushes in addition to size-triggered ones. This is
// the bound testable property 3 checks against.
func MaxBatches(itemCount, size int, timeFlushes int) int {
	if size <= 0 {
		return 0
	}
	sizeFlushes := (itemCount + size - 1) / size
	return sizeFlushes + timeFlushes + 1
}
