// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package filesystem is the FileSystem Model: the single source of
// truth for the currently viewed directory and its published state
// machine. A dedicated coordination goroutine owns all mutable state
// (current path, generation, cache, active watcher) and serializes
// every mutation through an internal command channel; traversal,
// batching, and watcher workers run on their own goroutines and
// communicate back only by sending commands, never by touching model
// state directly.
//
// Every traversal carries the generation it was issued under. A
// batch, error, or completion that arrives tagged with a generation
// other than the model's current one is discarded silently — this is
// the only mechanism that keeps rapid navigation from mixing results
// across directories.
package filesystem
