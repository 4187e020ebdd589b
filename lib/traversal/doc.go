// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package traversal walks a directory and emits fsmodel.FileEntry
// values on a channel, either non-recursively for a single viewport
// or recursively while building a whole-tree index. Stat calls for
// entries returned by the directory read fan out across a worker
// pool; cancellation is generation-based rather than context-only, so
// a traversal for a generation the model has already abandoned can be
// told apart from one actively feeding the viewport.
package traversal
