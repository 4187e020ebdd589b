// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package searchindex is an incremental fuzzy matcher over file
// names. A single worker goroutine owns the match state (the item set
// and the fzf scratch slab, neither of which is safe for concurrent
// use); SetPattern and Inject send it commands, and Snapshot reads a
// published, immutable result through an atomic pointer with no
// locking on the read path.
package searchindex
