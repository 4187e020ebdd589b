// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package dircache is a bounded, path-keyed LRU of recently loaded
// directory snapshots. A cache hit lets navigation back to a visited
// directory render instantly; when Lookup reports the hit stale, the
// caller runs a fresh traversal in the background to confirm or
// correct it. Staleness is detected lazily
// by comparing the directory's mtime at cache time against a fresh
// stat, not by a background watcher, and a short freshness window
// skips that stat entirely for snapshots too young to bother
// re-checking.
package dircache
