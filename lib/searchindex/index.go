// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package searchindex

import (
	"sort"
	"sync/atomic"

	"github.com/arborfs/arbor/lib/fsmodel"
	"github.com/arborfs/arbor/lib/fuzzy"
)

// MaxMatches bounds the number of scored hits a snapshot carries, the
// way the original matcher capped its result window to keep the
// viewport's render cost independent of directory size.
const MaxMatches = 1000

type command struct {
	kind    commandKind
	entry   fsmodel.FileEntry
	pattern string
	done    chan struct{}
}

type commandKind int

const (
	cmdInject commandKind = iota
	cmdSetPattern
	cmdClear
	cmdStop
)

// Index is a fuzzy matcher over a growing set of fsmodel.FileEntry
// names, re-scored every time the pattern or item set changes.
type Index struct {
	commands chan command
	current  atomic.Pointer[fsmodel.MatcherSnapshot]
	done     chan struct{}
}

// New starts an Index's worker goroutine and returns immediately. The
// returned Index is ready to accept Inject/SetPattern/Clear calls.
func New() *Index {
	idx := &Index{
		commands: make(chan command, 256),
		done:     make(chan struct{}),
	}
	empty := fsmodel.MatcherSnapshot{}
	idx.current.Store(&empty)
	go idx.run()
	return idx
}

// Inject adds entry to the index. Safe to call concurrently with
// SetPattern; the worker serializes both against the same state.
func (idx *Index) Inject(entry fsmodel.FileEntry) {
	idx.commands <- command{kind: cmdInject, entry: entry}
}

// SetPattern replaces the active search pattern and re-scores every
// indexed entry against it. An empty pattern is valid: every entry is
// returned with a uniform score and no match positions.
func (idx *Index) SetPattern(pattern string) {
	idx.commands <- command{kind: cmdSetPattern, pattern: pattern}
}

// Clear empties the index and resets the pattern.
func (idx *Index) Clear() {
	idx.commands <- command{kind: cmdClear}
}

// Snapshot returns the most recently published match results. It
// never blocks on the worker goroutine.
func (idx *Index) Snapshot() fsmodel.MatcherSnapshot {
	return *idx.current.Load()
}

// Close stops the worker goroutine. After Close, further Inject,
// SetPattern or Clear calls are never applied, and they block once
// the command buffer is full; callers must not use the Index again.
func (idx *Index) Close() {
	idx.commands <- command{kind: cmdStop}
	<-idx.done
}

func (idx *Index) run() {
	var items []fsmodel.FileEntry
	var pattern string
	slab := fuzzy.NewSlab()

	publish := func() {
		idx.current.Store(buildSnapshot(items, pattern, slab))
	}
	publish()

	for cmd := range idx.commands {
		switch cmd.kind {
		case cmdInject:
			items = append(items, cmd.entry)
			publish()
		case cmdSetPattern:
			pattern = cmd.pattern
			publish()
		case cmdClear:
			items = nil
			pattern = ""
			publish()
		case cmdStop:
			close(idx.done)
			return
		}
	}
}

func buildSnapshot(items []fsmodel.FileEntry, pattern string, slab *fuzzy.Slab) *fsmodel.MatcherSnapshot {
	total := len(items)

	if pattern == "" {
		matches := make([]fsmodel.MatchedItem, 0, total)
		for i := range items {
			matches = append(matches, fsmodel.MatchedItem{EntryIndex: i, Score: 1})
		}
		return &fsmodel.MatcherSnapshot{Matches: matches, Pattern: pattern, TotalItems: total}
	}

	patternRunes := []rune(pattern)
	var matches []fsmodel.MatchedItem
	for i, entry := range items {
		result := fuzzy.Match(entry.Name, patternRunes, slab)
		if result.Score <= 0 {
			continue
		}
		matches = append(matches, fsmodel.MatchedItem{
			EntryIndex: i,
			Score:      result.Score,
			Positions:  result.Positions,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > MaxMatches {
		matches = matches[:MaxMatches]
	}

	return &fsmodel.MatcherSnapshot{Matches: matches, Pattern: pattern, TotalItems: total}
}
