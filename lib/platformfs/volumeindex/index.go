// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package volumeindex

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"
)

// FileID is a platform file identifier (NTFS file reference number,
// for example) stable across renames and moves within the volume.
type FileID uint64

// RootID is the identifier ReconstructPath stops at: the volume root
// has no parent record.
const RootID FileID = 0

// Record is one file or directory's current position and metadata in
// the index.
type Record struct {
	ParentID FileID
	Name     string
	IsDir    bool
	Size     uint64
	Modified time.Time
}

// JournalKind discriminates JournalRecord's variants.
type JournalKind int

const (
	JournalCreate JournalKind = iota
	JournalDelete
	JournalRename
	JournalModify
)

// JournalRecord is one change-journal entry. ID identifies the
// affected file; Record carries its new state for
// Create/Rename/Modify and is ignored for Delete.
type JournalRecord struct {
	Kind   JournalKind
	ID     FileID
	Record Record
}

// Index maps file identifiers to parent/name/metadata records and
// reconstructs absolute paths by walking parent links. Safe for
// concurrent use.
type Index struct {
	mu      sync.RWMutex
	records map[FileID]Record
}

// New returns an empty Index.
func New() *Index {
	return &Index{records: make(map[FileID]Record)}
}

// Apply consumes one journal record, mutating the index atomically.
// After applying a Create for id, Lookup(id) succeeds; after a
// Delete, it does not. Rename and Modify replace the existing record
// outright.
func (idx *Index) Apply(record JournalRecord) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	switch record.Kind {
	case JournalDelete:
		delete(idx.records, record.ID)
	case JournalCreate, JournalRename, JournalModify:
		idx.records[record.ID] = record.Record
	}
}

// Lookup returns the record for id, if present.
func (idx *Index) Lookup(id FileID) (Record, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	record, ok := idx.records[id]
	return record, ok
}

// Len reports how many records the index currently holds.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// ReconstructPath walks id's ParentID chain to the root and returns
// the absolute path. It errors — never panics — on an unknown
// identifier, a dangling parent reference, or a parent cycle.
func (idx *Index) ReconstructPath(id FileID) (string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var segments []string
	visited := make(map[FileID]bool)
	current := id

	for current != RootID {
		if visited[current] {
			return "", fmt.Errorf("volumeindex: cycle detected reconstructing path for id %d", id)
		}
		visited[current] = true

		record, ok := idx.records[current]
		if !ok {
			return "", fmt.Errorf("volumeindex: unknown file id %d reconstructing path for id %d", current, id)
		}
		segments = append(segments, record.Name)
		current = record.ParentID
	}

	if len(segments) == 0 {
		return string(filepath.Separator), nil
	}

	// segments were collected leaf-to-root; reverse them.
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return filepath.Join(string(filepath.Separator), filepath.Join(segments...)), nil
}
