// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package volumeindex

import (
	"testing"
	"time"
)

func TestApplyCreateThenLookup(t *testing.T) {
	idx := New()
	idx.Apply(JournalRecord{Kind: JournalCreate, ID: 1, Record: Record{ParentID: RootID, Name: "docs", IsDir: true}})

	record, ok := idx.Lookup(1)
	if !ok {
		t.Fatal("expected id 1 to be present after create")
	}
	if record.Name != "docs" {
		t.Errorf("expected name 'docs', got %q", record.Name)
	}
}

func TestApplyDeleteRemovesEntry(t *testing.T) {
	idx := New()
	idx.Apply(JournalRecord{Kind: JournalCreate, ID: 1, Record: Record{ParentID: RootID, Name: "docs", IsDir: true}})
	idx.Apply(JournalRecord{Kind: JournalDelete, ID: 1})

	if _, ok := idx.Lookup(1); ok {
		t.Fatal("expected id 1 to be absent after delete")
	}
}

func TestReconstructPathWalksToRoot(t *testing.T) {
	idx := New()
	idx.Apply(JournalRecord{Kind: JournalCreate, ID: 1, Record: Record{ParentID: RootID, Name: "docs", IsDir: true}})
	idx.Apply(JournalRecord{Kind: JournalCreate, ID: 2, Record: Record{ParentID: 1, Name: "reports", IsDir: true}})
	idx.Apply(JournalRecord{Kind: JournalCreate, ID: 3, Record: Record{ParentID: 2, Name: "q3.pdf"}})

	path, err := idx.ReconstructPath(3)
	if err != nil {
		t.Fatalf("ReconstructPath: %v", err)
	}
	want := "/docs/reports/q3.pdf"
	if path != want {
		t.Errorf("expected %q, got %q", want, path)
	}
}

func TestReconstructPathRootIsSeparator(t *testing.T) {
	idx := New()
	idx.Apply(JournalRecord{Kind: JournalCreate, ID: 1, Record: Record{ParentID: RootID, Name: "top", IsDir: true}})

	path, err := idx.ReconstructPath(1)
	if err != nil {
		t.Fatalf("ReconstructPath: %v", err)
	}
	if path != "/top" {
		t.Errorf("expected /top, got %q", path)
	}
}

func TestReconstructPathErrorsOnUnknownID(t *testing.T) {
	idx := New()
	if _, err := idx.ReconstructPath(999); err == nil {
		t.Fatal("expected an error for an unknown file id")
	}
}

func TestReconstructPathErrorsOnDanglingParent(t *testing.T) {
	idx := New()
	idx.Apply(JournalRecord{Kind: JournalCreate, ID: 5, Record: Record{ParentID: 4, Name: "orphan.txt"}})

	if _, err := idx.ReconstructPath(5); err == nil {
		t.Fatal("expected an error for a dangling parent reference")
	}
}

func TestReconstructPathErrorsOnCycle(t *testing.T) {
	idx := New()
	idx.Apply(JournalRecord{Kind: JournalCreate, ID: 1, Record: Record{ParentID: 2, Name: "a"}})
	idx.Apply(JournalRecord{Kind: JournalCreate, ID: 2, Record: Record{ParentID: 1, Name: "b"}})

	if _, err := idx.ReconstructPath(1); err == nil {
		t.Fatal("expected an error for a parent cycle")
	}
}

func TestApplyRenameReplacesParentAndName(t *testing.T) {
	idx := New()
	idx.Apply(JournalRecord{Kind: JournalCreate, ID: 1, Record: Record{ParentID: RootID, Name: "old", IsDir: true}})
	idx.Apply(JournalRecord{Kind: JournalCreate, ID: 2, Record: Record{ParentID: RootID, Name: "newdir", IsDir: true}})
	idx.Apply(JournalRecord{Kind: JournalRename, ID: 1, Record: Record{ParentID: 2, Name: "renamed", IsDir: true}})

	path, err := idx.ReconstructPath(1)
	if err != nil {
		t.Fatalf("ReconstructPath: %v", err)
	}
	if path != "/newdir/renamed" {
		t.Errorf("expected /newdir/renamed, got %q", path)
	}
}

func TestApplyModifyUpdatesMetadata(t *testing.T) {
	idx := New()
	now := time.Now()
	idx.Apply(JournalRecord{Kind: JournalCreate, ID: 1, Record: Record{ParentID: RootID, Name: "f.txt", Size: 10}})
	idx.Apply(JournalRecord{Kind: JournalModify, ID: 1, Record: Record{ParentID: RootID, Name: "f.txt", Size: 20, Modified: now}})

	record, ok := idx.Lookup(1)
	if !ok {
		t.Fatal("expected id 1 present")
	}
	if record.Size != 20 {
		t.Errorf("expected updated size 20, got %d", record.Size)
	}
}

func TestLenTracksRecordCount(t *testing.T) {
	idx := New()
	if idx.Len() != 0 {
		t.Fatalf("expected empty index, got len %d", idx.Len())
	}
	idx.Apply(JournalRecord{Kind: JournalCreate, ID: 1, Record: Record{ParentID: RootID, Name: "a"}})
	idx.Apply(JournalRecord{Kind: JournalCreate, ID: 2, Record: Record{ParentID: RootID, Name: "b"}})
	if idx.Len() != 2 {
		t.Errorf("expected len 2, got %d", idx.Len())
	}
}

func TestFakeJournalReplayReconstructsIndex(t *testing.T) {
	journal := NewFakeJournal()
	journal.Emit(JournalRecord{Kind: JournalCreate, ID: 1, Record: Record{ParentID: RootID, Name: "vault", IsDir: true}})
	journal.Emit(JournalRecord{Kind: JournalCreate, ID: 2, Record: Record{ParentID: 1, Name: "secret.txt"}})
	journal.Emit(JournalRecord{Kind: JournalDelete, ID: 2})

	idx := New()
	journal.Replay(idx)

	if _, ok := idx.Lookup(2); ok {
		t.Fatal("expected deleted entry to be absent after replay")
	}
	path, err := idx.ReconstructPath(1)
	if err != nil {
		t.Fatalf("ReconstructPath: %v", err)
	}
	if path != "/vault" {
		t.Errorf("expected /vault, got %q", path)
	}
}
