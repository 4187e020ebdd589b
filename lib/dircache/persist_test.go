// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package dircache

import (
	"testing"
	"time"
)

func TestPersistLoadRoundtrip(t *testing.T) {
	c := New(DefaultConfig())
	c.Put(snapshotFor("/home/user", 1), time.Unix(111, 0))
	c.Put(snapshotFor("/home/user/docs", 1), time.Unix(222, 0))

	blob, err := c.Persist()
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}

	loaded, err := Load(blob, DefaultConfig())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Len() != 2 {
		t.Fatalf("loaded.Len() = %d, want 2", loaded.Len())
	}
	snap, _, ok := loaded.Lookup("/home/user/docs", nil)
	if !ok {
		t.Fatal("expected /home/user/docs to survive the roundtrip")
	}
	if snap.Generation != 1 {
		t.Errorf("Generation = %d, want 1", snap.Generation)
	}
}

func TestLoadRejectsCorruptChecksum(t *testing.T) {
	c := New(DefaultConfig())
	c.Put(snapshotFor("/a", 1), time.Unix(1, 0))

	blob, err := c.Persist()
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	blob[len(blob)-1] ^= 0xFF // corrupt the checksum trailer

	if _, err := Load(blob, DefaultConfig()); err == nil {
		t.Fatal("expected Load to reject a blob with a corrupted checksum")
	}
}

func TestLoadRejectsTruncatedBlob(t *testing.T) {
	if _, err := Load([]byte{1, 2, 3}, DefaultConfig()); err == nil {
		t.Fatal("expected Load to reject a too-short blob")
	}
}

func TestPersistEmptyCache(t *testing.T) {
	c := New(DefaultConfig())
	blob, err := c.Persist()
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	loaded, err := Load(blob, DefaultConfig())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Len() != 0 {
		t.Errorf("Len() = %d, want 0", loaded.Len())
	}
}

func TestPersistPreservesEntryOrder(t *testing.T) {
	c := New(DefaultConfig())
	paths := []string{"/a", "/b", "/c"}
	for _, p := range paths {
		c.Put(snapshotFor(p, 1), time.Unix(1, 0))
	}

	blob, err := c.Persist()
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	loaded, err := Load(blob, DefaultConfig())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := loaded.Snapshots()
	if len(got) != len(paths) {
		t.Fatalf("got %d snapshots, want %d", len(got), len(paths))
	}
	// most-recently-used first: /c, /b, /a
	want := []string{"/c", "/b", "/a"}
	for i, snap := range got {
		if snap.Path != want[i] {
			t.Errorf("position %d: got %s, want %s", i, snap.Path, want[i])
		}
	}
}
