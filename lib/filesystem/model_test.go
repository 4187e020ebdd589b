// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package filesystem

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arborfs/arbor/lib/clock"
	"github.com/arborfs/arbor/lib/dircache"
	"github.com/arborfs/arbor/lib/fsmodel"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Watch = false
	cfg.Cache = dircache.Config{Capacity: 8, FreshnessWindow: 0}
	return cfg
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}
	}
}

func waitUntil(t *testing.T, timeout time.Duration, predicate func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if predicate() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", timeout)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestModelLoadPathPublishesLoadedState(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt", "b.txt")

	m := New(testConfig())
	defer m.Close()

	m.LoadPath(dir)
	waitUntil(t, time.Second, func() bool { return m.State().Kind == fsmodel.LoadLoaded })

	if got := len(m.Entries()); got != 2 {
		t.Errorf("expected 2 entries, got %d", got)
	}
	if m.CurrentPath() != filepath.Clean(dir) {
		t.Errorf("expected current path %q, got %q", dir, m.CurrentPath())
	}
}

func TestModelNavigateUpGoesToParent(t *testing.T) {
	parent := t.TempDir()
	child := filepath.Join(parent, "child")
	if err := os.Mkdir(child, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	writeFiles(t, parent, "sibling.txt")

	m := New(testConfig())
	defer m.Close()

	m.LoadPath(child)
	waitUntil(t, time.Second, func() bool { return m.State().Kind == fsmodel.LoadLoaded })

	m.NavigateUp()
	waitUntil(t, time.Second, func() bool {
		return m.State().Kind == fsmodel.LoadLoaded && m.CurrentPath() == filepath.Clean(parent)
	})
}

func TestModelCachedRevisitPublishesCachedState(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	writeFiles(t, dirA, "a.txt")
	writeFiles(t, dirB, "b.txt")

	m := New(testConfig())
	defer m.Close()

	m.LoadPath(dirA)
	waitUntil(t, time.Second, func() bool { return m.State().Kind == fsmodel.LoadLoaded })

	m.LoadPath(dirB)
	waitUntil(t, time.Second, func() bool { return m.State().Kind == fsmodel.LoadLoaded })

	if !m.ContainsPath(dirA) {
		t.Fatal("expected dirA to remain cached after navigating away")
	}

	m.LoadPath(dirA)
	waitUntil(t, time.Second, func() bool {
		snap := m.Snapshot()
		return snap.Path == filepath.Clean(dirA) &&
			(snap.State.Kind == fsmodel.LoadCached || snap.State.Kind == fsmodel.LoadLoaded)
	})
}

func TestModelRapidNavigationDiscardsStaleGeneration(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	// Populate dirA with enough entries that its traversal is still
	// in flight when dirB's navigation lands.
	for i := 0; i < 300; i++ {
		name := filepath.Join(dirA, "f"+itoa(i)+".txt")
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	writeFiles(t, dirB, "only.txt")

	cfg := testConfig()
	cfg.TraversalWorkers = 1
	m := New(cfg)
	defer m.Close()

	m.LoadPath(dirA)
	m.LoadPath(dirB)

	waitUntil(t, time.Second, func() bool {
		return m.State().Kind == fsmodel.LoadLoaded && m.CurrentPath() == filepath.Clean(dirB)
	})

	snap := m.Snapshot()
	for _, e := range snap.Entries {
		if filepath.Dir(e.Path) != filepath.Clean(dirB) {
			t.Fatalf("found entry %q leaked from a stale generation", e.Path)
		}
	}
	if len(snap.Entries) != 1 {
		t.Errorf("expected exactly dirB's single entry, got %d", len(snap.Entries))
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestModelFreshCacheHitSkipsRevalidation(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt")

	cfg := testConfig()
	cfg.Cache.FreshnessWindow = time.Hour
	m := New(cfg)
	defer m.Close()

	m.LoadPath(dir)
	waitUntil(t, time.Second, func() bool { return m.State().Kind == fsmodel.LoadLoaded })

	m.LoadPath(t.TempDir())
	waitUntil(t, time.Second, func() bool { return m.State().Kind == fsmodel.LoadLoaded })

	m.LoadPath(dir)
	waitUntil(t, time.Second, func() bool {
		snap := m.Snapshot()
		return snap.Path == filepath.Clean(dir) && snap.State.Kind == fsmodel.LoadCached
	})

	// A fresh hit schedules no background revalidation at all, so the
	// state should never transition away from Cached on its own.
	time.Sleep(50 * time.Millisecond)
	if got := m.State().Kind; got != fsmodel.LoadCached {
		t.Errorf("expected state to remain Cached for a fresh hit, got %v", got)
	}
}

func TestModelStaleCacheHitKeepsEntriesDuringRevalidation(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt", "b.txt")

	fake := clock.Fake(time.Now())
	cfg := testConfig()
	cfg.Clock = fake
	cfg.Cache.FreshnessWindow = time.Second
	m := New(cfg)
	defer m.Close()

	m.LoadPath(dir)
	waitUntil(t, time.Second, func() bool { return m.State().Kind == fsmodel.LoadLoaded })

	m.LoadPath(t.TempDir())
	waitUntil(t, time.Second, func() bool { return m.State().Kind == fsmodel.LoadLoaded })

	fake.Advance(2 * time.Second)

	// Touch dir's mtime so the next revisit is reported stale.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(dir, future, future); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	m.LoadPath(dir)
	waitUntil(t, time.Second, func() bool {
		snap := m.Snapshot()
		return snap.Path == filepath.Clean(dir) && len(snap.Entries) == 2
	})

	// The cached entries must stay visible for the whole revalidation;
	// they must never regress to empty or partial while it runs.
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if len(m.Entries()) < 2 {
			t.Fatal("entries regressed below the cached count during revalidation")
		}
		time.Sleep(time.Millisecond)
	}

	waitUntil(t, time.Second, func() bool { return m.State().Kind == fsmodel.LoadLoaded })
	if got := len(m.Entries()); got != 2 {
		t.Errorf("expected revalidation to confirm 2 entries, got %d", got)
	}
}

func TestModelRefreshInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt")

	m := New(testConfig())
	defer m.Close()

	m.LoadPath(dir)
	waitUntil(t, time.Second, func() bool { return m.State().Kind == fsmodel.LoadLoaded })

	writeFiles(t, dir, "b.txt")
	m.Refresh()
	waitUntil(t, time.Second, func() bool {
		return m.State().Kind == fsmodel.LoadLoaded && len(m.Entries()) == 2
	})
}

func TestModelSubscribeNotifiesOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt")

	m := New(testConfig())
	defer m.Close()

	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()

	m.LoadPath(dir)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a notification after LoadPath")
	}
}

func TestModelSearchPatternFiltersEntries(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "report.pdf", "readme.md", "image.png")

	m := New(testConfig())
	defer m.Close()

	m.LoadPath(dir)
	waitUntil(t, time.Second, func() bool { return m.State().Kind == fsmodel.LoadLoaded })

	m.SetSearchPattern("rep")
	waitUntil(t, time.Second, func() bool {
		snap := m.SearchSnapshot()
		return snap.Pattern == "rep" && len(snap.Matches) >= 1
	})

	snap := m.SearchSnapshot()
	for _, match := range snap.Matches {
		entry := m.Entries()[match.EntryIndex]
		if entry.Name != "report.pdf" {
			t.Errorf("unexpected match for pattern %q: %s", snap.Pattern, entry.Name)
		}
	}
}

func TestModelContainsPathReflectsCacheState(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt")

	m := New(testConfig())
	defer m.Close()

	if m.ContainsPath(dir) {
		t.Fatal("expected dir to be uncached before any load")
	}

	m.LoadPath(dir)
	waitUntil(t, time.Second, func() bool { return m.State().Kind == fsmodel.LoadLoaded })

	if !m.ContainsPath(dir) {
		t.Fatal("expected dir to be cached after a successful load")
	}
}

func TestModelLoadPathReportsErrorForMissingDirectory(t *testing.T) {
	m := New(testConfig())
	defer m.Close()

	m.LoadPath(filepath.Join(t.TempDir(), "does-not-exist"))
	waitUntil(t, time.Second, func() bool { return m.State().Kind == fsmodel.LoadError })
}

func TestModelWarmCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt", "b.txt")
	blobPath := filepath.Join(t.TempDir(), "warm.blob")

	first := testConfig()
	first.WarmCachePath = blobPath
	m1 := New(first)
	m1.LoadPath(dir)
	waitUntil(t, time.Second, func() bool { return m1.State().Kind == fsmodel.LoadLoaded })
	if err := m1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(blobPath); err != nil {
		t.Fatalf("expected warm cache blob at %s: %v", blobPath, err)
	}

	second := testConfig()
	second.WarmCachePath = blobPath
	m2 := New(second)
	defer m2.Close()

	if !m2.ContainsPath(dir) {
		t.Fatal("expected dir to be pre-populated from the warm cache blob")
	}

	m2.LoadPath(dir)
	waitUntil(t, time.Second, func() bool {
		snap := m2.Snapshot()
		return snap.State.Kind == fsmodel.LoadCached || snap.State.Kind == fsmodel.LoadLoaded
	})
	if got := len(m2.Entries()); got != 2 {
		t.Errorf("expected 2 entries from warm start, got %d", got)
	}
}

func TestModelWatchPropagatesExternalCreate(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt", "b.txt", "c.txt")

	cfg := testConfig()
	cfg.Watch = true
	cfg.EventPollInterval = 10 * time.Millisecond

	m := New(cfg)
	defer m.Close()

	m.LoadPath(dir)
	waitUntil(t, time.Second, func() bool {
		return m.State().Kind == fsmodel.LoadLoaded && len(m.Entries()) == 3
	})

	generationBefore := make(chan int64, 1)
	m.cmds <- func() { generationBefore <- m.generation }
	before := <-generationBefore

	writeFiles(t, dir, "d.txt")

	waitUntil(t, 2*time.Second, func() bool { return len(m.Entries()) == 4 })

	names := make(map[string]bool)
	for _, e := range m.Entries() {
		names[e.Name] = true
	}
	if !names["d.txt"] {
		t.Fatalf("expected d.txt to appear in the live listing, got %v", names)
	}

	generationAfter := make(chan int64, 1)
	m.cmds <- func() { generationAfter <- m.generation }
	after := <-generationAfter
	if after != before {
		t.Errorf("expected a watcher-driven update to leave generation unchanged, got %d want %d", after, before)
	}
}

func TestModelIndexSubtreeFeedsNestedEntries(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "top.txt")
	nested := filepath.Join(root, "nested")
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	writeFiles(t, nested, "deep_report.txt")

	m := New(testConfig())
	defer m.Close()

	done := m.IndexSubtree(root)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("IndexSubtree did not complete in time")
	}

	m.SetSearchPattern("report")
	waitUntil(t, time.Second, func() bool {
		snap := m.SearchSnapshot()
		return snap.Pattern == "report" && len(snap.Matches) == 1
	})
}

func TestModelIndexSubtreeAbandonedByLoadPath(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt")
	other := t.TempDir()
	writeFiles(t, other, "b.txt")

	m := New(testConfig())
	defer m.Close()

	m.IndexSubtree(root)
	m.LoadPath(other)
	waitUntil(t, time.Second, func() bool { return m.State().Kind == fsmodel.LoadLoaded })

	snap := m.SearchSnapshot()
	for _, match := range snap.Matches {
		if match.EntryIndex >= len(m.Entries()) {
			continue
		}
		if m.Entries()[match.EntryIndex].Name == "a.txt" {
			t.Fatal("expected the abandoned IndexSubtree build not to pollute the viewport's search index with a.txt")
		}
	}
}

func TestModelClose(t *testing.T) {
	m := New(testConfig())
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
