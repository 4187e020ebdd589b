// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package dircache

import (
	"container/list"
	"path/filepath"
	"sync"
	"time"

	"github.com/arborfs/arbor/lib/clock"
	"github.com/arborfs/arbor/lib/fsmodel"
)

// DefaultCapacity is the number of directories the cache retains.
const DefaultCapacity = 64

// DefaultFreshnessWindow is how long a cached entry is trusted
// without a confirming stat call.
const DefaultFreshnessWindow = 2 * time.Second

// Config controls a Cache's capacity and freshness policy.
type Config struct {
	Capacity        int
	FreshnessWindow time.Duration
	Clock           clock.Clock
}

// DefaultConfig returns spec's default cache policy.
func DefaultConfig() Config {
	return Config{
		Capacity:        DefaultCapacity,
		FreshnessWindow: DefaultFreshnessWindow,
		Clock:           clock.Real(),
	}
}

// entry is the cache's stored value plus the bookkeeping needed to
// decide staleness without a background watcher.
type entry struct {
	snapshot    fsmodel.DirectorySnapshot
	sourceMtime time.Time
	cachedAt    time.Time
}

// Cache is a bounded LRU of recently-loaded directory snapshots,
// keyed by cleaned absolute path. It is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	window   time.Duration
	clk      clock.Clock
	ll       *list.List
	index    map[string]*list.Element
}

type listValue struct {
	key   string
	entry entry
}

// New creates an empty Cache per cfg. A zero Config field falls back
// to its default.
func New(cfg Config) *Cache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = DefaultFreshnessWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	return &Cache{
		capacity: cfg.Capacity,
		window:   cfg.FreshnessWindow,
		clk:      cfg.Clock,
		ll:       list.New(),
		index:    make(map[string]*list.Element),
	}
}

func canonical(path string) string {
	return filepath.Clean(path)
}

// Put records snapshot as the cached state of its Path, evicting the
// least-recently-used entry if the cache is at capacity.
func (c *Cache) Put(snapshot fsmodel.DirectorySnapshot, sourceMtime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := canonical(snapshot.Path)
	now := c.clk.Now()
	if el, ok := c.index[key]; ok {
		el.Value.(*listValue).entry = entry{snapshot: snapshot, sourceMtime: sourceMtime, cachedAt: now}
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&listValue{key: key, entry: entry{snapshot: snapshot, sourceMtime: sourceMtime, cachedAt: now}})
	c.index[key] = el

	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		delete(c.index, oldest.Value.(*listValue).key)
	}
}

// Lookup returns the cached snapshot for path, if any, moving it to
// the front of the LRU. statMtime, if non-nil, is called to fetch the
// directory's current mtime for a staleness check — but only when the
// cached entry is older than the freshness window; callers can pass
// nil to skip the staleness check entirely (e.g. when warm-starting
// from a persisted blob with no live filesystem to compare against).
//
// The returned bool reports whether path was found at all; stale
// reports whether the cached content should be treated as unconfirmed
// and refreshed in the background.
func (c *Cache) Lookup(path string, statMtime func(string) (time.Time, error)) (snapshot fsmodel.DirectorySnapshot, stale bool, ok bool) {
	c.mu.Lock()
	key := canonical(path)
	el, found := c.index[key]
	if !found {
		c.mu.Unlock()
		return fsmodel.DirectorySnapshot{}, false, false
	}
	c.ll.MoveToFront(el)
	e := el.Value.(*listValue).entry
	c.mu.Unlock()

	if statMtime == nil || c.clk.Now().Sub(e.cachedAt) < c.window {
		return e.snapshot, false, true
	}

	currentMtime, err := statMtime(path)
	if err != nil {
		return e.snapshot, true, true
	}
	if !currentMtime.Equal(e.sourceMtime) {
		return e.snapshot, true, true
	}
	return e.snapshot, false, true
}

// Contains reports whether path is cached, without affecting LRU
// order or performing a staleness check.
func (c *Cache) Contains(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.index[canonical(path)]
	return ok
}

// Len returns the number of cached directories.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Clear removes all cached directories.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.index = make(map[string]*list.Element)
}

// Remove evicts path from the cache, if present.
func (c *Cache) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := canonical(path)
	if el, ok := c.index[key]; ok {
		c.ll.Remove(el)
		delete(c.index, key)
	}
}

// Snapshots returns every cached directory's snapshot, most-recently
// used first. Used by the warm-start persistence path.
func (c *Cache) Snapshots() []fsmodel.DirectorySnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]fsmodel.DirectorySnapshot, 0, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*listValue).entry.snapshot)
	}
	return out
}
