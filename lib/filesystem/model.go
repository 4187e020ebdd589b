// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arborfs/arbor/lib/batch"
	"github.com/arborfs/arbor/lib/clock"
	"github.com/arborfs/arbor/lib/dircache"
	"github.com/arborfs/arbor/lib/fsmodel"
	"github.com/arborfs/arbor/lib/iconcache"
	"github.com/arborfs/arbor/lib/platformfs"
	"github.com/arborfs/arbor/lib/searchindex"
	"github.com/arborfs/arbor/lib/traversal"
)

// Config controls a Model's traversal, caching, and watch policy.
type Config struct {
	SortKey          fsmodel.SortKey
	SortOrder        fsmodel.SortOrder
	DirectoriesFirst bool
	IncludeHidden    bool
	TraversalWorkers int

	Cache dircache.Config
	Icons iconcache.Config

	// Watch enables a live platform watcher on the currently displayed
	// directory. DefaultConfig turns it on; the zero Config leaves it
	// off, so headless uses (warm-starting an index, one-shot listings)
	// built from a bare Config don't pay for a watcher goroutine.
	Watch             bool
	EventPollInterval time.Duration

	// WarmCachePath, if set, names a file that New reads a persisted
	// directory cache blob from on startup (a missing or corrupt file
	// is treated as an empty cache, never an error) and that Close
	// writes the cache's contents back to on graceful shutdown. Leave
	// empty to run with a purely in-memory cache.
	WarmCachePath string

	Clock clock.Clock
}

// DefaultConfig returns the viewport's default policy: name-ascending,
// hidden entries excluded, watching enabled.
func DefaultConfig() Config {
	return Config{
		SortKey:           fsmodel.SortByName,
		SortOrder:         fsmodel.Ascending,
		DirectoriesFirst:  true,
		Cache:             dircache.DefaultConfig(),
		Icons:             iconcache.Config{Atlas: iconcache.BuildDefaultAtlas()},
		Watch:             true,
		EventPollInterval: batch.DefaultFlushInterval,
		Clock:             clock.Real(),
	}
}

func (cfg Config) withDefaults() Config {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Cache.Clock == nil {
		cfg.Cache.Clock = cfg.Clock
	}
	if cfg.Icons.Atlas == nil {
		cfg.Icons.Atlas = iconcache.BuildDefaultAtlas()
	}
	if cfg.EventPollInterval <= 0 {
		cfg.EventPollInterval = batch.DefaultFlushInterval
	}
	return cfg
}

// Snapshot is an immutable, point-in-time view of the Model's
// currently displayed directory, safe to read without synchronization.
type Snapshot struct {
	Path    string
	Entries []fsmodel.FileEntry
	State   fsmodel.LoadState
}

// Model is the FileSystem Model: the single source of truth for the
// directory currently shown in the viewport. All mutable state is
// owned by one coordination goroutine; every other method either
// queues a command onto it or reads a lock-free published Snapshot.
type Model struct {
	cmds chan func()
	clk  clock.Clock
	cfg  Config

	cache  *dircache.Cache
	icons  *iconcache.Cache
	search *searchindex.Index

	watcher     *platformfs.Watcher
	watchedPath string

	// Owned exclusively by run's goroutine.
	path       string
	entries    []fsmodel.FileEntry
	state      fsmodel.LoadState
	generation int64

	// genAtomic mirrors generation for traversal.IsCurrent callbacks
	// invoked from worker goroutines outside run's goroutine.
	genAtomic atomic.Int64
	current   atomic.Pointer[Snapshot]

	// indexGen tags IndexSubtree builds, independent of the viewport's
	// own generation counter: a second IndexSubtree call abandons the
	// first without disturbing whatever directory is on screen.
	indexGen atomic.Int64

	subMu       sync.Mutex
	subscribers []chan struct{}

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New constructs a Model with no directory loaded. Call LoadPath to
// begin browsing.
func New(cfg Config) *Model {
	cfg = cfg.withDefaults()

	m := &Model{
		cmds:   make(chan func(), 64),
		clk:    cfg.Clock,
		cfg:    cfg,
		cache:  loadWarmCache(cfg),
		icons:  iconcache.New(cfg.Icons),
		search: searchindex.New(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	empty := &Snapshot{State: fsmodel.LoadState{Kind: fsmodel.LoadIdle}}
	m.current.Store(empty)

	if cfg.Watch {
		if w, err := platformfs.New(m.clk); err == nil {
			m.watcher = w
			go m.watchPump()
		}
	}

	go m.run()
	return m
}

// loadWarmCache returns a cache seeded from cfg.WarmCachePath's
// persisted blob, if one exists and parses; any read or decode failure
// (missing file, corruption, version mismatch) falls back to an empty
// cache rather than blocking startup.
func loadWarmCache(cfg Config) *dircache.Cache {
	if cfg.WarmCachePath == "" {
		return dircache.New(cfg.Cache)
	}
	blob, err := os.ReadFile(cfg.WarmCachePath)
	if err != nil {
		return dircache.New(cfg.Cache)
	}
	cache, err := dircache.Load(blob, cfg.Cache)
	if err != nil {
		return dircache.New(cfg.Cache)
	}
	return cache
}

// LoadPath requests a navigation to path. The current snapshot updates
// asynchronously as the load progresses through Loading/Cached and
// into Loaded or Error.
func (m *Model) LoadPath(path string) {
	m.cmds <- func() { m.beginLoad(path) }
}

// NavigateUp requests a navigation to the current path's parent. A
// no-op at the filesystem root.
func (m *Model) NavigateUp() {
	m.cmds <- func() {
		parent := filepath.Dir(m.path)
		if parent == m.path {
			return
		}
		m.beginLoad(parent)
	}
}

// Refresh discards any cached entry for the current path and
// re-traverses it.
func (m *Model) Refresh() {
	m.cmds <- func() {
		m.cache.Remove(m.path)
		m.beginLoad(m.path)
	}
}

// Snapshot returns the most recently published view. Never blocks.
func (m *Model) Snapshot() Snapshot {
	return *m.current.Load()
}

// Entries returns the currently displayed directory's entries.
func (m *Model) Entries() []fsmodel.FileEntry { return m.Snapshot().Entries }

// CurrentPath returns the currently displayed directory's path.
func (m *Model) CurrentPath() string { return m.Snapshot().Path }

// State returns the currently displayed directory's load state.
func (m *Model) State() fsmodel.LoadState { return m.Snapshot().State }

// ContainsPath reports whether path is cached, without affecting it.
func (m *Model) ContainsPath(path string) bool {
	return m.cache.Contains(filepath.Clean(path))
}

// Icons returns the Model's icon cache, shared across the process's
// lifetime of this Model.
func (m *Model) Icons() *iconcache.Cache { return m.icons }

// SetSearchPattern updates the live fuzzy filter over the currently
// displayed directory's entries.
func (m *Model) SetSearchPattern(pattern string) { m.search.SetPattern(pattern) }

// SearchSnapshot returns the most recent fuzzy match results.
func (m *Model) SearchSnapshot() fsmodel.MatcherSnapshot { return m.search.Snapshot() }

// IndexSubtree recursively walks path and feeds every entry it finds
// into the Search Index, independent of whatever directory is
// currently displayed in the viewport — a whole-subtree search mode
// rather than the single-level listing LoadPath produces. A later
// call to IndexSubtree or LoadPath abandons an in-flight build; its
// remaining entries are discarded rather than injected. The returned
// channel closes once the build finishes or is abandoned.
func (m *Model) IndexSubtree(path string) <-chan struct{} {
	gen := m.indexGen.Add(1)
	isCurrent := func() bool { return m.indexGen.Load() == gen }
	m.search.Clear()

	cfg := traversal.Config{
		SortKey:          m.cfg.SortKey,
		SortOrder:        m.cfg.SortOrder,
		DirectoriesFirst: m.cfg.DirectoriesFirst,
		IncludeHidden:    m.cfg.IncludeHidden,
		Workers:          m.cfg.TraversalWorkers,
		Recursive:        true,
	}

	entryCh := make(chan fsmodel.FileEntry, 256)
	go func() {
		defer close(entryCh)
		traversal.Walk(context.Background(), filepath.Clean(path), gen, cfg, isCurrent, entryCh)
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entryCh {
			if !isCurrent() {
				continue
			}
			m.search.Inject(entry)
		}
	}()
	return done
}

// Subscribe returns a channel that receives a (coalesced, possibly
// dropped) ping every time the published Snapshot changes, plus an
// unsubscribe function the caller must eventually call.
func (m *Model) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	m.subMu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.subMu.Unlock()

	unsubscribe := func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		for i, c := range m.subscribers {
			if c == ch {
				m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
				return
			}
		}
	}
	return ch, unsubscribe
}

// Close stops the Model's goroutines and releases its watcher and
// search index. Callers must not invoke any other method afterward.
func (m *Model) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.stop)
		<-m.done
		if m.cfg.WarmCachePath != "" {
			if persistErr := m.persistWarmCache(); persistErr != nil {
				err = persistErr
			}
		}
		if m.watcher != nil {
			if watchErr := m.watcher.Close(); watchErr != nil && err == nil {
				err = watchErr
			}
		}
		m.search.Close()
	})
	return err
}

// persistWarmCache writes the cache's current contents to
// cfg.WarmCachePath, replacing any prior blob at that path atomically
// via a rename so a crash mid-write never corrupts the existing file.
func (m *Model) persistWarmCache() error {
	blob, err := m.cache.Persist()
	if err != nil {
		return err
	}
	tmp := m.cfg.WarmCachePath + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.cfg.WarmCachePath)
}

func (m *Model) run() {
	defer close(m.done)
	for {
		select {
		case <-m.stop:
			return
		case cmd := <-m.cmds:
			cmd()
		}
	}
}

// beginLoad starts a navigation to path: a new generation is assigned
// immediately, and a cached snapshot, if any, is published right away
// (possibly marked stale). A fresh traversal only runs when there is
// something to confirm or nothing to show yet — an unchanged, fresh
// cache hit is trusted outright and no traversal is scheduled at all.
// A stale hit keeps displaying its cached entries while a background
// revalidation confirms or replaces them, never regressing the
// viewport to an empty or partial listing in the meantime.
func (m *Model) beginLoad(path string) {
	clean := filepath.Clean(path)
	m.generation++
	gen := m.generation
	m.genAtomic.Store(gen)
	m.path = clean
	// A navigation abandons any in-flight whole-subtree index build,
	// since that build's Clear+Inject stream would otherwise race
	// with the viewport's own reindexSearch calls below.
	m.indexGen.Add(1)

	if snapshot, stale, ok := m.cache.Lookup(clean, m.statMtime); ok {
		m.entries = append([]fsmodel.FileEntry(nil), snapshot.Entries...)
		// A cache hit under a different sort than the one currently
		// configured is a re-sort, not a re-traversal: the entries
		// themselves are still valid, only their order changes.
		if snapshot.SortKey != m.cfg.SortKey || snapshot.SortOrder != m.cfg.SortOrder {
			fsmodel.SortEntries(m.entries, m.cfg.SortKey, m.cfg.SortOrder, m.cfg.DirectoriesFirst)
		}
		m.reindexSearch()
		m.state = fsmodel.LoadState{Kind: fsmodel.LoadCached, Stale: stale}
		m.publish()
		m.rewatch(clean)

		if stale {
			m.startRevalidation(clean, gen)
		}
		return
	}

	m.entries = nil
	m.reindexSearch()
	m.state = fsmodel.LoadState{Kind: fsmodel.LoadLoading, Generation: gen}
	m.publish()
	m.startTraversal(clean, gen)
}

func (m *Model) statMtime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

func (m *Model) startTraversal(path string, gen int64) {
	cfg := traversal.Config{
		SortKey:          m.cfg.SortKey,
		SortOrder:        m.cfg.SortOrder,
		DirectoriesFirst: m.cfg.DirectoriesFirst,
		IncludeHidden:    m.cfg.IncludeHidden,
		Workers:          m.cfg.TraversalWorkers,
	}
	isCurrent := func() bool { return m.genAtomic.Load() == gen }

	entryCh := make(chan fsmodel.FileEntry, 256)
	batchCh := make(chan batch.Batch, 8)
	started := m.clk.Now()

	go func() {
		_, err := traversal.Walk(context.Background(), path, gen, cfg, isCurrent, entryCh)
		close(entryCh)
		if err != nil {
			m.cmds <- func() { m.failLoad(gen, err) }
		}
	}()

	go batch.Run(m.clk, gen, batch.DefaultConfig(), entryCh, batchCh)

	go func() {
		for b := range batchCh {
			b := b
			m.cmds <- func() { m.applyBatch(gen, b, started) }
		}
	}()
}

func (m *Model) applyBatch(gen int64, b batch.Batch, started time.Time) {
	if gen != m.generation {
		return
	}
	if len(b.Entries) > 0 {
		m.entries = append(m.entries, b.Entries...)
		for _, e := range b.Entries {
			m.search.Inject(e)
		}
		m.state = fsmodel.LoadState{Kind: fsmodel.LoadLoading, Generation: gen}
		m.publish()
	}
	if b.Done {
		m.finalize(gen, started)
	}
}

func (m *Model) failLoad(gen int64, err error) {
	if gen != m.generation {
		return
	}
	m.entries = nil
	m.state = fsmodel.LoadState{Kind: fsmodel.LoadError, Message: err.Error()}
	m.publish()
}

// startRevalidation re-traverses path in the background to confirm or
// replace a stale cache hit, without disturbing whatever the viewport
// is already displaying. Unlike startTraversal, incoming batches
// accumulate into a private buffer rather than m.entries; only
// finalizeRevalidation decides whether the result actually differs
// from what's on screen.
func (m *Model) startRevalidation(path string, gen int64) {
	cfg := traversal.Config{
		SortKey:          m.cfg.SortKey,
		SortOrder:        m.cfg.SortOrder,
		DirectoriesFirst: m.cfg.DirectoriesFirst,
		IncludeHidden:    m.cfg.IncludeHidden,
		Workers:          m.cfg.TraversalWorkers,
	}
	isCurrent := func() bool { return m.genAtomic.Load() == gen }

	entryCh := make(chan fsmodel.FileEntry, 256)
	batchCh := make(chan batch.Batch, 8)
	started := m.clk.Now()

	go func() {
		_, err := traversal.Walk(context.Background(), path, gen, cfg, isCurrent, entryCh)
		close(entryCh)
		if err != nil {
			m.cmds <- func() { m.failRevalidation(gen, err) }
		}
	}()

	go batch.Run(m.clk, gen, batch.DefaultConfig(), entryCh, batchCh)

	var incoming []fsmodel.FileEntry
	go func() {
		for b := range batchCh {
			b := b
			m.cmds <- func() {
				if gen != m.generation {
					return
				}
				incoming = append(incoming, b.Entries...)
				if b.Done {
					m.finalizeRevalidation(gen, incoming, started)
				}
			}
		}
	}()
}

// failRevalidation surfaces a background revalidation's error without
// touching the entries already on screen — per the failure semantics
// of keeping the prior snapshot viewable alongside the error.
func (m *Model) failRevalidation(gen int64, err error) {
	if gen != m.generation {
		return
	}
	m.state = fsmodel.LoadState{Kind: fsmodel.LoadError, Message: err.Error()}
	m.publish()
}

// finalizeRevalidation replaces the displayed entries only if the
// revalidation's result actually differs from what's currently shown,
// so confirming an unchanged directory never flickers the viewport.
func (m *Model) finalizeRevalidation(gen int64, incoming []fsmodel.FileEntry, started time.Time) {
	if gen != m.generation {
		return
	}
	if !entriesEqual(m.entries, incoming) {
		m.entries = incoming
		m.reindexSearch()
	}
	m.state = fsmodel.LoadState{Kind: fsmodel.LoadLoaded, Count: len(m.entries), Duration: m.clk.Now().Sub(started)}

	snapshot := fsmodel.DirectorySnapshot{
		Path:       m.path,
		Entries:    append([]fsmodel.FileEntry(nil), m.entries...),
		Generation: gen,
		CapturedAt: m.clk.Now(),
		SortKey:    m.cfg.SortKey,
		SortOrder:  m.cfg.SortOrder,
	}
	if mtime, err := m.statMtime(m.path); err == nil {
		snapshot.SourceMtime = mtime
	}
	m.cache.Put(snapshot, snapshot.SourceMtime)

	m.publish()
	m.rewatch(m.path)
}

// entriesEqual reports whether a and b contain the same entries in
// the same order. FileEntry holds only comparable fields, so a
// position-wise == is sufficient — no deep comparison needed.
func entriesEqual(a, b []fsmodel.FileEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m *Model) finalize(gen int64, started time.Time) {
	if gen != m.generation {
		return
	}
	m.state = fsmodel.LoadState{Kind: fsmodel.LoadLoaded, Count: len(m.entries), Duration: m.clk.Now().Sub(started)}

	snapshot := fsmodel.DirectorySnapshot{
		Path:       m.path,
		Entries:    append([]fsmodel.FileEntry(nil), m.entries...),
		Generation: gen,
		CapturedAt: m.clk.Now(),
		SortKey:    m.cfg.SortKey,
		SortOrder:  m.cfg.SortOrder,
	}
	if mtime, err := m.statMtime(m.path); err == nil {
		snapshot.SourceMtime = mtime
	}
	m.cache.Put(snapshot, snapshot.SourceMtime)

	m.publish()
	m.rewatch(m.path)
}

// rewatch moves the live watcher, if any, onto path, unwatching
// whatever directory it previously observed.
func (m *Model) rewatch(path string) {
	if m.watcher == nil || m.watchedPath == path {
		return
	}
	if m.watchedPath != "" {
		_ = m.watcher.Unwatch(m.watchedPath)
	}
	if err := m.watcher.Watch(path); err == nil {
		m.watchedPath = path
	} else {
		m.watchedPath = ""
	}
}

func (m *Model) watchPump() {
	ticker := m.clk.NewTicker(m.cfg.EventPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			events := m.watcher.PollEvents()
			if len(events) == 0 {
				continue
			}
			select {
			case m.cmds <- func() { m.handleFsEvents(events) }:
			case <-m.stop:
				return
			}
		}
	}
}

// handleFsEvents applies watcher-reported changes that land inside
// the currently displayed directory. Events about any other directory
// are ignored — only the viewport's own contents are kept live; a
// cached-but-not-shown sibling directory is revalidated lazily, on its
// next Lookup, instead of being tracked by a watcher of its own.
func (m *Model) handleFsEvents(events []fsmodel.FsEvent) {
	dirty := false
	for _, ev := range events {
		switch ev.Kind {
		case fsmodel.FsCreated, fsmodel.FsModified:
			if m.isDirectChild(ev.Path) {
				m.upsertEntry(ev.Path)
				dirty = true
			}
		case fsmodel.FsDeleted:
			if m.removeEntry(ev.Path) {
				dirty = true
			}
		case fsmodel.FsRenamed:
			fromHere := m.isDirectChild(ev.From)
			toHere := m.isDirectChild(ev.To)
			if fromHere {
				m.removeEntry(ev.From)
			}
			if toHere {
				m.upsertEntry(ev.To)
			}
			dirty = dirty || fromHere || toHere
		}
	}
	if !dirty {
		return
	}

	fsmodel.SortEntries(m.entries, m.cfg.SortKey, m.cfg.SortOrder, m.cfg.DirectoriesFirst)
	m.reindexSearch()
	m.state = fsmodel.LoadState{Kind: fsmodel.LoadLoaded, Count: len(m.entries)}

	snapshot := fsmodel.DirectorySnapshot{
		Path:       m.path,
		Entries:    append([]fsmodel.FileEntry(nil), m.entries...),
		Generation: m.generation,
		CapturedAt: m.clk.Now(),
		SortKey:    m.cfg.SortKey,
		SortOrder:  m.cfg.SortOrder,
	}
	if mtime, err := m.statMtime(m.path); err == nil {
		snapshot.SourceMtime = mtime
	}
	m.cache.Put(snapshot, snapshot.SourceMtime)

	m.publish()
}

func (m *Model) isDirectChild(path string) bool {
	return path != "" && filepath.Dir(path) == m.path
}

func (m *Model) upsertEntry(path string) {
	entry, ok := statOne(path)
	if !ok {
		m.removeEntry(path)
		return
	}
	for i, e := range m.entries {
		if e.Path == path {
			m.entries[i] = entry
			return
		}
	}
	m.entries = append(m.entries, entry)
}

func (m *Model) removeEntry(path string) bool {
	for i, e := range m.entries {
		if e.Path == path {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Model) reindexSearch() {
	m.search.Clear()
	for _, e := range m.entries {
		m.search.Inject(e)
	}
}

func (m *Model) publish() {
	snap := &Snapshot{
		Path:    m.path,
		Entries: append([]fsmodel.FileEntry(nil), m.entries...),
		State:   m.state,
	}
	m.current.Store(snap)
	m.notify()
}

func (m *Model) notify() {
	m.subMu.Lock()
	subs := m.subscribers
	m.subMu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// statOne stats a single path for the watcher's incremental update
// path, mirroring traversal's symlink handling without pulling in a
// full directory listing.
func statOne(path string) (fsmodel.FileEntry, bool) {
	info, err := os.Lstat(path)
	if err != nil {
		return fsmodel.FileEntry{}, false
	}
	name := filepath.Base(path)

	if info.Mode()&os.ModeSymlink == 0 {
		return fsmodel.NewFileEntry(name, path, info.IsDir(), sizeOf(info), info.ModTime()), true
	}

	target, readErr := os.Readlink(path)
	targetInfo, statErr := os.Stat(path)
	if statErr != nil {
		entry := fsmodel.NewFileEntry(name, path, false, 0, info.ModTime())
		entry.IsSymlink = true
		entry.BrokenSymlink = true
		entry.FileType = fsmodel.FileTypeSymlink
		if readErr == nil {
			entry.SymlinkTarget = target
		}
		return entry, true
	}

	entry := fsmodel.NewFileEntry(name, path, targetInfo.IsDir(), sizeOf(targetInfo), targetInfo.ModTime())
	entry.IsSymlink = true
	entry.SymlinkTarget = target
	return entry, true
}

func sizeOf(info os.FileInfo) uint64 {
	if info.IsDir() {
		return 0
	}
	return uint64(info.Size())
}
