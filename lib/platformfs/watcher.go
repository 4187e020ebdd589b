// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package platformfs

import (
	"sync"
	"time"

	"github.com/arborfs/arbor/lib/clock"
	"github.com/arborfs/arbor/lib/fsmodel"
)

// DefaultDebounce is the coalescing window applied to raw backend
// events before they are published through PollEvents.
const DefaultDebounce = 50 * time.Millisecond

// rawKind discriminates the unprocessed events a backend produces,
// before debounce coalescing collapses them into fsmodel.FsEvent.
type rawKind int

const (
	rawCreated rawKind = iota
	rawModified
	rawDeleted
	rawRenamed
)

// rawEvent is one backend-reported change, prior to coalescing.
// from is populated only for rawRenamed.
type rawEvent struct {
	kind rawKind
	path string
	from string
}

// backend is the platform-specific half of a Watcher: it turns
// directory watch registrations into a stream of rawEvents. Backends
// are not responsible for debounce coalescing; Watcher owns that.
type backend interface {
	watch(path string) error
	unwatch(path string) error
	close() error
}

// pendingEntry tracks the not-yet-flushed state for one path inside
// the debounce window.
type pendingEntry struct {
	kind  rawKind
	from  string
	timer *clock.Timer
}

// Watcher is the uniform change-event stream the FileSystem Model
// consumes: Watch/Unwatch scope which directories are observed, and
// PollEvents drains debounced, coalesced fsmodel.FsEvent values.
//
// A Watcher is safe for concurrent use. The delivery goroutine folds
// raw events into the pending map and the debounce timers flush
// settled entries into the output queue, both under one mutex;
// PollEvents is the single consumer of that queue.
type Watcher struct {
	clk      clock.Clock
	debounce time.Duration
	backend  backend
	raw      chan rawEvent

	mu      sync.Mutex
	pending map[string]*pendingEntry
	queue   []fsmodel.FsEvent

	stop chan struct{}
	done chan struct{}
}

// New constructs a Watcher using the platform's native backend
// (inotify on linux, polling everywhere else) with the default
// debounce window.
func New(clk clock.Clock) (*Watcher, error) {
	raw := make(chan rawEvent, 256)
	b, err := newBackend(raw)
	if err != nil {
		return nil, err
	}
	return newWithBackend(clk, DefaultDebounce, b, raw), nil
}

func newWithBackend(clk clock.Clock, debounce time.Duration, b backend, raw chan rawEvent) *Watcher {
	w := &Watcher{
		clk:      clk,
		debounce: debounce,
		backend:  b,
		raw:      raw,
		pending:  make(map[string]*pendingEntry),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

// Watch scopes change notifications to path's direct children.
func (w *Watcher) Watch(path string) error { return w.backend.watch(path) }

// Unwatch stops observing path.
func (w *Watcher) Unwatch(path string) error { return w.backend.unwatch(path) }

// PollEvents drains and returns every coalesced event published since
// the last call. The returned slice is owned by the caller.
func (w *Watcher) PollEvents() []fsmodel.FsEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := w.queue
	w.queue = nil
	return events
}

// Close stops the Watcher's delivery goroutine and releases the
// underlying backend. After Close, PollEvents returns whatever was
// queued but Watch/Unwatch are no longer meaningful.
func (w *Watcher) Close() error {
	close(w.stop)
	<-w.done
	return w.backend.close()
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case ev, ok := <-w.raw:
			if !ok {
				return
			}
			w.applyRaw(ev)
		}
	}
}

func (w *Watcher) applyRaw(ev rawEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch ev.kind {
	case rawDeleted:
		w.deleteLocked(ev.path)
	case rawRenamed:
		if from, ok := w.pending[ev.from]; ok {
			from.timer.Stop()
			delete(w.pending, ev.from)
		}
		w.mergeLocked(ev.path, rawRenamed, ev.from)
	default:
		w.mergeLocked(ev.path, ev.kind, "")
	}
}

// mergeLocked folds an incoming create/modify/renamed event into
// path's pending state, resetting the debounce timer. Callers hold
// w.mu.
func (w *Watcher) mergeLocked(path string, kind rawKind, from string) {
	entry, exists := w.pending[path]
	if !exists {
		entry = &pendingEntry{kind: kind, from: from}
		w.pending[path] = entry
	} else {
		entry.kind = mergeKind(entry.kind, kind)
		if kind == rawRenamed {
			entry.from = from
		}
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
	entry.timer = w.clk.AfterFunc(w.debounce, func() { w.flush(path) })
}

// mergeKind folds incoming into an existing pending kind. A renamed
// event always wins. A path that was deleted and then recreated
// within the window nets out as modified (it existed throughout,
// content unknown); anything else folding onto a pending created
// event stays created.
func mergeKind(existing, incoming rawKind) rawKind {
	if incoming == rawRenamed || existing == rawRenamed {
		return rawRenamed
	}
	if existing == rawDeleted {
		return rawModified
	}
	if existing == rawCreated {
		return rawCreated
	}
	return incoming
}

// deleteLocked applies a raw delete. A delete following a still-
// pending create within the window collapses to nothing — the path
// never settled into an observable state. Callers hold w.mu.
func (w *Watcher) deleteLocked(path string) {
	entry, exists := w.pending[path]
	if exists && entry.kind == rawCreated {
		entry.timer.Stop()
		delete(w.pending, path)
		return
	}
	if exists {
		entry.kind = rawDeleted
		entry.from = ""
		entry.timer.Stop()
	} else {
		entry = &pendingEntry{kind: rawDeleted}
		w.pending[path] = entry
	}
	entry.timer = w.clk.AfterFunc(w.debounce, func() { w.flush(path) })
}

func (w *Watcher) flush(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, exists := w.pending[path]
	if !exists {
		return
	}
	delete(w.pending, path)

	var out fsmodel.FsEvent
	switch entry.kind {
	case rawCreated:
		out = fsmodel.FsEvent{Kind: fsmodel.FsCreated, Path: path}
	case rawModified:
		out = fsmodel.FsEvent{Kind: fsmodel.FsModified, Path: path}
	case rawDeleted:
		out = fsmodel.FsEvent{Kind: fsmodel.FsDeleted, Path: path}
	case rawRenamed:
		out = fsmodel.FsEvent{Kind: fsmodel.FsRenamed, From: entry.from, To: path}
	}
	w.queue = append(w.queue, out)
}
