// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package platformfs

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arborfs/arbor/lib/clock"
)

// DefaultPollInterval is how often the polling backend re-lists each
// watched directory. No platform binding is available to ground a
// native backend on for non-linux targets, so the fallback trades
// responsiveness for portability; it is coarser than the debounce
// window it feeds.
const DefaultPollInterval = 200 * time.Millisecond

// direntState is the subset of directory entry metadata that, if
// unchanged between two listings, means the entry itself is
// unchanged.
type direntState struct {
	modTime time.Time
	size    int64
	isDir   bool
}

// pollingBackend detects filesystem changes by periodically re-
// listing watched directories and diffing against the prior listing.
// Renames are not paired here — a poll catches the new name and the
// missing old name as two independent events, which Watcher reports
// as Deleted(from) + Created(to) per the uniform watcher contract.
type pollingBackend struct {
	clk      clock.Clock
	interval time.Duration
	events   chan<- rawEvent

	mu      sync.Mutex
	watched map[string]map[string]direntState

	stop chan struct{}
	done chan struct{}
}

func newBackend(events chan<- rawEvent) (backend, error) {
	b := &pollingBackend{
		clk:      clock.Real(),
		interval: DefaultPollInterval,
		events:   events,
		watched:  make(map[string]map[string]direntState),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go b.run()
	return b, nil
}

func (b *pollingBackend) watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	snapshot, err := listDirentStates(abs)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.watched[abs] = snapshot
	b.mu.Unlock()
	return nil
}

func (b *pollingBackend) unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	b.mu.Lock()
	delete(b.watched, abs)
	b.mu.Unlock()
	return nil
}

func (b *pollingBackend) close() error {
	close(b.stop)
	<-b.done
	return nil
}

func (b *pollingBackend) run() {
	defer close(b.done)
	ticker := b.clk.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			b.poll()
		}
	}
}

func (b *pollingBackend) poll() {
	b.mu.Lock()
	dirs := make([]string, 0, len(b.watched))
	for dir := range b.watched {
		dirs = append(dirs, dir)
	}
	b.mu.Unlock()

	for _, dir := range dirs {
		current, err := listDirentStates(dir)
		if err != nil {
			continue
		}

		b.mu.Lock()
		previous, stillWatched := b.watched[dir]
		if stillWatched {
			b.watched[dir] = current
		}
		b.mu.Unlock()
		if !stillWatched {
			continue
		}

		for name, state := range current {
			full := filepath.Join(dir, name)
			prior, existed := previous[name]
			switch {
			case !existed:
				b.send(rawEvent{kind: rawCreated, path: full})
			case prior != state:
				b.send(rawEvent{kind: rawModified, path: full})
			}
		}
		for name := range previous {
			if _, still := current[name]; !still {
				b.send(rawEvent{kind: rawDeleted, path: filepath.Join(dir, name)})
			}
		}
	}
}

func (b *pollingBackend) send(ev rawEvent) {
	select {
	case b.events <- ev:
	case <-b.stop:
	}
}

func listDirentStates(dir string) (map[string]direntState, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	states := make(map[string]direntState, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		states[e.Name()] = direntState{
			modTime: info.ModTime(),
			size:    info.Size(),
			isDir:   info.IsDir(),
		}
	}
	return states, nil
}
