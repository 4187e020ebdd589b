// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package platformfs

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const inotifyMask = unix.IN_CREATE | unix.IN_DELETE | unix.IN_CLOSE_WRITE |
	unix.IN_MOVED_FROM | unix.IN_MOVED_TO

// moveCookieTimeout bounds how long an unpaired IN_MOVED_FROM waits
// for its IN_MOVED_TO counterpart before it is reported as a plain
// delete (the target moved outside any watched directory).
const moveCookieTimeout = 100 * time.Millisecond

// inotifyBackend watches directories via raw inotify syscalls,
// following the fd/poll/read loop lib/ticketui's beads file watcher
// uses, generalized from one fixed filename to arbitrary watched
// directories and from a single poll target to a registry of them.
type inotifyBackend struct {
	fd     int
	events chan<- rawEvent

	mu      sync.Mutex
	wdToDir map[int32]string
	dirToWd map[string]int32
	moves   map[uint32]pendingMove

	stop chan struct{}
	done chan struct{}
}

type pendingMove struct {
	path string
	at   time.Time
}

func newBackend(events chan<- rawEvent) (backend, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("platformfs: inotify init: %w", err)
	}
	b := &inotifyBackend{
		fd:      fd,
		events:  events,
		wdToDir: make(map[int32]string),
		dirToWd: make(map[string]int32),
		moves:   make(map[uint32]pendingMove),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go b.run()
	return b, nil
}

func (b *inotifyBackend) watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.dirToWd[abs]; exists {
		return nil
	}

	wd, err := unix.InotifyAddWatch(b.fd, abs, inotifyMask)
	if err != nil {
		return fmt.Errorf("platformfs: watch %s: %w", abs, err)
	}
	b.wdToDir[int32(wd)] = abs
	b.dirToWd[abs] = int32(wd)
	return nil
}

func (b *inotifyBackend) unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	wd, exists := b.dirToWd[abs]
	if !exists {
		return nil
	}
	delete(b.dirToWd, abs)
	delete(b.wdToDir, wd)
	_, err = unix.InotifyRmWatch(b.fd, uint32(wd))
	return err
}

func (b *inotifyBackend) close() error {
	close(b.stop)
	<-b.done
	return unix.Close(b.fd)
}

func (b *inotifyBackend) run() {
	defer close(b.done)
	buffer := make([]byte, 64*1024)

	for {
		select {
		case <-b.stop:
			return
		default:
		}

		b.expireMoves()

		pollDescriptors := []unix.PollFd{{Fd: int32(b.fd), Events: unix.POLLIN}}
		count, err := unix.Poll(pollDescriptors, 100)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		if count == 0 {
			continue
		}

		n, err := unix.Read(b.fd, buffer)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}
		b.parse(buffer[:n])
	}
}

// expireMoves reports a plain delete for any IN_MOVED_FROM that never
// received a matching IN_MOVED_TO within moveCookieTimeout — the
// target moved to a location outside any watched directory.
func (b *inotifyBackend) expireMoves() {
	now := time.Now()
	b.mu.Lock()
	var expired []string
	for cookie, mv := range b.moves {
		if now.Sub(mv.at) >= moveCookieTimeout {
			expired = append(expired, mv.path)
			delete(b.moves, cookie)
		}
	}
	b.mu.Unlock()

	for _, path := range expired {
		b.send(rawEvent{kind: rawDeleted, path: path})
	}
}

func (b *inotifyBackend) parse(buf []byte) {
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buf) {
		wd := int32(binary.NativeEndian.Uint32(buf[offset : offset+4]))
		mask := binary.NativeEndian.Uint32(buf[offset+4 : offset+8])
		cookie := binary.NativeEndian.Uint32(buf[offset+8 : offset+12])
		nameLen := int(binary.NativeEndian.Uint32(buf[offset+12 : offset+16]))
		eventSize := unix.SizeofInotifyEvent + nameLen
		if offset+eventSize > len(buf) {
			break
		}

		var name string
		if nameLen > 0 {
			name = nullTerminated(buf[offset+unix.SizeofInotifyEvent : offset+eventSize])
		}
		offset += eventSize

		if name == "" {
			continue
		}

		b.mu.Lock()
		dir, known := b.wdToDir[wd]
		b.mu.Unlock()
		if !known {
			continue
		}
		full := filepath.Join(dir, name)

		switch {
		case mask&unix.IN_MOVED_FROM != 0:
			b.mu.Lock()
			b.moves[cookie] = pendingMove{path: full, at: time.Now()}
			b.mu.Unlock()
		case mask&unix.IN_MOVED_TO != 0:
			b.mu.Lock()
			from, paired := b.moves[cookie]
			delete(b.moves, cookie)
			b.mu.Unlock()
			if paired {
				b.send(rawEvent{kind: rawRenamed, path: full, from: from.path})
			} else {
				b.send(rawEvent{kind: rawCreated, path: full})
			}
		case mask&unix.IN_CREATE != 0:
			b.send(rawEvent{kind: rawCreated, path: full})
		case mask&unix.IN_DELETE != 0:
			b.send(rawEvent{kind: rawDeleted, path: full})
		case mask&unix.IN_CLOSE_WRITE != 0:
			b.send(rawEvent{kind: rawModified, path: full})
		}
	}
}

func (b *inotifyBackend) send(ev rawEvent) {
	select {
	case b.events <- ev:
	case <-b.stop:
	}
}

func nullTerminated(data []byte) string {
	for i, c := range data {
		if c == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}
