// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package traversal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/arborfs/arbor/lib/fsmodel"
)

// Config controls how a directory is walked.
type Config struct {
	SortKey          fsmodel.SortKey
	SortOrder        fsmodel.SortOrder
	DirectoriesFirst bool
	IncludeHidden    bool

	// Recursive selects whole-tree index building instead of a
	// single-viewport listing. When false, only path's immediate
	// children are emitted.
	Recursive bool

	// MaxDepth bounds recursion when Recursive is set. Zero means
	// unlimited depth.
	MaxDepth int

	// Workers bounds how many goroutines stat directory children
	// concurrently. Zero selects runtime.NumCPU().
	Workers int
}

// DefaultConfig returns the viewport traversal policy: single level,
// hidden entries excluded, name ascending.
func DefaultConfig() Config {
	return Config{
		SortKey:          fsmodel.SortByName,
		SortOrder:        fsmodel.Ascending,
		DirectoriesFirst: true,
		Recursive:        false,
	}
}

// IsCurrent reports whether the traversal's generation is still the
// one the caller cares about. Walk consults it between emitting
// entries so an abandoned traversal can stop producing work without
// needing its context cancelled.
type IsCurrent func() bool

// Walk lists path (recursively, per cfg) and sends each resulting
// fsmodel.FileEntry on out, sorted per cfg within each directory
// level. It returns the number of entries sent. Walk does not close
// out; the caller owns that, typically a batch.Run reading from the
// same channel.
func Walk(ctx context.Context, path string, generation int64, cfg Config, current IsCurrent, out chan<- fsmodel.FileEntry) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return 0, fsmodel.NewError(fsmodel.KindPathNotFound, path, err)
		case os.IsPermission(err):
			return 0, fsmodel.NewError(fsmodel.KindPermissionDenied, path, err)
		default:
			return 0, fsmodel.NewError(fsmodel.KindIO, path, err)
		}
	}
	if !info.IsDir() {
		return 0, fsmodel.NewError(fsmodel.KindIO, path, fmt.Errorf("not a directory"))
	}

	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	total := 0
	err = walkLevel(ctx, path, 0, cfg, current, out, &total)
	return total, err
}

func walkLevel(ctx context.Context, dir string, depth int, cfg Config, current IsCurrent, out chan<- fsmodel.FileEntry, total *int) error {
	if current != nil && !current() {
		return nil
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsPermission(err) {
			return fsmodel.NewError(fsmodel.KindPermissionDenied, dir, err)
		}
		return fsmodel.NewError(fsmodel.KindIO, dir, err)
	}

	kept := dirEntries[:0:0]
	for _, de := range dirEntries {
		if !cfg.IncludeHidden && isHidden(de.Name()) {
			continue
		}
		kept = append(kept, de)
	}

	entries := make([]fsmodel.FileEntry, len(kept))
	ok := make([]bool, len(kept))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for i, de := range kept {
		i, de := i, de
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			entry, err := statEntry(dir, de)
			if err != nil {
				// An individual entry's stat failure (permission
				// denied, a race with deletion) doesn't abort the
				// listing — the entry is just omitted.
				return nil
			}
			entries[i] = entry
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	kept2 := entries[:0]
	for i, wasOK := range ok {
		if wasOK {
			kept2 = append(kept2, entries[i])
		}
	}
	entries = kept2

	fsmodel.SortEntries(entries, cfg.SortKey, cfg.SortOrder, cfg.DirectoriesFirst)

	var subdirs []string
	for _, entry := range entries {
		if current != nil && !current() {
			return nil
		}
		out <- entry
		*total++
		if entry.IsDir && !entry.BrokenSymlink {
			subdirs = append(subdirs, entry.Path)
		}
	}

	if !cfg.Recursive {
		return nil
	}
	if cfg.MaxDepth > 0 && depth+1 >= cfg.MaxDepth {
		return nil
	}
	for _, sub := range subdirs {
		if err := walkLevel(ctx, sub, depth+1, cfg, current, out, total); err != nil {
			return err
		}
	}
	return nil
}

func statEntry(dir string, de os.DirEntry) (fsmodel.FileEntry, error) {
	path := filepath.Join(dir, de.Name())

	symInfo, err := os.Lstat(path)
	if err != nil {
		return fsmodel.FileEntry{}, fsmodel.NewError(fsmodel.KindIO, path, err)
	}

	if symInfo.Mode()&os.ModeSymlink == 0 {
		entry := fsmodel.NewFileEntry(de.Name(), path, symInfo.IsDir(), sizeOf(symInfo), symInfo.ModTime())
		return entry, nil
	}

	target, readErr := os.Readlink(path)
	targetInfo, statErr := os.Stat(path)
	if statErr != nil {
		entry := fsmodel.NewFileEntry(de.Name(), path, false, 0, symInfo.ModTime())
		entry.IsSymlink = true
		entry.BrokenSymlink = true
		entry.FileType = fsmodel.FileTypeSymlink
		if readErr == nil {
			entry.SymlinkTarget = target
		}
		return entry, nil
	}

	entry := fsmodel.NewFileEntry(de.Name(), path, targetInfo.IsDir(), sizeOf(targetInfo), targetInfo.ModTime())
	entry.IsSymlink = true
	entry.SymlinkTarget = target
	return entry, nil
}

func sizeOf(info os.FileInfo) uint64 {
	if info.IsDir() {
		return 0
	}
	return uint64(info.Size())
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
