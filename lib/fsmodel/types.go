// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package fsmodel

import (
	"path/filepath"
	"strings"
	"time"
)

// FileType classifies an entry for icon selection. Symlink carries
// the classification of its resolved target separately (see
// FileEntry.IsSymlink / FileEntry.BrokenSymlink) rather than hiding
// it — a symlink to a directory still needs to behave like one when
// the viewport navigates into it.
type FileType int

const (
	FileTypeDirectory FileType = iota
	FileTypeRegular
	FileTypeSymlink
	FileTypeUnknown
)

func (t FileType) String() string {
	switch t {
	case FileTypeDirectory:
		return "directory"
	case FileTypeRegular:
		return "regular"
	case FileTypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// IconKeyKind discriminates IconKey's variants.
type IconKeyKind int

const (
	IconKeyDirectory IconKeyKind = iota
	IconKeyGenericFile
	IconKeyExtension
	IconKeyMimeType
	IconKeyCustom
)

// IconKey identifies which texture an entry should use in the Icon
// Cache. Two entries with equal keys always share a texture. IconKey
// is comparable (usable as a map key) so the icon cache can index it
// directly.
type IconKey struct {
	Kind IconKeyKind

	// Value holds the Extension, MimeType, or Custom-path payload.
	// Empty for Directory and GenericFile.
	Value string
}

// String renders a stable, human-readable form of the key, used both
// for logging and as the de-duplication key for in-flight icon
// fetches (see lib/iconcache).
func (k IconKey) String() string {
	switch k.Kind {
	case IconKeyDirectory:
		return "dir"
	case IconKeyGenericFile:
		return "generic"
	case IconKeyExtension:
		return "ext:" + k.Value
	case IconKeyMimeType:
		return "mime:" + k.Value
	case IconKeyCustom:
		return "custom:" + k.Value
	default:
		return "unknown"
	}
}

func iconKeyForExtension(name string) IconKey {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return IconKey{Kind: IconKeyGenericFile}
	}
	return IconKey{Kind: IconKeyExtension, Value: strings.ToLower(ext)}
}

// FileEntry is the atomic, immutable unit of directory content. Once
// published in a DirectorySnapshot, a FileEntry is never mutated —
// updates replace the entry (and the snapshot containing it) rather
// than editing it in place.
type FileEntry struct {
	Name     string
	Path     string
	IsDir    bool
	Size     uint64
	Modified time.Time
	FileType FileType
	IconKey  IconKey

	// IsSymlink is true for entries that are symlinks, regardless of
	// whether the link target resolves.
	IsSymlink bool

	// BrokenSymlink is true when IsSymlink is true and the target
	// could not be resolved (dangling link, permission denied
	// resolving it, or a resolution cycle).
	BrokenSymlink bool

	// SymlinkTarget holds the link's target as read by os.Readlink
	// (relative targets stay relative) when IsSymlink is true; a broken
	// link carries it too if the link itself could be read. Empty for
	// entries that are not symlinks.
	SymlinkTarget string
}

// NewFileEntry builds a FileEntry, deriving FileType and IconKey from
// name/isDir/extension the way the rest of the model expects. Callers
// that have already resolved a symlink should set IsSymlink and the
// related fields afterward.
func NewFileEntry(name, path string, isDir bool, size uint64, modified time.Time) FileEntry {
	entry := FileEntry{
		Name:     name,
		Path:     path,
		IsDir:    isDir,
		Size:     size,
		Modified: modified,
	}
	if isDir {
		entry.FileType = FileTypeDirectory
		entry.IconKey = IconKey{Kind: IconKeyDirectory}
	} else {
		entry.FileType = FileTypeRegular
		entry.IconKey = iconKeyForExtension(name)
	}
	return entry
}

// SortKey names which field a DirectorySnapshot is ordered by.
type SortKey int

const (
	SortByName SortKey = iota
	SortBySize
	SortByModifiedTime
)

func (k SortKey) String() string {
	switch k {
	case SortByName:
		return "name"
	case SortBySize:
		return "size"
	case SortByModifiedTime:
		return "modified"
	default:
		return "unknown"
	}
}

// SortOrder names the direction a DirectorySnapshot is ordered in.
type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// DirectorySnapshot is an immutable, ordered view of one directory's
// contents as of a specific generation and capture time. Snapshots
// are shared by value; callers must never mutate Entries in place —
// build a new snapshot instead.
type DirectorySnapshot struct {
	Path        string
	Entries     []FileEntry
	Generation  int64
	CapturedAt  time.Time
	SourceMtime time.Time
	SortKey     SortKey
	SortOrder   SortOrder
}

// LoadStateKind discriminates LoadState's variants.
type LoadStateKind int

const (
	LoadIdle LoadStateKind = iota
	LoadLoading
	LoadLoaded
	LoadCached
	LoadError
)

// LoadState is the viewport-visible lifecycle of the currently
// targeted path.
type LoadState struct {
	Kind LoadStateKind

	// Generation is populated for LoadLoading.
	Generation int64

	// Count and Duration are populated for LoadLoaded.
	Count    int
	Duration time.Duration

	// Stale is populated for LoadCached.
	Stale bool

	// Message is populated for LoadError.
	Message string
}

func (s LoadState) String() string {
	switch s.Kind {
	case LoadIdle:
		return "idle"
	case LoadLoading:
		return "loading"
	case LoadLoaded:
		return "loaded"
	case LoadCached:
		return "cached"
	case LoadError:
		return "error"
	default:
		return "unknown"
	}
}

// FsEventKind discriminates FsEvent's variants.
type FsEventKind int

const (
	FsCreated FsEventKind = iota
	FsModified
	FsDeleted
	FsRenamed
)

// FsEvent is a single filesystem change notification, already
// coalesced by the debounce window described in lib/platformfs.
type FsEvent struct {
	Kind FsEventKind
	Path string

	// From/To are populated for FsRenamed only; Path is left empty
	// for that variant to avoid ambiguity about which side it names.
	From string
	To   string
}

// MatchedItem is one fuzzy-search hit: an index into the set of
// entries the Search Index was built over, a score (higher is
// better; a zero score with an empty pattern means "unranked, all
// items present"), and the byte offsets in the entry's name that the
// pattern matched.
type MatchedItem struct {
	EntryIndex int
	Score      int
	Positions  []int
}

// MatcherSnapshot is an immutable, cheap-to-copy view of the Search
// Index's current best-known results.
type MatcherSnapshot struct {
	Matches    []MatchedItem
	Pattern    string
	TotalItems int
}
