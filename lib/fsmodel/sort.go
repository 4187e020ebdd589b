// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package fsmodel

import (
	"sort"
	"strings"
)

// SortEntries orders entries in place according to key and order. If
// directoriesFirst is set, directories and files are partitioned into
// two stably-ordered groups first, then each group is sorted
// independently and the groups are concatenated directory-group
// first, satisfying invariant I3's directories-first requirement
// without disturbing the requested sort within each group.
func SortEntries(entries []FileEntry, key SortKey, order SortOrder, directoriesFirst bool) {
	if !directoriesFirst {
		sortByKey(entries, key, order)
		return
	}

	var dirs, files []FileEntry
	for _, entry := range entries {
		if entry.IsDir {
			dirs = append(dirs, entry)
		} else {
			files = append(files, entry)
		}
	}
	sortByKey(dirs, key, order)
	sortByKey(files, key, order)
	copy(entries, dirs)
	copy(entries[len(dirs):], files)
}

func sortByKey(entries []FileEntry, key SortKey, order SortOrder) {
	less := func(i, j int) bool {
		return compare(entries[i], entries[j], key) < 0
	}
	if order == Descending {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(entries, less)
}

// compare returns <0, 0, or >0 the way strings.Compare does, breaking
// ties with a case-insensitive name compare and then a byte-exact
// name compare, matching the traversal pipeline's tie-break rule so a
// sort by Size or ModifiedTime is still fully deterministic for
// entries with equal size/mtime.
func compare(a, b FileEntry, key SortKey) int {
	switch key {
	case SortBySize:
		if a.Size != b.Size {
			if a.Size < b.Size {
				return -1
			}
			return 1
		}
	case SortByModifiedTime:
		if !a.Modified.Equal(b.Modified) {
			if a.Modified.Before(b.Modified) {
				return -1
			}
			return 1
		}
	}
	return compareNames(a.Name, b.Name)
}

// compareNames implements the traversal pipeline's tie-break rule:
// case-insensitive compare first, falling back to an exact byte
// compare for names that differ only in case.
func compareNames(a, b string) int {
	lowerA, lowerB := strings.ToLower(a), strings.ToLower(b)
	if lowerA != lowerB {
		return strings.Compare(lowerA, lowerB)
	}
	return strings.Compare(a, b)
}
