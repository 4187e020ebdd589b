// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package fsmodel defines the shared data model for arbor's
// file-browsing data plane — FileEntry, DirectorySnapshot, LoadState,
// FsEvent, IconKey, MatchedItem, MatcherSnapshot, the sort order, and
// the error taxonomy.
//
// The package holds plain data types only. The Model coordinator that
// ties the traversal pipeline, directory cache, icon cache, search
// index, and platform watcher together lives in lib/filesystem, which
// imports this package.
package fsmodel
