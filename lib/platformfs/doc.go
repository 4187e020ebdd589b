// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package platformfs gives the FileSystem Model a uniform change-event
// stream regardless of the underlying platform. A Watcher watches
// directories for direct-child create/modify/delete/rename and
// delivers coalesced fsmodel.FsEvent values through PollEvents: rapid
// modifications on the same path within a 50ms debounce window
// collapse to one Modified event, a Created immediately followed by a
// Deleted within the window collapses to nothing, and a Renamed is
// reported as a single atomic event when the backend can pair the
// from/to names.
//
// On linux the real backend watches directories with raw inotify
// syscalls; every other GOOS falls back to polling stat snapshots on
// an interval, since the pack carries no FSEvents or USN journal
// binding to ground a native backend on for those platforms.
package platformfs
