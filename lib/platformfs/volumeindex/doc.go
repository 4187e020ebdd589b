// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package volumeindex is the optional whole-volume index: on volumes
// where the platform exposes a persistent change journal (NTFS's USN
// journal, for example), the core can build an in-memory index
// mapping a per-file identifier to its parent identifier, name, and
// metadata, then reconstruct any file's absolute path by walking
// parent links without touching the filesystem.
//
// The real journal source is platform-specific and out of reach of a
// portable test environment, so Index exposes Apply as
// the integration seam: production code feeds it records read from
// the platform journal, tests feed it records from an in-memory fake
// producer. This mirrors how lib/clock isolates wall-clock time
// behind an interface.
package volumeindex
