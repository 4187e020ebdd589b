// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package batch coalesces a high-rate stream of file entries into
// coarse batches safe to publish to a viewport: bounded by count (100
// entries) or time (16ms), whichever is reached first, with a
// terminal "done" batch marking the end of a traversal.
package batch
