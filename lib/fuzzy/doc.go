// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuzzy wraps fzf's matching algorithm for use against file
// and directory names: all pattern characters must appear in the
// target string in order (not necessarily contiguous), with higher
// scores for contiguous and prefix-aligned matches. Matching is
// always case-insensitive, matching how people actually type searches
// over file names.
package fuzzy
