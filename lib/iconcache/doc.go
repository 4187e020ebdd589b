// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package iconcache maps fsmodel.IconKey values to decoded BGRA icon
// textures, bounded by total pixel bytes rather than entry count. A
// miss returns a placeholder immediately and schedules a background
// decode; concurrent misses for the same key share one decode via
// singleflight instead of each kicking off their own. Pinned keys and
// the built-in atlas are exempt from eviction.
package iconcache
