// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides arbor's standard CBOR encoding configuration.
//
// arbor persists two kinds of state to disk: the optional directory
// cache warm-start blob (lib/dircache) and the whole-volume index blob
// (lib/platformfs/volumeindex). Both use CBOR via this package so they
// encode identically and round-trip byte-for-byte.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
// Same logical data always produces identical bytes, which matters
// because the volume index blob carries a content hash computed over
// its own encoded body — a non-deterministic encoding would make that
// hash meaningless.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented use:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
package codec
