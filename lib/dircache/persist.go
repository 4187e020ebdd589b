// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package dircache

import (
	"fmt"
	"time"

	"github.com/zeebo/blake3"

	"github.com/arborfs/arbor/lib/codec"
	"github.com/arborfs/arbor/lib/compress"
	"github.com/arborfs/arbor/lib/fsmodel"
)

const (
	blobMagic   = "ARBC" // Arbor directory cache blob
	blobVersion = 1
)

// blobEntry is the on-disk form of one cached directory, independent
// of the in-memory entry type so the wire format doesn't change shape
// every time the cache's internals do.
type blobEntry struct {
	Snapshot    fsmodel.DirectorySnapshot `cbor:"1,keyasint"`
	SourceMtime int64                     `cbor:"2,keyasint"` // unix nanos
}

type blobHeader struct {
	Magic   string      `cbor:"1,keyasint"`
	Version int         `cbor:"2,keyasint"`
	Entries []blobEntry `cbor:"3,keyasint"`
}

// Persist encodes the cache's current entries (most-recently-used
// first) as a CBOR-then-compressed blob with a BLAKE3 checksum
// trailer, suitable for a warm start on the next launch. The blob's
// own header records which compression tag was actually used, since
// Compress falls back to storing small or already-dense payloads
// uncompressed.
func (c *Cache) Persist() ([]byte, error) {
	c.mu.Lock()
	entries := make([]blobEntry, 0, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		e := el.Value.(*listValue).entry
		entries = append(entries, blobEntry{Snapshot: e.snapshot, SourceMtime: e.sourceMtime.UnixNano()})
	}
	c.mu.Unlock()

	inner := blobHeader{Magic: blobMagic, Version: blobVersion, Entries: entries}
	encoded, err := codec.Marshal(inner)
	if err != nil {
		return nil, fmt.Errorf("encoding directory cache blob: %w", err)
	}

	tag := compress.TagZstd
	compressed, err := compress.Compress(encoded, tag)
	if compress.IsIncompressible(err) {
		tag, compressed = compress.TagNone, encoded
	} else if err != nil {
		return nil, fmt.Errorf("compressing directory cache blob: %w", err)
	}

	checksum := blake3.Sum256(compressed)
	uncompressedLen := uint64(len(encoded))

	out := make([]byte, 0, len(compressed)+len(checksum)+9)
	out = append(out, byte(tag))
	out = appendUint64(out, uncompressedLen)
	out = append(out, compressed...)
	out = append(out, checksum[:]...)
	return out, nil
}

// Load decodes a blob produced by Persist and replaces the cache's
// contents with it. The blob is rejected wholesale — not partially
// applied — if the checksum does not match or decoding fails at any
// point; a corrupt warm-start blob must never leave the cache in a
// half-populated state.
func Load(blob []byte, cfg Config) (*Cache, error) {
	if len(blob) < 1+8+32 {
		return nil, fmt.Errorf("directory cache blob too short: %d bytes", len(blob))
	}

	tag := compress.Tag(blob[0])
	uncompressedLen, rest := readUint64(blob[1:])
	checksumStart := len(rest) - 32
	if checksumStart < 0 {
		return nil, fmt.Errorf("directory cache blob too short: %d bytes", len(blob))
	}
	compressed, wantChecksum := rest[:checksumStart], rest[checksumStart:]

	gotChecksum := blake3.Sum256(compressed)
	if string(gotChecksum[:]) != string(wantChecksum) {
		return nil, fmt.Errorf("directory cache blob checksum mismatch, refusing to load")
	}

	encoded, err := compress.Decompress(compressed, tag, int(uncompressedLen))
	if err != nil {
		return nil, fmt.Errorf("decompressing directory cache blob: %w", err)
	}

	var header blobHeader
	if err := codec.Unmarshal(encoded, &header); err != nil {
		return nil, fmt.Errorf("decoding directory cache blob: %w", err)
	}
	if header.Magic != blobMagic {
		return nil, fmt.Errorf("directory cache blob has wrong magic %q", header.Magic)
	}
	if header.Version != blobVersion {
		return nil, fmt.Errorf("directory cache blob has unsupported version %d", header.Version)
	}

	cache := New(cfg)
	for i := len(header.Entries) - 1; i >= 0; i-- {
		e := header.Entries[i]
		cache.Put(e.Snapshot, timeFromUnixNano(e.SourceMtime))
	}
	return cache, nil
}

func appendUint64(b []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		b = append(b, byte(v>>(56-8*i)))
	}
	return b
}

func readUint64(b []byte) (uint64, []byte) {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v, b[8:]
}

func timeFromUnixNano(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}
