// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package volumeindex

import (
	"fmt"
	"time"

	"github.com/zeebo/blake3"

	"github.com/arborfs/arbor/lib/codec"
	"github.com/arborfs/arbor/lib/compress"
)

const (
	blobMagic   = "ARVI" // Arbor volume index
	blobVersion = 1
)

type blobRecord struct {
	ID       FileID `cbor:"1,keyasint"`
	ParentID FileID `cbor:"2,keyasint"`
	Name     string `cbor:"3,keyasint"`
	IsDir    bool   `cbor:"4,keyasint"`
	Size     uint64 `cbor:"5,keyasint"`
	Modified int64  `cbor:"6,keyasint"` // unix nanos
}

type blobHeader struct {
	Magic   string       `cbor:"1,keyasint"`
	Version int          `cbor:"2,keyasint"`
	Records []blobRecord `cbor:"3,keyasint"`
}

// Persist encodes the index as a CBOR-then-LZ4-compressed blob with a
// BLAKE3 checksum trailer, suitable for a warm restart. LZ4 trades
// ratio for speed since a volume index may be re-persisted often as
// the journal is consumed, unlike the directory cache's
// once-per-shutdown snapshot.
func (idx *Index) Persist() ([]byte, error) {
	idx.mu.RLock()
	records := make([]blobRecord, 0, len(idx.records))
	for id, r := range idx.records {
		records = append(records, blobRecord{
			ID:       id,
			ParentID: r.ParentID,
			Name:     r.Name,
			IsDir:    r.IsDir,
			Size:     r.Size,
			Modified: r.Modified.UnixNano(),
		})
	}
	idx.mu.RUnlock()

	inner := blobHeader{Magic: blobMagic, Version: blobVersion, Records: records}
	encoded, err := codec.Marshal(inner)
	if err != nil {
		return nil, fmt.Errorf("encoding volume index blob: %w", err)
	}

	tag := compress.TagLZ4
	compressed, err := compress.Compress(encoded, tag)
	if compress.IsIncompressible(err) {
		tag, compressed = compress.TagNone, encoded
	} else if err != nil {
		return nil, fmt.Errorf("compressing volume index blob: %w", err)
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

// Load decodes a blob produced by Persist into a fresh Index. The
// blob is rejected wholesale — never partially applied — if the
// checksum doesn't match or decoding fails at any point.
func Load(blob []byte) (*Index, error) {
	if len(blob) < 1+8+32 {
		return nil, fmt.Errorf("volume index blob too short: %d bytes", len(blob))
	}

	tag := compress.Tag(blob[0])
	uncompressedLen, rest := readUint64(blob[1:])
	checksumStart := len(rest) - 32
	if checksumStart < 0 {
		return nil, fmt.Errorf("volume index blob too short: %d bytes", len(blob))
	}
	compressed, wantChecksum := rest[:checksumStart], rest[checksumStart:]

	gotChecksum := blake3.Sum256(compressed)
	if string(gotChecksum[:]) != string(wantChecksum) {
		return nil, fmt.Errorf("volume index blob checksum mismatch, refusing to load")
	}

	encoded, err := compress.Decompress(compressed, tag, int(uncompressedLen))
	if err != nil {
		return nil, fmt.Errorf("decompressing volume index blob: %w", err)
	}

	var header blobHeader
	if err := codec.Unmarshal(encoded, &header); err != nil {
		return nil, fmt.Errorf("decoding volume index blob: %w", err)
	}
	if header.Magic != blobMagic {
		return nil, fmt.Errorf("volume index blob has wrong magic %q", header.Magic)
	}
	if header.Version != blobVersion {
		return nil, fmt.Errorf("volume index blob has unsupported version %d", header.Version)
	}

	idx := New()
	for _, r := range header.Records {
		idx.records[r.ID] = Record{
			ParentID: r.ParentID,
			Name:     r.Name,
			IsDir:    r.IsDir,
			Size:     r.Size,
			Modified: timeFromUnixNano(r.Modified),
		}
	}
	return idx, nil
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
