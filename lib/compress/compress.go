// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress provides the compression used for arbor's
// persisted blobs: the directory cache warm-start snapshot and the
// whole-volume journal index. Both are append-then-replace binary
// blobs, not streaming protocols, so compression operates on whole
// buffers rather than a streaming codec.
package compress

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Tag identifies which algorithm compressed a blob. Stored in the
// blob's header so Load can pick the matching decompressor without
// guessing.
type Tag uint8

const (
	// TagNone marks uncompressed data.
	TagNone Tag = 0

	// TagLZ4 marks block-mode LZ4: fast, modest ratio. Default for
	// the volume index, which may be re-persisted often.
	TagLZ4 Tag = 1

	// TagZstd marks zstd at the default speed level: slower, better
	// ratio. Used for the warm-start cache blob, which is written
	// once per shutdown and read once per startup.
	TagZstd Tag = 2
)

// String returns the tag's on-disk name.
func (tag Tag) String() string {
	switch tag {
	case TagNone:
		return "none"
	case TagLZ4:
		return "lz4"
	case TagZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// errIncompressible signals that compression produced output no
// smaller than the input; callers should store the data uncompressed.
var errIncompressible = fmt.Errorf("compress: data is incompressible")

// IsIncompressible reports whether err came from a failed attempt to
// shrink already-dense data.
func IsIncompressible(err error) bool {
	return err == errIncompressible
}

// zstdEncoder and zstdDecoder are reused across calls; both types are
// safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress compresses data with the algorithm named by tag.
// TagNone returns data unchanged.
func Compress(data []byte, tag Tag) ([]byte, error) {
	switch tag {
	case TagNone:
		return data, nil
	case TagLZ4:
		return compressLZ4(data)
	case TagZstd:
		return compressZstd(data)
	default:
		return nil, fmt.Errorf("compress: unsupported tag %d", tag)
	}
}

// Decompress reverses Compress. uncompressedSize must be the exact
// length of the original data; a mismatch is treated as corruption
// and returned as an error rather than silently truncated or padded.
func Decompress(compressed []byte, tag Tag, uncompressedSize int) ([]byte, error) {
	switch tag {
	case TagNone:
		if len(compressed) != uncompressedSize {
			return nil, fmt.Errorf("compress: uncompressed blob has %d bytes, expected %d",
				len(compressed), uncompressedSize)
		}
		return compressed, nil
	case TagLZ4:
		return decompressLZ4(compressed, uncompressedSize)
	case TagZstd:
		return decompressZstd(compressed, uncompressedSize)
	default:
		return nil, fmt.Errorf("compress: unsupported tag %d", tag)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(data))
	destination := make([]byte, bound)

	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("compress: lz4: %w", err)
	}
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("compress: lz4: %w", err)
	}
	if read != uncompressedSize {
		return nil, fmt.Errorf("compress: lz4: got %d bytes, expected %d", read, uncompressedSize)
	}
	return destination, nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, uncompressedSize int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("compress: zstd: %w", err)
	}
	if len(result) != uncompressedSize {
		return nil, fmt.Errorf("compress: zstd: got %d bytes, expected %d", len(result), uncompressedSize)
	}
	return result, nil
}
