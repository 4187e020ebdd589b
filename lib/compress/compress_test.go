// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package compress

import (
	"bytes"
	"strings"
	"testing"
)

func repeatedText() []byte {
	return bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog\n"), 200)
}

func TestCompressDecompressRoundtrip(t *testing.T) {
	for _, tag := range []Tag{TagNone, TagLZ4, TagZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			original := repeatedText()

			compressed, err := Compress(original, tag)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}

			decompressed, err := Decompress(compressed, tag, len(original))
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}

			if !bytes.Equal(decompressed, original) {
				t.Error("roundtrip did not reproduce the original bytes")
			}
		})
	}
}

func TestCompressShrinksRepetitiveData(t *testing.T) {
	original := repeatedText()

	for _, tag := range []Tag{TagLZ4, TagZstd} {
		compressed, err := Compress(original, tag)
		if err != nil {
			t.Fatalf("%s: Compress: %v", tag, err)
		}
		if len(compressed) >= len(original) {
			t.Errorf("%s: compressed size %d did not shrink below original %d",
				tag, len(compressed), len(original))
		}
	}
}

func TestDecompressSizeMismatch(t *testing.T) {
	original := repeatedText()

	for _, tag := range []Tag{TagLZ4, TagZstd} {
		compressed, err := Compress(original, tag)
		if err != nil {
			t.Fatalf("%s: Compress: %v", tag, err)
		}
		if _, err := Decompress(compressed, tag, len(original)+1); err == nil {
			t.Errorf("%s: expected error on size mismatch, got nil", tag)
		}
	}
}

func TestIsIncompressible(t *testing.T) {
	// Already-random-looking data of varying bytes compresses poorly;
	// force the path by compressing an already-compressed buffer.
	original := repeatedText()
	compressed, err := Compress(original, TagZstd)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	_, err = Compress(compressed, TagZstd)
	if err != nil && !IsIncompressible(err) {
		t.Errorf("expected incompressible error or success, got %v", err)
	}
}

func TestTagString(t *testing.T) {
	if TagNone.String() != "none" {
		t.Errorf("TagNone.String() = %q", TagNone.String())
	}
	if !strings.Contains(Tag(99).String(), "unknown") {
		t.Errorf("unknown tag String() = %q, want to contain \"unknown\"", Tag(99).String())
	}
}
