// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package iconcache

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// IconSize is the fixed square dimension icons are resized to before
// caching. Every decoded Texture is IconSize x IconSize regardless of
// the source image's aspect ratio, so the viewport can lay out a grid
// without per-icon size bookkeeping.
const IconSize = 32

// Decode reads an encoded image (PNG, JPEG, GIF) from data, fits it
// within an IconSize x IconSize square preserving aspect ratio, and
// swizzles its channels from RGBA to BGRA for the target raster.
func Decode(data []byte) (Texture, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Texture{}, fmt.Errorf("iconcache: decoding image: %w", err)
	}

	fitted := imaging.Fit(img, IconSize, IconSize, imaging.Lanczos)
	canvas := imaging.New(IconSize, IconSize, image.Transparent)
	canvas = imaging.PasteCenter(canvas, fitted)

	pixels := swizzleRGBAToBGRA(canvas.Pix)
	return Texture{Width: IconSize, Height: IconSize, Pixels: pixels}, nil
}

// swizzleRGBAToBGRA reorders each pixel's channels from (r,g,b,a) to
// (b,g,r,a), preserving alpha, because the target raster consumes
// BGRA. Operates on a fresh copy; it never mutates src in place.
func swizzleRGBAToBGRA(src []byte) []byte {
	out := make([]byte, len(src))
	for i := 0; i+3 < len(src); i += 4 {
		r, g, b, a := src[i], src[i+1], src[i+2], src[i+3]
		out[i], out[i+1], out[i+2], out[i+3] = b, g, r, a
	}
	return out
}
