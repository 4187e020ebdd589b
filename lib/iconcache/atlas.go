// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package iconcache

import "github.com/arborfs/arbor/lib/fsmodel"

// commonExtensions lists the extensions frequent enough in a typical
// file tree to warrant a permanent atlas slot instead of competing
// for LRU space with everything else.
var commonExtensions = []string{
	"txt", "pdf", "jpg", "png", "mp4", "mp3", "zip", "doc", "docx", "go",
}

// BuildDefaultAtlas returns the pre-populated set of icons exempt
// from eviction: the directory and generic-file placeholders plus one
// solid-color stand-in per entry in commonExtensions. Real deployments
// replace these with actual decoded icon assets at startup; the
// solid colors here exist so the cache has a complete, renderable
// atlas with no I/O dependency.
func BuildDefaultAtlas() map[fsmodel.IconKey]Texture {
	atlas := map[fsmodel.IconKey]Texture{
		{Kind: fsmodel.IconKeyDirectory}:   solidTexture(IconSize, IconSize, 200, 180, 100, 255),
		{Kind: fsmodel.IconKeyGenericFile}: solidTexture(IconSize, IconSize, 180, 180, 180, 255),
	}
	for i, ext := range commonExtensions {
		shade := byte(64 + (i*16)%160)
		key := fsmodel.IconKey{Kind: fsmodel.IconKeyExtension, Value: ext}
		atlas[key] = solidTexture(IconSize, IconSize, shade, shade, 220, 255)
	}
	return atlas
}
