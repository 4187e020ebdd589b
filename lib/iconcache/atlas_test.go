// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package iconcache

import (
	"testing"

	"github.com/arborfs/arbor/lib/fsmodel"
)

func TestBuildDefaultAtlasIncludesDirectoryAndGeneric(t *testing.T) {
	atlas := BuildDefaultAtlas()

	if _, ok := atlas[fsmodel.IconKey{Kind: fsmodel.IconKeyDirectory}]; !ok {
		t.Error("atlas missing directory icon")
	}
	if _, ok := atlas[fsmodel.IconKey{Kind: fsmodel.IconKeyGenericFile}]; !ok {
		t.Error("atlas missing generic file icon")
	}
}

func TestBuildDefaultAtlasCoversCommonExtensions(t *testing.T) {
	atlas := BuildDefaultAtlas()
	for _, ext := range commonExtensions {
		key := fsmodel.IconKey{Kind: fsmodel.IconKeyExtension, Value: ext}
		if _, ok := atlas[key]; !ok {
			t.Errorf("atlas missing extension %q", ext)
		}
	}
}
