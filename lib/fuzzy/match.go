// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package fuzzy

import (
	"sort"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Result is one match outcome: a score (zero or less means "no
// match"; higher is better) and the ascending, deduplicated byte
// offsets in text that the pattern matched.
type Result struct {
	Score     int
	Positions []int
}

// Slab is the scratch buffer FuzzyMatchV2 uses to avoid per-call
// allocation. Type alias so consumers don't need to import
// fzf's util package directly.
type Slab = util.Slab

// NewSlab allocates a Slab. Callers that match many names against the
// same pattern (e.g. lib/searchindex re-scoring a whole directory)
// should allocate one and reuse it across calls; a Slab is not safe
// for concurrent use.
func NewSlab() *Slab {
	return util.MakeSlab(100*1024, 2048)
}

// fzf's bonus/char-class tables are populated lazily by algo.Init;
// without this call they stay zero-valued and case folding silently
// never happens.
func init() {
	algo.Init("default")
}

// Match scores text against pattern. An empty pattern always scores
// zero with no positions — callers treat that as "unranked, include
// everything" rather than "no match". slab may be nil, in which case
// Match allocates its own scratch space for this call.
func Match(text string, pattern []rune, slab *Slab) Result {
	if len(pattern) == 0 {
		return Result{}
	}
	if slab == nil {
		slab = NewSlab()
	}

	runes := []rune(text)
	chars := util.RunesToChars(runes)
	// With caseSensitive=false fzf lowercases only the text, so the
	// pattern is lowercased here to keep matching case-insensitive.
	folded := make([]rune, len(pattern))
	for i, r := range pattern {
		folded[i] = unicode.ToLower(r)
	}
	// normalize=false: pattern characters are matched literally, so
	// callers don't also have to pre-normalize the pattern (fzf
	// requires the pattern already be normalized when normalize=true).
	matched, positions := algo.FuzzyMatchV2(false, false, true, &chars, folded, true, slab)

	if matched.Score <= 0 {
		return Result{}
	}

	result := Result{Score: int(matched.Score)}
	if positions != nil {
		offsets := runeByteOffsets(runes)
		result.Positions = make([]int, len(*positions))
		for i, p := range *positions {
			result.Positions[i] = offsets[p]
		}
		sort.Ints(result.Positions)
	}
	return result
}

// runeByteOffsets returns, for each rune index, that rune's starting
// byte offset within the string the runes were decoded from. fzf's
// matcher reports positions in rune indices; names containing
// multi-byte UTF-8 characters need this to publish a valid byte
// offset.
func runeByteOffsets(runes []rune) []int {
	offsets := make([]int, len(runes))
	offset := 0
	for i, r := range runes {
		offsets[i] = offset
		offset += len(string(r))
	}
	return offsets
}
