// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package volumeindex

// FakeJournal is an in-memory stand-in for a real platform change
// journal (NTFS USN journal or equivalent), used in tests to exercise
// Index.Apply without any platform dependency. Records queue in
// emission order; Replay hands them to an Index one at a time, the way
// a real restart would replay the journal from the last checkpoint.
type FakeJournal struct {
	records []JournalRecord
}

// NewFakeJournal returns an empty FakeJournal.
func NewFakeJournal() *FakeJournal {
	return &FakeJournal{}
}

// Emit appends a record to the journal.
func (j *FakeJournal) Emit(record JournalRecord) {
	j.records = append(j.records, record)
}

// Records returns every emitted record in order.
func (j *FakeJournal) Records() []JournalRecord {
	return j.records
}

// Replay applies every queued record to idx in order, the way a
// restart reconstructs index state from a journal checkpoint.
func (j *FakeJournal) Replay(idx *Index) {
	for _, record := range j.records {
		idx.Apply(record)
	}
}
