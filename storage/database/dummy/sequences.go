package dummydb

import (
	"context"

	"github.com/pratikpatil/academy-fees/core/fees"
)

type sequences struct {
	db *sequenceTable
}

var _ fees.Sequences = (*sequences)(nil) // interface compliance check

func NewSequences(db *DB) fees.Sequences {
	return &sequences{db: db.sequences}
}

// Next never hands out the same value twice for a scope; values issued to
// commits that later abort stay consumed (gaps over duplicates).
func (s *sequences) Next(ctx context.Context, scope string) (int64, error) {
	s.db.Lock()
	defer s.db.Unlock()

	s.db.counters[scope]++
	return s.db.counters[scope], nil
}
