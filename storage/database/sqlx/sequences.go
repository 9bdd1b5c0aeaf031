package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pratikpatil/academy-fees/core/fees"
)

type sequences struct {
	db *sqlx.DB
}

var _ fees.Sequences = (*sequences)(nil) // interface compliance check

func NewSequences(db *sqlx.DB) fees.Sequences {
	return &sequences{db: db}
}

// Next draws from a native Postgres sequence: nextval is not transactional,
// so a value issued to a commit that later aborts stays consumed. Gaps are
// acceptable; duplicates are not.
func (s *sequences) Next(ctx context.Context, scope string) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT nextval($1::regclass)`, scope); err != nil {
		return 0, errors.Wrapf(err, "allocating %s value", scope)
	}
	return n, nil
}
