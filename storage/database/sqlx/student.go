package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pratikpatil/academy-fees/core/student"
)

type studentDirectory struct {
	db *sqlx.DB
}

var _ student.Directory = (*studentDirectory)(nil) // interface compliance check

func NewStudentDirectory(db *sqlx.DB) student.Directory {
	return &studentDirectory{db: db}
}

// GetStudent reads the slice of the portal-owned students table the fee core
// needs. This directory never writes.
func (dir *studentDirectory) GetStudent(ctx context.Context, id string) (student.Student, error) {
	var stu student.Student
	err := dir.db.GetContext(ctx, &stu,
		`SELECT id, name, standard, COALESCE(email, '') AS email FROM students WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return student.Student{}, student.ErrNotFound
	}
	if err != nil {
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	return stu, nil
}
