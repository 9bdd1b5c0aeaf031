package student

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("student not found")

// Student is the slice of the portal's student record the fee core needs.
// The surrounding portal owns the full record; this core only reads it.
type Student struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Standard string `json:"standard" db:"standard"`
	Email    string `json:"email" db:"email"`
}

func (s Student) HasContactEmail() bool {
	return s.Email != ""
}

// Directory looks students up in the portal's records.
type Directory interface {
	GetStudent(ctx context.Context, id string) (Student, error)
}
