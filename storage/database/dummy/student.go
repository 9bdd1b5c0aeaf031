package dummydb

import (
	"context"

	"github.com/pratikpatil/academy-fees/core/student"
)

type studentDirectory struct {
	db *studentTable
}

var _ student.Directory = (*studentDirectory)(nil) // interface compliance check

func NewStudentDirectory(db *DB) *studentDirectory {
	return &studentDirectory{db: db.students}
}

func (dir *studentDirectory) GetStudent(ctx context.Context, id string) (student.Student, error) {
	dir.db.RLock()
	defer dir.db.RUnlock()

	if stu, ok := dir.db.table[id]; ok {
		return *stu, nil
	}
	return student.Student{}, student.ErrNotFound
}

// AddStudent registers a student record; used by dev seeding and tests.
func (dir *studentDirectory) AddStudent(stu student.Student) {
	dir.db.Lock()
	defer dir.db.Unlock()

	dir.db.table[stu.ID] = &stu
}
