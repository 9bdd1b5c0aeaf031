package dummydb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pratikpatil/academy-fees/core/fees"
	"github.com/pratikpatil/academy-fees/core/student"
)

type (
	DB struct {
		fees       *feesTable
		structures *structureTable
		students   *studentTable
		sequences  *sequenceTable
	}

	feesTable struct {
		sync.RWMutex
		ledgers      map[string]*fees.Ledger
		installments map[string][]fees.Installment
		byID         map[uuid.UUID]fees.Installment

		// one commit lock per student; commits for different students
		// never contend
		commitMu map[string]*sync.Mutex
	}

	structureTable struct {
		sync.RWMutex
		table map[structureKey]*fees.FeeStructure
	}

	structureKey struct {
		standard     string
		academicYear string
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	sequenceTable struct {
		sync.Mutex
		counters map[string]int64
	}
)

func Open() (*DB, error) {
	db := &DB{
		fees: &feesTable{
			ledgers:      make(map[string]*fees.Ledger),
			installments: make(map[string][]fees.Installment),
			byID:         make(map[uuid.UUID]fees.Installment),
			commitMu:     make(map[string]*sync.Mutex),
		},
		structures: &structureTable{table: make(map[structureKey]*fees.FeeStructure)},
		students:   &studentTable{table: make(map[string]*student.Student)},
		sequences:  &sequenceTable{counters: make(map[string]int64)},
	}
	return db, nil
}

func (t *feesTable) studentLock(studentID string) *sync.Mutex {
	t.Lock()
	defer t.Unlock()

	mu, ok := t.commitMu[studentID]
	if !ok {
		mu = &sync.Mutex{}
		t.commitMu[studentID] = mu
	}
	return mu
}
