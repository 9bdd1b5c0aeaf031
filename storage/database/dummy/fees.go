package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/pratikpatil/academy-fees/core/fees"
)

type feesRepository struct {
	db *DB
}

var _ fees.Repository = (*feesRepository)(nil) // interface compliance check

func NewFeesRepository(db *DB) fees.Repository {
	return &feesRepository{db: db}
}

// Fee structures

func (repo *feesRepository) GetStructure(ctx context.Context, standard, academicYear string) (fees.FeeStructure, error) {
	t := repo.db.structures
	t.RLock()
	defer t.RUnlock()

	if fs, ok := t.table[structureKey{standard, academicYear}]; ok {
		return *fs, nil
	}
	return fees.FeeStructure{}, fees.ErrStructureNotFound
}

func (repo *feesRepository) UpsertStructure(ctx context.Context, fs fees.FeeStructure) (fees.FeeStructure, error) {
	t := repo.db.structures
	t.Lock()
	defer t.Unlock()

	key := structureKey{fs.Standard, fs.AcademicYear}
	if prev, ok := t.table[key]; ok {
		fs.CreatedAt = prev.CreatedAt
	}
	t.table[key] = &fs
	return fs, nil
}

func (repo *feesRepository) QueryStructures(ctx context.Context) ([]fees.FeeStructure, error) {
	t := repo.db.structures
	t.RLock()
	defer t.RUnlock()

	structures := make([]fees.FeeStructure, 0, len(t.table))
	for _, fs := range t.table {
		structures = append(structures, *fs)
	}
	sort.Slice(structures, func(i, j int) bool {
		if structures[i].Standard == structures[j].Standard {
			return structures[i].AcademicYear < structures[j].AcademicYear
		}
		return structures[i].Standard < structures[j].Standard
	})
	return structures, nil
}

// Ledgers & installments

func (repo *feesRepository) GetLedger(ctx context.Context, studentID string) (fees.Ledger, error) {
	t := repo.db.fees
	t.RLock()
	defer t.RUnlock()

	if led, ok := t.ledgers[studentID]; ok {
		return *led, nil
	}
	return fees.Ledger{}, fees.ErrLedgerNotFound
}

func (repo *feesRepository) GetInstallment(ctx context.Context, id uuid.UUID) (fees.Installment, error) {
	t := repo.db.fees
	t.RLock()
	defer t.RUnlock()

	if inst, ok := t.byID[id]; ok {
		return inst, nil
	}
	return fees.Installment{}, fees.ErrInstallmentNotFound
}

func (repo *feesRepository) QueryInstallments(ctx context.Context, studentID string) ([]fees.Installment, error) {
	t := repo.db.fees
	t.RLock()
	defer t.RUnlock()

	return t.query(studentID), nil
}

// query returns a copy ordered by payment number; callers own the slice.
func (t *feesTable) query(studentID string) []fees.Installment {
	installments := make([]fees.Installment, len(t.installments[studentID]))
	copy(installments, t.installments[studentID])
	sort.Slice(installments, func(i, j int) bool {
		return installments[i].PaymentNumber < installments[j].PaymentNumber
	})
	return installments
}

func (repo *feesRepository) RecordPayment(ctx context.Context, studentID string, decide fees.DecideFunc) (fees.Ledger, fees.Installment, error) {
	t := repo.db.fees

	mu := t.studentLock(studentID)
	mu.Lock()
	defer mu.Unlock()

	t.RLock()
	var (
		led   fees.Ledger
		found bool
	)
	if l, ok := t.ledgers[studentID]; ok {
		led, found = *l, true
	}
	installments := t.query(studentID)
	t.RUnlock()

	newLed, inst, err := decide(led, found, installments)
	if err != nil {
		return fees.Ledger{}, fees.Installment{}, err
	}

	t.Lock()
	defer t.Unlock()
	t.ledgers[studentID] = &newLed
	t.installments[studentID] = append(t.installments[studentID], inst)
	t.byID[inst.ID] = inst
	return newLed, inst, nil
}
