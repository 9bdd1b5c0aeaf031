package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/pratikpatil/academy-fees/core/fees"
)

type feesRepository struct {
	db *sqlx.DB
}

var _ fees.Repository = (*feesRepository)(nil) // interface compliance check

func NewFeesRepository(db *sqlx.DB) fees.Repository {
	return &feesRepository{db: db}
}

// Fee structures

func (repo *feesRepository) GetStructure(ctx context.Context, standard, academicYear string) (fees.FeeStructure, error) {
	var fs fees.FeeStructure
	err := repo.db.GetContext(ctx, &fs,
		`SELECT standard, academic_year, total_fee, description, created_at, updated_at
		 FROM fee_structures WHERE standard = $1 AND academic_year = $2`,
		standard, academicYear,
	)
	if err == sql.ErrNoRows {
		return fees.FeeStructure{}, fees.ErrStructureNotFound
	}
	if err != nil {
		return fees.FeeStructure{}, errors.Wrap(err, "getting fee structure")
	}
	return fs, nil
}

func (repo *feesRepository) UpsertStructure(ctx context.Context, fs fees.FeeStructure) (fees.FeeStructure, error) {
	err := repo.db.GetContext(ctx, &fs,
		`INSERT INTO fee_structures (standard, academic_year, total_fee, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (standard, academic_year) DO UPDATE
		 SET total_fee = EXCLUDED.total_fee, description = EXCLUDED.description, updated_at = EXCLUDED.updated_at
		 RETURNING standard, academic_year, total_fee, description, created_at, updated_at`,
		fs.Standard, fs.AcademicYear, fs.TotalFee, fs.Description, fs.UpdatedAt,
	)
	if err != nil {
		return fees.FeeStructure{}, errors.Wrap(err, "upserting fee structure")
	}
	return fs, nil
}

func (repo *feesRepository) QueryStructures(ctx context.Context) ([]fees.FeeStructure, error) {
	structures := make([]fees.FeeStructure, 0)
	err := repo.db.SelectContext(ctx, &structures,
		`SELECT standard, academic_year, total_fee, description, created_at, updated_at
		 FROM fee_structures ORDER BY standard, academic_year`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying fee structures")
	}
	return structures, nil
}

// Ledgers & installments

const (
	selectLedger = `SELECT student_id, total_fee, total_paid, remaining_amount, status,
		receipt_number, receipt_date, created_at, updated_at FROM fee_ledgers`

	selectInstallments = `SELECT id, student_id, payment_number, amount, mode,
		transaction_id, remarks, paid_at, receipt_number, created_at FROM installments`
)

func (repo *feesRepository) GetLedger(ctx context.Context, studentID string) (fees.Ledger, error) {
	var led fees.Ledger
	err := repo.db.GetContext(ctx, &led, selectLedger+` WHERE student_id = $1`, studentID)
	if err == sql.ErrNoRows {
		return fees.Ledger{}, fees.ErrLedgerNotFound
	}
	if err != nil {
		return fees.Ledger{}, errors.Wrap(err, "getting fee ledger")
	}
	return led, nil
}

func (repo *feesRepository) GetInstallment(ctx context.Context, id uuid.UUID) (fees.Installment, error) {
	var inst fees.Installment
	err := repo.db.GetContext(ctx, &inst, selectInstallments+` WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return fees.Installment{}, fees.ErrInstallmentNotFound
	}
	if err != nil {
		return fees.Installment{}, errors.Wrap(err, "getting installment")
	}
	return inst, nil
}

func (repo *feesRepository) QueryInstallments(ctx context.Context, studentID string) ([]fees.Installment, error) {
	installments := make([]fees.Installment, 0)
	err := repo.db.SelectContext(ctx, &installments,
		selectInstallments+` WHERE student_id = $1 ORDER BY payment_number`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying installments")
	}
	return installments, nil
}

// RecordPayment runs decide inside a SERIALIZABLE transaction so that two
// concurrent commits for one student cannot both read the same remaining
// amount and both apply. Lost races surface as fees.ErrConflictRetry for the
// engine to retry.
func (repo *feesRepository) RecordPayment(ctx context.Context, studentID string, decide fees.DecideFunc) (fees.Ledger, fees.Installment, error) {
	tx, err := repo.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fees.Ledger{}, fees.Installment{}, errors.Wrap(err, "beginning payment transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var (
		led   fees.Ledger
		found = true
	)
	err = tx.GetContext(ctx, &led, selectLedger+` WHERE student_id = $1`, studentID)
	if err == sql.ErrNoRows {
		found = false
	} else if err != nil {
		return fees.Ledger{}, fees.Installment{}, conflictOr(err, "reading fee ledger")
	}

	installments := make([]fees.Installment, 0)
	if err = tx.SelectContext(ctx, &installments,
		selectInstallments+` WHERE student_id = $1 ORDER BY payment_number`, studentID); err != nil {
		return fees.Ledger{}, fees.Installment{}, conflictOr(err, "reading installments")
	}

	newLed, inst, err := decide(led, found, installments)
	if err != nil {
		return fees.Ledger{}, fees.Installment{}, err // business rejection; nothing applied
	}

	// Ledger first: installments carry a FK to it. total_fee and
	// receipt_number are set once on insert and never updated after.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO fee_ledgers (student_id, total_fee, total_paid, remaining_amount, status,
			receipt_number, receipt_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (student_id) DO UPDATE
		 SET total_paid = EXCLUDED.total_paid, remaining_amount = EXCLUDED.remaining_amount,
			status = EXCLUDED.status, receipt_date = EXCLUDED.receipt_date, updated_at = EXCLUDED.updated_at`,
		newLed.StudentID, newLed.TotalFee, newLed.TotalPaid, newLed.RemainingAmount, newLed.Status,
		newLed.ReceiptNumber, newLed.ReceiptDate, newLed.CreatedAt, newLed.UpdatedAt,
	)
	if err != nil {
		return fees.Ledger{}, fees.Installment{}, conflictOr(err, "writing fee ledger")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO installments (id, student_id, payment_number, amount, mode,
			transaction_id, remarks, paid_at, receipt_number, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		inst.ID, inst.StudentID, inst.PaymentNumber, inst.Amount, inst.Mode,
		inst.TransactionID, inst.Remarks, inst.PaidAt, inst.ReceiptNumber, inst.CreatedAt,
	)
	if err != nil {
		return fees.Ledger{}, fees.Installment{}, conflictOr(err, "inserting installment")
	}

	if err = tx.Commit(); err != nil {
		return fees.Ledger{}, fees.Installment{}, conflictOr(err, "committing payment")
	}
	return newLed, inst, nil
}

// conflictOr maps serialization failures, deadlocks and the unique races on
// (student_id, payment_number) to the engine's retry signal; anything else is
// an infrastructure error.
func conflictOr(err error, msg string) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "40001", "40P01", "23505":
			return fees.ErrConflictRetry
		}
	}
	return errors.Wrap(err, msg)
}
