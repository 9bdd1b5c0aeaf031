package fees

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/pratikpatil/academy-fees/core"
	"github.com/pratikpatil/academy-fees/core/student"
)

var (
	// errors
	ErrLedgerNotFound      = errors.New("fee ledger not found")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrStructureNotFound   = errors.New("fee structure not found")
	ErrEmailRequired       = errors.New("student has no contact email on record; add one before recording a payment")
	ErrTotalFeeRequired    = errors.New("no fee structure matches this student; a total fee is required for the first payment")
	ErrAlreadyPaid         = errors.New("fees are fully paid; no further payment is accepted")
	ErrConflict            = errors.New("payment could not be recorded due to concurrent updates; please retry")

	// ErrConflictRetry is returned by a Repository when a commit lost a
	// serialization race. The engine retries transparently; it never
	// reaches callers.
	ErrConflictRetry = errors.New("concurrent commit conflict")

	nowFunc = time.Now // mockable

	commitAttempts = 3
)

// AmountExceedsRemainingError rejects a payment that would push the total
// paid past the total fee. Remaining carries the freshly computed remaining
// amount so callers can render an actionable message.
type AmountExceedsRemainingError struct {
	Amount    int64
	Remaining int64
}

func (e *AmountExceedsRemainingError) Error() string {
	return fmt.Sprintf("amount %d exceeds the remaining amount %d", e.Amount, e.Remaining)
}

const (
	// ScopeReceipts is the global receipt-number sequence. Values are never
	// reused once issued, even when the surrounding commit aborts; gaps are
	// acceptable, duplicates are not.
	ScopeReceipts = "receipt_numbers"
)

type (
	// DecideFunc runs inside the store's per-student critical section against
	// freshly read state. It returns the ledger and installment to persist,
	// or an error to abort the commit with nothing applied.
	DecideFunc func(led Ledger, found bool, installments []Installment) (Ledger, Installment, error)

	Repository interface {
		GetStructure(ctx context.Context, standard, academicYear string) (FeeStructure, error)
		UpsertStructure(ctx context.Context, fs FeeStructure) (FeeStructure, error)
		QueryStructures(ctx context.Context) ([]FeeStructure, error)

		GetLedger(ctx context.Context, studentID string) (Ledger, error)
		GetInstallment(ctx context.Context, id uuid.UUID) (Installment, error)
		QueryInstallments(ctx context.Context, studentID string) ([]Installment, error)

		// RecordPayment atomically applies decide's outcome for one student:
		// either the installment exists with a consistent ledger, or neither
		// does. Implementations serialize commits per student (different
		// students never contend) and report lost races as ErrConflictRetry.
		RecordPayment(ctx context.Context, studentID string, decide DecideFunc) (Ledger, Installment, error)
	}

	// Sequences issues strictly increasing, never-reused numbers per scope,
	// safe under arbitrary concurrency across all callers.
	Sequences interface {
		Next(ctx context.Context, scope string) (int64, error)
	}

	Service struct {
		repo      Repository
		seq       Sequences
		directory student.Directory
		mailSvc   core.EmailService
		logger    core.Logger
	}
)

func NewService(repo Repository, seq Sequences, dir student.Directory, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:      repo,
		seq:       seq,
		directory: dir,
		mailSvc:   mailSvc,
		logger:    logger,
	}
}

// Fee Structure Catalog

func (svc *Service) GetStructure(ctx context.Context, standard, academicYear string) (FeeStructure, error) {
	return svc.repo.GetStructure(ctx, core.CleanString(standard), core.CleanString(academicYear))
}

func (svc *Service) QueryStructures(ctx context.Context) ([]FeeStructure, error) {
	return svc.repo.QueryStructures(ctx)
}

// UpsertStructure creates or replaces the structure for its
// (standard, academic year) pair. Existing ledgers are untouched.
func (svc *Service) UpsertStructure(ctx context.Context, nfs NewFeeStructure) (FeeStructure, error) {
	now := nowFunc().UTC()
	fs := FeeStructure{
		Standard:     nfs.Standard,
		AcademicYear: nfs.AcademicYear,
		TotalFee:     nfs.TotalFee,
		Description:  nfs.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.UpsertStructure(ctx, fs)
}

// Ledger read path

// GetLedger returns the ledger plus installments ordered by payment number.
// Derived fields are recomputed from the installments, never trusted from
// the stored row.
func (svc *Service) GetLedger(ctx context.Context, studentID string) (LedgerView, error) {
	led, err := svc.repo.GetLedger(ctx, studentID)
	if err != nil {
		return LedgerView{}, err
	}
	installments, err := svc.repo.QueryInstallments(ctx, studentID)
	if err != nil {
		return LedgerView{}, err
	}
	return LedgerView{Ledger: led.Recompute(installments), Installments: installments}, nil
}

// Payment Engine

// RecordPayment validates and commits one installment for a student, then
// best-effort sends the receipt email. A failed email never fails or rolls
// back the payment; it surfaces as EmailSent=false.
func (svc *Service) RecordPayment(ctx context.Context, np NewPayment) (PaymentResult, error) {
	stu, err := svc.directory.GetStudent(ctx, np.StudentID)
	if err != nil {
		return PaymentResult{}, err
	}
	if !stu.HasContactEmail() {
		return PaymentResult{}, ErrEmailRequired
	}

	// The email gate deliberately comes before argument validation: a missing
	// contact email hard-blocks payment regardless of other argument validity.
	if err := np.Validate(); err != nil {
		return PaymentResult{}, err
	}

	paidAt := np.PaidAt
	if paidAt.IsZero() {
		paidAt = nowFunc()
	}
	paidAt = paidAt.UTC()

	// The structure is a read-only catalog; reading it outside the critical
	// section is safe. Only consulted if this turns out to be the first
	// installment and no override was given.
	var structureFee *int64
	if np.TotalFeeOverride == nil {
		fs, err := svc.repo.GetStructure(ctx, stu.Standard, AcademicYearOf(paidAt))
		if err == nil {
			structureFee = &fs.TotalFee
		} else if err != ErrStructureNotFound {
			return PaymentResult{}, err
		}
	}

	var (
		led  Ledger
		inst Installment
	)
	for attempt := 1; ; attempt++ {
		led, inst, err = svc.repo.RecordPayment(ctx, np.StudentID, svc.decidePayment(ctx, np, paidAt, structureFee))
		if err == ErrConflictRetry {
			if attempt < commitAttempts {
				continue
			}
			svc.logger.Warn("fees: commit conflict not resolved", map[string]interface{}{
				"student_id": np.StudentID,
				"attempts":   attempt,
			})
			return PaymentResult{}, ErrConflict
		}
		break
	}
	if err != nil {
		return PaymentResult{}, err
	}

	installments, err := svc.repo.QueryInstallments(ctx, np.StudentID)
	if err != nil {
		return PaymentResult{}, err
	}
	view := LedgerView{Ledger: led.Recompute(installments), Installments: installments}

	// Post-commit, outside the transaction boundary: a lost notification
	// must never cause a lost or duplicated payment.
	emailSent := true
	if err := svc.sendReceipt(stu, inst, view.Ledger); err != nil {
		svc.logger.Warn("fees: receipt email failed", map[string]interface{}{
			"student_id":     np.StudentID,
			"receipt_number": inst.ReceiptNumber,
			"error":          err.Error(),
		})
		emailSent = false
	}

	return PaymentResult{Installment: inst, Ledger: view, EmailSent: emailSent}, nil
}

// decidePayment holds every business invariant of the commit. It runs inside
// the repository's per-student critical section, against freshly read state.
func (svc *Service) decidePayment(ctx context.Context, np NewPayment, paidAt time.Time, structureFee *int64) DecideFunc {
	return func(led Ledger, found bool, installments []Installment) (Ledger, Installment, error) {
		first := !found || len(installments) == 0

		if first {
			var totalFee int64
			switch {
			case np.TotalFeeOverride != nil:
				totalFee = *np.TotalFeeOverride
			case structureFee != nil:
				totalFee = *structureFee
			default:
				return Ledger{}, Installment{}, ErrTotalFeeRequired
			}

			ledgerReceipt, err := svc.seq.Next(ctx, ScopeReceipts)
			if err != nil {
				return Ledger{}, Installment{}, err
			}
			led = Ledger{
				StudentID:     np.StudentID,
				TotalFee:      totalFee,
				ReceiptNumber: FormatLedgerReceipt(ledgerReceipt),
				CreatedAt:     paidAt,
			}
		}

		current := led.Recompute(installments)
		if !first && current.RemainingAmount == 0 {
			return Ledger{}, Installment{}, ErrAlreadyPaid
		}
		remaining := led.TotalFee
		if !first {
			remaining = current.RemainingAmount
		}
		if np.Amount > remaining {
			return Ledger{}, Installment{}, &AmountExceedsRemainingError{Amount: np.Amount, Remaining: remaining}
		}

		receipt, err := svc.seq.Next(ctx, ScopeReceipts)
		if err != nil {
			return Ledger{}, Installment{}, err
		}
		inst := Installment{
			ID:            uuid.New(),
			StudentID:     np.StudentID,
			PaymentNumber: len(installments) + 1,
			Amount:        np.Amount,
			Mode:          np.Mode,
			TransactionID: np.TransactionID,
			Remarks:       np.Remarks,
			PaidAt:        paidAt,
			ReceiptNumber: FormatInstallmentReceipt(receipt),
			CreatedAt:     nowFunc().UTC(),
		}

		led = led.Recompute(append(installments, inst))
		led.UpdatedAt = inst.CreatedAt
		return led, inst, nil
	}
}

// Receipt resend: thin orchestration over the notifier for committed
// installments. No ledger mutation.

func (svc *Service) ResendReceipt(ctx context.Context, installmentID uuid.UUID) error {
	inst, err := svc.repo.GetInstallment(ctx, installmentID)
	if err != nil {
		return err
	}
	stu, err := svc.directory.GetStudent(ctx, inst.StudentID)
	if err != nil {
		return err
	}
	if !stu.HasContactEmail() {
		return ErrEmailRequired
	}
	led, err := svc.repo.GetLedger(ctx, inst.StudentID)
	if err != nil {
		return err
	}
	installments, err := svc.repo.QueryInstallments(ctx, inst.StudentID)
	if err != nil {
		return err
	}
	return svc.sendReceipt(stu, inst, led.Recompute(installments))
}

// ResendAllReceipts resends every receipt for a student, one outcome per
// installment. Partial success is a valid outcome, not an error.
func (svc *Service) ResendAllReceipts(ctx context.Context, studentID string) ([]ReceiptDelivery, error) {
	stu, err := svc.directory.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !stu.HasContactEmail() {
		return nil, ErrEmailRequired
	}
	led, err := svc.repo.GetLedger(ctx, studentID)
	if err != nil {
		return nil, err
	}
	installments, err := svc.repo.QueryInstallments(ctx, studentID)
	if err != nil {
		return nil, err
	}
	led = led.Recompute(installments)

	deliveries := make([]ReceiptDelivery, 0, len(installments))
	for _, inst := range installments {
		delivery := ReceiptDelivery{InstallmentID: inst.ID, ReceiptNumber: inst.ReceiptNumber, Sent: true}
		if err := svc.sendReceipt(stu, inst, led); err != nil {
			delivery.Sent = false
			delivery.Error = err.Error()
		}
		deliveries = append(deliveries, delivery)
	}
	return deliveries, nil
}

type receiptMailData struct {
	Student     student.Student
	Installment Installment
	Ledger      Ledger
}

func (svc *Service) sendReceipt(stu student.Student, inst Installment, led Ledger) error {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: stu.Name, Address: stu.Email}},
		Subject:      fmt.Sprintf("Payment Receipt %s", inst.ReceiptNumber),
		TemplateName: "payment-receipt",
		TemplateData: receiptMailData{Student: stu, Installment: inst, Ledger: led},
	}
	return svc.mailSvc.SendMessage(msg)
}
