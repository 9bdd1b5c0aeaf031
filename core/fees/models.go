package fees

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pratikpatil/academy-fees/core"
)

// FeeStatus is a pure function of (installment count, totalPaid, totalFee);
// it is stored for querying convenience but always recomputed on reads.
type FeeStatus string

const (
	StatusNoFees        FeeStatus = "no_fees"
	StatusPending       FeeStatus = "pending"
	StatusPartiallyPaid FeeStatus = "partially_paid"
	StatusPaid          FeeStatus = "paid"
)

type PaymentMode string

const (
	ModeCash         PaymentMode = "cash"
	ModeOnline       PaymentMode = "online"
	ModeUPI          PaymentMode = "upi"
	ModeCard         PaymentMode = "card"
	ModeBankTransfer PaymentMode = "bank_transfer"
)

var PaymentModes = []PaymentMode{ModeCash, ModeOnline, ModeUPI, ModeCard, ModeBankTransfer}

func ValidPaymentMode(mode PaymentMode) bool {
	for _, m := range PaymentModes {
		if m == mode {
			return true
		}
	}
	return false
}

// All amounts are whole rupees.

// FeeStructure is the administrator-defined default total fee for a
// (standard, academic year) pair. Payments never mutate it; a ledger
// snapshots its TotalFee at first-payment time.
type FeeStructure struct {
	Standard     string    `json:"standard" db:"standard"`
	AcademicYear string    `json:"academic_year" db:"academic_year"`
	TotalFee     int64     `json:"total_fee" db:"total_fee"`
	Description  string    `json:"description" db:"description"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Ledger is the per-student fee aggregate. TotalPaid, RemainingAmount and
// Status are derived from the installments; the stored copies exist for
// querying and must never drift from the recomputed values.
type Ledger struct {
	StudentID       string    `json:"student_id" db:"student_id"`
	TotalFee        int64     `json:"total_fee" db:"total_fee"`
	TotalPaid       int64     `json:"total_paid" db:"total_paid"`
	RemainingAmount int64     `json:"remaining_amount" db:"remaining_amount"`
	Status          FeeStatus `json:"fee_status" db:"status"`
	ReceiptNumber   string    `json:"receipt_number" db:"receipt_number"` // account-level, set once
	ReceiptDate     time.Time `json:"receipt_date" db:"receipt_date"`     // latest installment time, UTC
	CreatedAt       time.Time `json:"created_at" db:"created_at"`         // UTC
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`         // UTC
}

// Installment is one discrete payment event. Append-only: corrections are
// new installments with explanatory remarks, never updates.
type Installment struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	StudentID     string      `json:"student_id" db:"student_id"`
	PaymentNumber int         `json:"payment_number" db:"payment_number"`
	Amount        int64       `json:"amount" db:"amount"`
	Mode          PaymentMode `json:"payment_mode" db:"mode"`
	TransactionID string      `json:"transaction_id" db:"transaction_id"`
	Remarks       string      `json:"remarks" db:"remarks"`
	PaidAt        time.Time   `json:"payment_date" db:"paid_at"`         // UTC
	ReceiptNumber string      `json:"receipt_number" db:"receipt_number"` // globally unique, immutable
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`        // UTC
}

// LedgerView is the read projection: the aggregate plus its installments
// ordered by payment number, with derived fields recomputed from the
// installments rather than trusted from the stored row.
type LedgerView struct {
	Ledger
	Installments []Installment `json:"installments"`
}

// DeriveStatus computes the fee status from the ledger's fundamentals.
func DeriveStatus(installmentCount int, totalFee, totalPaid int64) FeeStatus {
	switch {
	case installmentCount == 0:
		return StatusNoFees
	case totalFee > 0 && totalPaid >= totalFee:
		return StatusPaid
	case totalPaid > 0:
		return StatusPartiallyPaid
	default:
		return StatusPending
	}
}

// Recompute rebuilds the ledger's derived fields from its installments.
func (led Ledger) Recompute(installments []Installment) Ledger {
	var paid int64
	var latest time.Time
	for _, inst := range installments {
		paid += inst.Amount
		if inst.PaidAt.After(latest) {
			latest = inst.PaidAt
		}
	}
	led.TotalPaid = paid
	led.RemainingAmount = led.TotalFee - paid
	if led.RemainingAmount < 0 {
		led.RemainingAmount = 0
	}
	led.Status = DeriveStatus(len(installments), led.TotalFee, paid)
	if !latest.IsZero() {
		led.ReceiptDate = latest
	}
	return led
}

// AcademicYearOf returns the academic-year label for a date, e.g.
// "2025-2026" for any date from Jun 2025 through May 2026.
func AcademicYearOf(t time.Time) string {
	year := t.Year()
	if t.Month() < time.June {
		year--
	}
	return fmt.Sprintf("%d-%d", year, year+1)
}

// Receipt number formats over the global sequence. Installment receipts and
// the account-level ledger receipt share the sequence but not the prefix.
func FormatInstallmentReceipt(n int64) string { return fmt.Sprintf("RCT%06d", n) }
func FormatLedgerReceipt(n int64) string      { return fmt.Sprintf("FEE%06d", n) }

// NewFeeStructure contains information needed to create or replace a FeeStructure.
type NewFeeStructure struct {
	Standard     string `json:"standard" validate:"required,max=20"`
	AcademicYear string `json:"academic_year" validate:"required,academicyear"`
	TotalFee     int64  `json:"total_fee" validate:"required,gt=0"`
	Description  string `json:"description" validate:"max=500"`
}

func (nfs *NewFeeStructure) Validate() error {
	nfs.Standard = core.CleanString(nfs.Standard)
	nfs.AcademicYear = core.CleanString(nfs.AcademicYear)
	nfs.Description = core.CleanString(nfs.Description)
	return core.Validate.Struct(nfs)
}

// NewPayment contains information needed to record one installment.
type NewPayment struct {
	StudentID     string      `json:"-"`
	Amount        int64       `json:"amount" validate:"required,gt=0"`
	Mode          PaymentMode `json:"payment_mode" validate:"required,paymentmode"`
	TransactionID string      `json:"transaction_id" validate:"max=100"`
	Remarks       string      `json:"remarks" validate:"max=500"`

	// TotalFeeOverride seeds the ledger's total fee on the very first
	// installment; the override may legitimately differ from any fee
	// structure (scholarships, discounts). Ignored on later installments.
	TotalFeeOverride *int64 `json:"total_fee_override" validate:"omitempty,gt=0"`

	// PaidAt defaults to commit time when zero.
	PaidAt time.Time `json:"-"`
}

func (np *NewPayment) Validate() error {
	np.TransactionID = core.CleanString(np.TransactionID)
	np.Remarks = core.CleanString(np.Remarks)
	return core.Validate.Struct(np)
}

// PaymentResult is what RecordPayment hands back: the committed installment,
// the refreshed ledger view and the receipt-email outcome. EmailSent=false on
// an otherwise successful result means the notifier failed; the payment stands.
type PaymentResult struct {
	Installment Installment `json:"installment"`
	Ledger      LedgerView  `json:"ledger"`
	EmailSent   bool        `json:"email_sent"`
}

// ReceiptDelivery is the per-installment outcome of a bulk receipt resend.
type ReceiptDelivery struct {
	InstallmentID uuid.UUID `json:"installment_id"`
	ReceiptNumber string    `json:"receipt_number"`
	Sent          bool      `json:"sent"`
	Error         string    `json:"error,omitempty"`
}
