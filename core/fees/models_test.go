package fees

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		totalFee int64
		paid     int64
		want     FeeStatus
	}{
		{name: "no installments", count: 0, totalFee: 0, paid: 0, want: StatusNoFees},
		{name: "no installments with fee", count: 0, totalFee: 15000, paid: 0, want: StatusNoFees},
		{name: "partial", count: 1, totalFee: 15000, paid: 5000, want: StatusPartiallyPaid},
		{name: "exact", count: 2, totalFee: 15000, paid: 15000, want: StatusPaid},
		{name: "zero paid", count: 1, totalFee: 15000, paid: 0, want: StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.count, tt.totalFee, tt.paid); got != tt.want {
				t.Errorf("DeriveStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAcademicYearOf(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{name: "june start", date: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), want: "2025-2026"},
		{name: "mid year", date: time.Date(2025, time.December, 15, 0, 0, 0, 0, time.UTC), want: "2025-2026"},
		{name: "before june", date: time.Date(2026, time.May, 31, 0, 0, 0, 0, time.UTC), want: "2025-2026"},
		{name: "next year", date: time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC), want: "2026-2027"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AcademicYearOf(tt.date); got != tt.want {
				t.Errorf("AcademicYearOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLedger_Recompute(t *testing.T) {
	now := time.Now().UTC()
	led := Ledger{StudentID: "S-1", TotalFee: 15000}

	got := led.Recompute(nil)
	assert.Equal(t, int64(0), got.TotalPaid)
	assert.Equal(t, int64(15000), got.RemainingAmount)
	assert.Equal(t, StatusNoFees, got.Status)

	installments := []Installment{
		{PaymentNumber: 1, Amount: 10000, PaidAt: now.Add(-time.Hour)},
		{PaymentNumber: 2, Amount: 5000, PaidAt: now},
	}
	got = led.Recompute(installments)
	assert.Equal(t, int64(15000), got.TotalPaid)
	assert.Equal(t, int64(0), got.RemainingAmount)
	assert.Equal(t, StatusPaid, got.Status)
	assert.Equal(t, now, got.ReceiptDate)
}

func TestNewPayment_Validate(t *testing.T) {
	override := int64(12000)
	badOverride := int64(-1)

	tests := []struct {
		name    string
		np      NewPayment
		wantErr bool
	}{
		{name: "valid cash", np: NewPayment{Amount: 5000, Mode: ModeCash}},
		{name: "valid with override", np: NewPayment{Amount: 5000, Mode: ModeUPI, TotalFeeOverride: &override}},
		{name: "zero amount", np: NewPayment{Amount: 0, Mode: ModeCash}, wantErr: true},
		{name: "negative amount", np: NewPayment{Amount: -100, Mode: ModeCash}, wantErr: true},
		{name: "bad mode", np: NewPayment{Amount: 5000, Mode: "cheque"}, wantErr: true},
		{name: "bad override", np: NewPayment{Amount: 5000, Mode: ModeCash, TotalFeeOverride: &badOverride}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.np.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewFeeStructure_Validate(t *testing.T) {
	tests := []struct {
		name    string
		nfs     NewFeeStructure
		wantErr bool
	}{
		{name: "valid", nfs: NewFeeStructure{Standard: "11", AcademicYear: "2025-2026", TotalFee: 15000}},
		{name: "missing standard", nfs: NewFeeStructure{AcademicYear: "2025-2026", TotalFee: 15000}, wantErr: true},
		{name: "bad year", nfs: NewFeeStructure{Standard: "11", AcademicYear: "2025/26", TotalFee: 15000}, wantErr: true},
		{name: "zero fee", nfs: NewFeeStructure{Standard: "11", AcademicYear: "2025-2026"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.nfs.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
