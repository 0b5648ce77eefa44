package latefee

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status defines fee entry states
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusPaid   Status = "PAID"
	StatusWaived Status = "WAIVED"
)

// FeeType identifies the fee composition of an entry. The engine books the
// daily-rate and fixed components together as one COMBINED entry per day.
type FeeType string

const (
	TypeCombined FeeType = "COMBINED"
)

// Entry is one day's late-fee assessment against an overdue installment.
// At most one ACTIVE entry exists per (installment, calculation date, fee
// type); that tuple is the idempotency key preventing double-charging when
// a run is repeated.
type Entry struct {
	ID            uuid.UUID `json:"id"`
	InstallmentID uuid.UUID `json:"installment_id"`

	CalculationDate time.Time `json:"calculation_date"` // Midnight in the reference timezone
	DaysOverdue     int       `json:"days_overdue"`     // As of the calculation date

	PrincipalBasis  decimal.Decimal `json:"principal_basis"` // Outstanding principal the fee was computed on
	DailyRate       decimal.Decimal `json:"daily_rate"`
	Amount          decimal.Decimal `json:"amount"`           // Daily-rate component plus fixed component
	FixedAmount     decimal.Decimal `json:"fixed_amount"`     // Fixed component booked by this entry
	CumulativeTotal decimal.Decimal `json:"cumulative_total"` // Running active-fee total as of this entry

	FeeType   FeeType   `json:"fee_type"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SplitRemainder returns a new ACTIVE entry carrying the uncovered part of a
// partially paid fee. The calculation date and basis fields are preserved so
// the remainder still counts toward days already charged; the fixed-fee
// bookkeeping stays on the original entry.
func (e *Entry) SplitRemainder(uncovered decimal.Decimal) *Entry {
	now := time.Now()
	return &Entry{
		ID:              uuid.New(),
		InstallmentID:   e.InstallmentID,
		CalculationDate: e.CalculationDate,
		DaysOverdue:     e.DaysOverdue,
		PrincipalBasis:  e.PrincipalBasis,
		DailyRate:       e.DailyRate,
		Amount:          uncovered,
		FixedAmount:     decimal.Zero,
		CumulativeTotal: e.CumulativeTotal,
		FeeType:         e.FeeType,
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
