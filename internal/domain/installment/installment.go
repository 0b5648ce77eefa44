package installment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPaymentAmount = errors.New("payment amount must be positive")
)

// Status defines installment settlement states
type Status string

const (
	StatusPending Status = "PENDING"
	StatusPartial Status = "PARTIAL"
	StatusPaid    Status = "PAID"
)

// Installment is one scheduled repayment of a loan. The engine exclusively
// owns its mutation; collaborators read it through engine operations.
type Installment struct {
	ID       uuid.UUID `json:"id"`
	LoanID   uuid.UUID `json:"loan_id"`
	Sequence int       `json:"sequence"` // 1..term
	DueDate  time.Time `json:"due_date"` // End-of-day in the reference timezone

	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Total     decimal.Decimal `json:"total"`

	Status          Status          `json:"status"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	PrincipalPaid   decimal.Decimal `json:"principal_paid"`
	LateFeeAssessed decimal.Decimal `json:"late_fee_assessed"`
	LateFeePaid     decimal.Decimal `json:"late_fee_paid"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OutstandingTotal returns the unpaid portion of the scheduled total.
func (i *Installment) OutstandingTotal() decimal.Decimal {
	out := i.Total.Sub(i.AmountPaid)
	if out.Sign() < 0 {
		return decimal.Zero
	}
	return out
}

// OutstandingPrincipal returns the unpaid scheduled principal. This is the
// basis late fees accrue against.
func (i *Installment) OutstandingPrincipal() decimal.Decimal {
	out := i.Principal.Sub(i.PrincipalPaid)
	if out.Sign() < 0 {
		return decimal.Zero
	}
	return out
}

// OutstandingFees returns assessed fees not yet paid or waived.
func (i *Installment) OutstandingFees() decimal.Decimal {
	out := i.LateFeeAssessed.Sub(i.LateFeePaid)
	if out.Sign() < 0 {
		return decimal.Zero
	}
	return out
}

// ApplyPayment records a payment against scheduled principal and interest.
// Within an installment a payment covers interest first, then principal, so
// the accrual basis shrinks only once interest is fully covered. The caller
// handles the late-fee portion separately.
func (i *Installment) ApplyPayment(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidPaymentAmount
	}

	i.AmountPaid = i.AmountPaid.Add(amount)

	principalCovered := i.AmountPaid.Sub(i.Interest)
	switch {
	case principalCovered.Sign() <= 0:
		i.PrincipalPaid = decimal.Zero
	case principalCovered.GreaterThan(i.Principal):
		i.PrincipalPaid = i.Principal
	default:
		i.PrincipalPaid = principalCovered
	}

	if i.AmountPaid.GreaterThanOrEqual(i.Total) {
		i.Status = StatusPaid
	} else {
		i.Status = StatusPartial
	}
	i.UpdatedAt = time.Now()
	return nil
}

// Settle marks the scheduled principal and interest fully paid.
func (i *Installment) Settle() {
	i.AmountPaid = i.Total
	i.PrincipalPaid = i.Principal
	i.Status = StatusPaid
	i.UpdatedAt = time.Now()
}
