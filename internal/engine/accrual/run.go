package accrual

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lendfabric/repayment-engine/internal/domain/ledger"
)

// RunMode distinguishes the daily scheduled run from an operator-triggered
// one. Manual runs record zero-amount entries so reconciliation runs stay
// observable, and their ledger status carries the MANUAL_ prefix.
type RunMode string

const (
	ModeScheduled RunMode = "SCHEDULED"
	ModeManual    RunMode = "MANUAL"
)

// LedgerStatus maps the run mode and outcome to a processing ledger status.
func (m RunMode) LedgerStatus(failed bool) ledger.Status {
	switch {
	case m == ModeManual && failed:
		return ledger.StatusManualFailed
	case m == ModeManual:
		return ledger.StatusManualSuccess
	case failed:
		return ledger.StatusFailed
	default:
		return ledger.StatusSuccess
	}
}

// ItemError records a single installment's failure without aborting the run.
type ItemError struct {
	InstallmentID uuid.UUID
	Err           error
}

func (e ItemError) Error() string {
	return "installment " + e.InstallmentID.String() + ": " + e.Err.Error()
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// RunResult aggregates one accrual run's outcome.
type RunResult struct {
	InstallmentsScanned int
	FeesCalculated      int
	TotalFeeAmount      decimal.Decimal
	Errors              []ItemError
}
