package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lendfabric/repayment-engine/internal/domain/installment"
	"github.com/lendfabric/repayment-engine/internal/domain/ledger"
	"github.com/lendfabric/repayment-engine/internal/domain/loan"
	"github.com/lendfabric/repayment-engine/internal/domain/payment"
	"github.com/lendfabric/repayment-engine/internal/engine/accrual"
	"github.com/lendfabric/repayment-engine/internal/engine/allocation"
	"github.com/lendfabric/repayment-engine/internal/engine/schedule"
	"github.com/lendfabric/repayment-engine/internal/engine/status"
)

// LoanService defines the interface for loan operations
type LoanService interface {
	// CreateLoan registers a new loan with validated terms
	CreateLoan(ctx context.Context, principal, monthlyRate decimal.Decimal, termMonths int, method loan.CalculationMethod, policy loan.SchedulePolicy) (*loan.Loan, error)

	// GetLoan retrieves a loan by its ID
	// Returns ErrLoanNotFound if the loan doesn't exist
	GetLoan(ctx context.Context, id uuid.UUID) (*loan.Loan, error)
}

// ScheduleService defines the interface for repayment schedule operations
type ScheduleService interface {
	// GenerateSchedule builds the loan's installments, returning the existing
	// schedule unchanged when one was generated before
	GenerateSchedule(ctx context.Context, loanID uuid.UUID) ([]*installment.Installment, error)

	// RegenerateSchedule deletes and rebuilds a schedule; refuses when any
	// installment carries a payment or assessed fee
	RegenerateSchedule(ctx context.Context, loanID uuid.UUID) ([]*installment.Installment, error)

	// GetSchedule returns the installments with an aggregate summary
	GetSchedule(ctx context.Context, loanID uuid.UUID) ([]*installment.Installment, *schedule.Summary, error)
}

// AccrualService defines the interface for triggering accrual runs
type AccrualService interface {
	Run(ctx context.Context, asOf time.Time, mode accrual.RunMode) (*accrual.RunResult, error)
}

// PaymentService defines the interface for the asynchronous payment intake
// and administrative fee operations
type PaymentService interface {
	// EnqueuePayment publishes a payment confirmation for the worker to
	// allocate; the returned confirmation carries the assigned payment ID
	EnqueuePayment(ctx context.Context, confirmation *payment.Confirmation) error

	// WaiveFees cancels an installment's active late fees
	WaiveFees(ctx context.Context, installmentID uuid.UUID, reason, actor string) (*allocation.WaiveResult, error)
}

// StatusService defines the interface for engine health queries
type StatusService interface {
	Status(ctx context.Context) (*status.EngineStatus, error)
	Ledger(ctx context.Context, limit int) ([]*ledger.Entry, error)
}
