package installment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines installment persistence operations
type Repository interface {
	// CreateBatch inserts a full schedule in one go. The whole batch fails if
	// any row fails, so a loan never ends up with a partial schedule.
	CreateBatch(ctx context.Context, installments []*Installment) error

	GetByID(ctx context.Context, id uuid.UUID) (*Installment, error)
	ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*Installment, error)
	CountByLoan(ctx context.Context, loanID uuid.UUID) (int64, error)

	// DeleteByLoan removes a loan's schedule; the guarded regeneration path is
	// the only caller
	DeleteByLoan(ctx context.Context, loanID uuid.UUID) (int64, error)

	// ListOverdue returns PENDING/PARTIAL installments of active loans whose
	// due date lies strictly before the given midnight-normalized instant
	ListOverdue(ctx context.Context, before time.Time) ([]*Installment, error)

	Update(ctx context.Context, inst *Installment) error

	// LockForUpdate acquires a row lock for the accrual/allocation
	// read-modify-write sequence
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Installment, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrInstallmentNotFound indicates a missing installment
type ErrInstallmentNotFound struct {
	InstallmentID uuid.UUID
}

func (e ErrInstallmentNotFound) Error() string {
	return "installment not found: " + e.InstallmentID.String()
}

// Is implements the errors.Is interface for ErrInstallmentNotFound
func (e ErrInstallmentNotFound) Is(target error) bool {
	t, ok := target.(ErrInstallmentNotFound)
	if !ok {
		return false
	}
	if t.InstallmentID == uuid.Nil {
		return true
	}
	return e.InstallmentID == t.InstallmentID
}

// ErrScheduleExists indicates an attempt to create a duplicate schedule
type ErrScheduleExists struct {
	LoanID uuid.UUID
}

func (e ErrScheduleExists) Error() string {
	return "schedule already exists for loan: " + e.LoanID.String()
}
