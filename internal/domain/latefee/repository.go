package latefee

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines late-fee entry persistence operations
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	Update(ctx context.Context, e *Entry) error

	// GetActiveForDate finds the ACTIVE entry matching the idempotency key
	// (installment, calculation date, fee type). Returns nil, nil when no
	// entry exists for the day.
	GetActiveForDate(ctx context.Context, installmentID uuid.UUID, calcDate time.Time, feeType FeeType) (*Entry, error)

	// ListByInstallment returns all of an installment's entries regardless of
	// status, oldest calculation date first
	ListByInstallment(ctx context.Context, installmentID uuid.UUID) ([]*Entry, error)

	// ListActiveByInstallment returns the ACTIVE entries, oldest first; the
	// allocator consumes them in this order
	ListActiveByInstallment(ctx context.Context, installmentID uuid.UUID) ([]*Entry, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates a missing fee entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "late fee entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}
