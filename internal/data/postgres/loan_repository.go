// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the repayment engine.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/lendfabric/repayment-engine/internal/domain/loan"
	"github.com/lendfabric/repayment-engine/internal/platform/persistence"
)

// LoanRepository implements the loan.Repository interface for PostgreSQL
type LoanRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewLoanRepository creates a new PostgreSQL loan repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewLoanRepository(logger *slog.Logger, db *persistence.PostgresDB) loan.Repository {
	return &LoanRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so loan updates can commit
// atomically alongside installment and fee mutations.
func (r *LoanRepository) WithTx(tx pgx.Tx) loan.Repository {
	return &LoanRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new loan in the database
func (r *LoanRepository) Create(ctx context.Context, l *loan.Loan) error {
	query := `
		INSERT INTO loans (id, principal, monthly_rate, term_months, method, policy, status,
			outstanding_balance, accrued_fees, created_at, disbursed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		l.ID,
		l.Principal,
		l.MonthlyRate,
		l.TermMonths,
		l.Method,
		l.Policy,
		l.Status,
		l.OutstandingBalance,
		l.AccruedFees,
		l.CreatedAt,
		l.DisbursedAt,
		l.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create loan", "error", err)
		return fmt.Errorf("failed to create loan: %w", err)
	}

	return nil
}

// GetByID retrieves a loan by its ID
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	query := `
		SELECT id, principal, monthly_rate, term_months, method, policy, status,
			outstanding_balance, accrued_fees, created_at, disbursed_at, updated_at
		FROM loans
		WHERE id = $1
	`

	var l loan.Loan
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&l.ID,
		&l.Principal,
		&l.MonthlyRate,
		&l.TermMonths,
		&l.Method,
		&l.Policy,
		&l.Status,
		&l.OutstandingBalance,
		&l.AccruedFees,
		&l.CreatedAt,
		&l.DisbursedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loan.ErrLoanNotFound{LoanID: id}
		}
		r.logger.Error("Failed to get loan", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}

	return &l, nil
}

// Update updates an existing loan in the database
func (r *LoanRepository) Update(ctx context.Context, l *loan.Loan) error {
	query := `
		UPDATE loans
		SET principal = $1, monthly_rate = $2, term_months = $3, method = $4, policy = $5,
			status = $6, outstanding_balance = $7, accrued_fees = $8, disbursed_at = $9, updated_at = $10
		WHERE id = $11
	`

	result, err := r.querier.Exec(ctx, query,
		l.Principal,
		l.MonthlyRate,
		l.TermMonths,
		l.Method,
		l.Policy,
		l.Status,
		l.OutstandingBalance,
		l.AccruedFees,
		l.DisbursedAt,
		l.UpdatedAt,
		l.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update loan", "id", l.ID.String(), "error", err)
		return fmt.Errorf("failed to update loan: %w", err)
	}

	if result.RowsAffected() == 0 {
		return loan.ErrLoanNotFound{LoanID: l.ID}
	}

	return nil
}

// AddAccruedFees atomically adjusts the loan-level accrued-fee aggregate.
// The delta is negative when fees are paid or waived.
func (r *LoanRepository) AddAccruedFees(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	query := `
		UPDATE loans
		SET accrued_fees = accrued_fees + $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, delta, id)
	if err != nil {
		r.logger.Error("Failed to adjust accrued fees", "id", id.String(), "error", err)
		return fmt.Errorf("failed to adjust accrued fees: %w", err)
	}

	if result.RowsAffected() == 0 {
		return loan.ErrLoanNotFound{LoanID: id}
	}

	return nil
}
