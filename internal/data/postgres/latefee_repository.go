package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lendfabric/repayment-engine/internal/domain/latefee"
	"github.com/lendfabric/repayment-engine/internal/platform/persistence"
)

const lateFeeColumns = `id, installment_id, calculation_date, days_overdue, principal_basis,
	daily_rate, amount, fixed_amount, cumulative_total, fee_type, status, created_at, updated_at`

// LateFeeRepository implements the latefee.Repository interface for PostgreSQL
type LateFeeRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewLateFeeRepository creates a new PostgreSQL late-fee repository
func NewLateFeeRepository(logger *slog.Logger, db *persistence.PostgresDB) latefee.Repository {
	return &LateFeeRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so fee mutations commit
// atomically with the installment they belong to.
func (r *LateFeeRepository) WithTx(tx pgx.Tx) latefee.Repository {
	return &LateFeeRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new fee entry
func (r *LateFeeRepository) Create(ctx context.Context, e *latefee.Entry) error {
	query := `
		INSERT INTO late_fee_entries (id, installment_id, calculation_date, days_overdue, principal_basis,
			daily_rate, amount, fixed_amount, cumulative_total, fee_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.querier.Exec(ctx, query,
		e.ID,
		e.InstallmentID,
		e.CalculationDate,
		e.DaysOverdue,
		e.PrincipalBasis,
		e.DailyRate,
		e.Amount,
		e.FixedAmount,
		e.CumulativeTotal,
		e.FeeType,
		e.Status,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create late fee entry", "error", err)
		return fmt.Errorf("failed to create late fee entry: %w", err)
	}

	return nil
}

// Update rewrites an entry's computed fields and status
func (r *LateFeeRepository) Update(ctx context.Context, e *latefee.Entry) error {
	query := `
		UPDATE late_fee_entries
		SET days_overdue = $1, principal_basis = $2, amount = $3, fixed_amount = $4,
			cumulative_total = $5, status = $6, updated_at = $7
		WHERE id = $8
	`

	result, err := r.querier.Exec(ctx, query,
		e.DaysOverdue,
		e.PrincipalBasis,
		e.Amount,
		e.FixedAmount,
		e.CumulativeTotal,
		e.Status,
		e.UpdatedAt,
		e.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update late fee entry", "id", e.ID.String(), "error", err)
		return fmt.Errorf("failed to update late fee entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return latefee.ErrEntryNotFound{EntryID: e.ID}
	}

	return nil
}

// GetActiveForDate finds the ACTIVE entry matching the idempotency key.
// Returns nil, nil when no entry exists for the day.
func (r *LateFeeRepository) GetActiveForDate(ctx context.Context, installmentID uuid.UUID, calcDate time.Time, feeType latefee.FeeType) (*latefee.Entry, error) {
	query := `SELECT ` + lateFeeColumns + `
		FROM late_fee_entries
		WHERE installment_id = $1 AND calculation_date = $2 AND fee_type = $3 AND status = 'ACTIVE'
	`

	e, err := r.scanOne(r.querier.QueryRow(ctx, query, installmentID, calcDate, feeType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get active fee entry", "installment_id", installmentID.String(), "error", err)
		return nil, fmt.Errorf("failed to get active fee entry: %w", err)
	}

	return e, nil
}

// ListByInstallment returns all of an installment's entries regardless of
// status, oldest calculation date first
func (r *LateFeeRepository) ListByInstallment(ctx context.Context, installmentID uuid.UUID) ([]*latefee.Entry, error) {
	query := `SELECT ` + lateFeeColumns + `
		FROM late_fee_entries
		WHERE installment_id = $1
		ORDER BY calculation_date, created_at
	`

	rows, err := r.querier.Query(ctx, query, installmentID)
	if err != nil {
		r.logger.Error("Failed to list fee entries", "installment_id", installmentID.String(), "error", err)
		return nil, fmt.Errorf("failed to list fee entries: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// ListActiveByInstallment returns the ACTIVE entries, oldest first
func (r *LateFeeRepository) ListActiveByInstallment(ctx context.Context, installmentID uuid.UUID) ([]*latefee.Entry, error) {
	query := `SELECT ` + lateFeeColumns + `
		FROM late_fee_entries
		WHERE installment_id = $1 AND status = 'ACTIVE'
		ORDER BY calculation_date, created_at
	`

	rows, err := r.querier.Query(ctx, query, installmentID)
	if err != nil {
		r.logger.Error("Failed to list active fee entries", "installment_id", installmentID.String(), "error", err)
		return nil, fmt.Errorf("failed to list active fee entries: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// UpdateStatus transitions an entry to PAID or WAIVED
func (r *LateFeeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status latefee.Status) error {
	query := `
		UPDATE late_fee_entries
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update fee entry status", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update fee entry status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return latefee.ErrEntryNotFound{EntryID: id}
	}

	return nil
}

func (r *LateFeeRepository) scanOne(row pgx.Row) (*latefee.Entry, error) {
	var e latefee.Entry
	err := row.Scan(
		&e.ID,
		&e.InstallmentID,
		&e.CalculationDate,
		&e.DaysOverdue,
		&e.PrincipalBasis,
		&e.DailyRate,
		&e.Amount,
		&e.FixedAmount,
		&e.CumulativeTotal,
		&e.FeeType,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *LateFeeRepository) scanAll(rows pgx.Rows) ([]*latefee.Entry, error) {
	var entries []*latefee.Entry
	for rows.Next() {
		e, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fee entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fee entries: %w", err)
	}
	return entries, nil
}
