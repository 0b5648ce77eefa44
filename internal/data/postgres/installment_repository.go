package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lendfabric/repayment-engine/internal/domain/installment"
	"github.com/lendfabric/repayment-engine/internal/platform/persistence"
)

const installmentColumns = `id, loan_id, sequence, due_date, principal, interest, total,
	status, amount_paid, principal_paid, late_fee_assessed, late_fee_paid, created_at, updated_at`

// InstallmentRepository implements the installment.Repository interface for PostgreSQL
type InstallmentRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewInstallmentRepository creates a new PostgreSQL installment repository
func NewInstallmentRepository(logger *slog.Logger, db *persistence.PostgresDB) installment.Repository {
	return &InstallmentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic schedule and
// payment operations.
func (r *InstallmentRepository) WithTx(tx pgx.Tx) installment.Repository {
	return &InstallmentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreateBatch inserts a full schedule. All rows go through a single batch so
// a loan never ends up with a partial schedule.
func (r *InstallmentRepository) CreateBatch(ctx context.Context, installments []*installment.Installment) error {
	if len(installments) == 0 {
		return nil
	}

	query := `
		INSERT INTO installments (id, loan_id, sequence, due_date, principal, interest, total,
			status, amount_paid, principal_paid, late_fee_assessed, late_fee_paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	batch := &pgx.Batch{}
	for _, inst := range installments {
		batch.Queue(query,
			inst.ID,
			inst.LoanID,
			inst.Sequence,
			inst.DueDate,
			inst.Principal,
			inst.Interest,
			inst.Total,
			inst.Status,
			inst.AmountPaid,
			inst.PrincipalPaid,
			inst.LateFeeAssessed,
			inst.LateFeePaid,
			inst.CreatedAt,
			inst.UpdatedAt,
		)
	}

	results := r.querier.SendBatch(ctx, batch)
	defer results.Close()

	for range installments {
		if _, err := results.Exec(); err != nil {
			r.logger.Error("Failed to insert installment batch", "error", err)
			return fmt.Errorf("failed to insert installment batch: %w", err)
		}
	}

	return nil
}

// GetByID retrieves an installment by its ID
func (r *InstallmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*installment.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE id = $1`

	inst, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, installment.ErrInstallmentNotFound{InstallmentID: id}
		}
		r.logger.Error("Failed to get installment", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get installment: %w", err)
	}

	return inst, nil
}

// ListByLoan returns a loan's installments in sequence order
func (r *InstallmentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*installment.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE loan_id = $1 ORDER BY sequence`

	rows, err := r.querier.Query(ctx, query, loanID)
	if err != nil {
		r.logger.Error("Failed to list installments", "loan_id", loanID.String(), "error", err)
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// CountByLoan returns how many installments exist for a loan
func (r *InstallmentRepository) CountByLoan(ctx context.Context, loanID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM installments WHERE loan_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, loanID).Scan(&count); err != nil {
		r.logger.Error("Failed to count installments", "loan_id", loanID.String(), "error", err)
		return 0, fmt.Errorf("failed to count installments: %w", err)
	}

	return count, nil
}

// DeleteByLoan removes a loan's schedule and returns the number of rows removed
func (r *InstallmentRepository) DeleteByLoan(ctx context.Context, loanID uuid.UUID) (int64, error) {
	query := `DELETE FROM installments WHERE loan_id = $1`

	result, err := r.querier.Exec(ctx, query, loanID)
	if err != nil {
		r.logger.Error("Failed to delete installments", "loan_id", loanID.String(), "error", err)
		return 0, fmt.Errorf("failed to delete installments: %w", err)
	}

	return result.RowsAffected(), nil
}

// ListOverdue returns unsettled installments of active loans whose due date
// lies strictly before the given instant. The accrual run iterates this set.
func (r *InstallmentRepository) ListOverdue(ctx context.Context, before time.Time) ([]*installment.Installment, error) {
	query := `
		SELECT i.id, i.loan_id, i.sequence, i.due_date, i.principal, i.interest, i.total,
			i.status, i.amount_paid, i.principal_paid, i.late_fee_assessed, i.late_fee_paid, i.created_at, i.updated_at
		FROM installments i
		JOIN loans l ON l.id = i.loan_id
		WHERE i.status IN ('PENDING', 'PARTIAL')
			AND i.due_date < $1
			AND l.status = 'ACTIVE'
		ORDER BY i.due_date, i.sequence
	`

	rows, err := r.querier.Query(ctx, query, before)
	if err != nil {
		r.logger.Error("Failed to list overdue installments", "error", err)
		return nil, fmt.Errorf("failed to list overdue installments: %w", err)
	}
	defer rows.Close()

	return r.scanAll(rows)
}

// Update updates an existing installment in the database
func (r *InstallmentRepository) Update(ctx context.Context, inst *installment.Installment) error {
	query := `
		UPDATE installments
		SET status = $1, amount_paid = $2, principal_paid = $3,
			late_fee_assessed = $4, late_fee_paid = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := r.querier.Exec(ctx, query,
		inst.Status,
		inst.AmountPaid,
		inst.PrincipalPaid,
		inst.LateFeeAssessed,
		inst.LateFeePaid,
		inst.UpdatedAt,
		inst.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update installment", "id", inst.ID.String(), "error", err)
		return fmt.Errorf("failed to update installment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return installment.ErrInstallmentNotFound{InstallmentID: inst.ID}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the installment and returns its
// current state. Must run inside a transaction.
func (r *InstallmentRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*installment.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE id = $1 FOR UPDATE`

	inst, err := r.scanOne(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, installment.ErrInstallmentNotFound{InstallmentID: id}
		}
		r.logger.Error("Failed to lock installment for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock installment for update: %w", err)
	}

	return inst, nil
}

func (r *InstallmentRepository) scanOne(row pgx.Row) (*installment.Installment, error) {
	var inst installment.Installment
	err := row.Scan(
		&inst.ID,
		&inst.LoanID,
		&inst.Sequence,
		&inst.DueDate,
		&inst.Principal,
		&inst.Interest,
		&inst.Total,
		&inst.Status,
		&inst.AmountPaid,
		&inst.PrincipalPaid,
		&inst.LateFeeAssessed,
		&inst.LateFeePaid,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *InstallmentRepository) scanAll(rows pgx.Rows) ([]*installment.Installment, error) {
	var installments []*installment.Installment
	for rows.Next() {
		inst, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		installments = append(installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate installments: %w", err)
	}
	return installments, nil
}
