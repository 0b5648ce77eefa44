package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lendfabric/repayment-engine/internal/domain/latefee"
	"github.com/lendfabric/repayment-engine/internal/domain/money"
)

var lateFeeTestColumns = []string{
	"id", "installment_id", "calculation_date", "days_overdue", "principal_basis",
	"daily_rate", "amount", "fixed_amount", "cumulative_total", "fee_type", "status",
	"created_at", "updated_at",
}

func newTestEntry(installmentID uuid.UUID) *latefee.Entry {
	now := time.Now()
	return &latefee.Entry{
		ID:              uuid.New(),
		InstallmentID:   installmentID,
		CalculationDate: time.Date(2025, time.June, 11, 0, 0, 0, 0, time.UTC),
		DaysOverdue:     10,
		PrincipalBasis:  money.MustParse("12500"),
		DailyRate:       money.MustParse("0.0005"),
		Amount:          money.MustParse("62.50"),
		FixedAmount:     decimal.Zero,
		CumulativeTotal: money.MustParse("62.50"),
		FeeType:         latefee.TypeCombined,
		Status:          latefee.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func lateFeeRow(e *latefee.Entry) []any {
	return []any{
		e.ID, e.InstallmentID, e.CalculationDate, e.DaysOverdue, e.PrincipalBasis,
		e.DailyRate, e.Amount, e.FixedAmount, e.CumulativeTotal, e.FeeType, e.Status,
		e.CreatedAt, e.UpdatedAt,
	}
}

func TestLateFeeRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LateFeeRepository{querier: mock, logger: logger}
	e := newTestEntry(uuid.New())

	query := `(?s)INSERT INTO late_fee_entries .+ VALUES .+`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(e.ID, e.InstallmentID, e.CalculationDate, e.DaysOverdue, e.PrincipalBasis,
				e.DailyRate, e.Amount, e.FixedAmount, e.CumulativeTotal, e.FeeType, e.Status,
				e.CreatedAt, e.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, e)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("unique violation")
		mock.ExpectExec(query).
			WithArgs(e.ID, e.InstallmentID, e.CalculationDate, e.DaysOverdue, e.PrincipalBasis,
				e.DailyRate, e.Amount, e.FixedAmount, e.CumulativeTotal, e.FeeType, e.Status,
				e.CreatedAt, e.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, e)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create late fee entry")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLateFeeRepository_Update(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LateFeeRepository{querier: mock, logger: logger}
	e := newTestEntry(uuid.New())

	query := `
		UPDATE late_fee_entries
		SET days_overdue = \$1, principal_basis = \$2, amount = \$3, fixed_amount = \$4,
			cumulative_total = \$5, status = \$6, updated_at = \$7
		WHERE id = \$8
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(e.DaysOverdue, e.PrincipalBasis, e.Amount, e.FixedAmount,
				e.CumulativeTotal, e.Status, e.UpdatedAt, e.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, e)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(e.DaysOverdue, e.PrincipalBasis, e.Amount, e.FixedAmount,
				e.CumulativeTotal, e.Status, e.UpdatedAt, e.ID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, e)
		assert.ErrorIs(t, err, latefee.ErrEntryNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLateFeeRepository_GetActiveForDate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LateFeeRepository{querier: mock, logger: logger}
	expected := newTestEntry(uuid.New())

	query := `(?s)SELECT .+ FROM late_fee_entries\s+WHERE installment_id = \$1 AND calculation_date = \$2 AND fee_type = \$3 AND status = 'ACTIVE'`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(lateFeeTestColumns).AddRow(lateFeeRow(expected)...)
		mock.ExpectQuery(query).
			WithArgs(expected.InstallmentID, expected.CalculationDate, expected.FeeType).
			WillReturnRows(rows)

		got, err := repo.GetActiveForDate(ctx, expected.InstallmentID, expected.CalculationDate, expected.FeeType)
		assert.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, expected.ID, got.ID)
		assert.True(t, got.Amount.Equal(expected.Amount))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no entry for the day", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(expected.InstallmentID, expected.CalculationDate, expected.FeeType).
			WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetActiveForDate(ctx, expected.InstallmentID, expected.CalculationDate, expected.FeeType)
		assert.NoError(t, err) // No error, just nil entry
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectQuery(query).
			WithArgs(expected.InstallmentID, expected.CalculationDate, expected.FeeType).
			WillReturnError(dbErr)

		_, err := repo.GetActiveForDate(ctx, expected.InstallmentID, expected.CalculationDate, expected.FeeType)
		assert.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLateFeeRepository_ListByInstallment(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LateFeeRepository{querier: mock, logger: logger}
	installmentID := uuid.New()
	older := newTestEntry(installmentID)
	older.CalculationDate = time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	newer := newTestEntry(installmentID)

	query := `(?s)SELECT .+ FROM late_fee_entries\s+WHERE installment_id = \$1\s+ORDER BY calculation_date, created_at`

	rows := pgxmock.NewRows(lateFeeTestColumns).
		AddRow(lateFeeRow(older)...).
		AddRow(lateFeeRow(newer)...)
	mock.ExpectQuery(query).WithArgs(installmentID).WillReturnRows(rows)

	got, err := repo.ListByInstallment(ctx, installmentID)
	assert.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, older.ID, got[0].ID)
	assert.Equal(t, newer.ID, got[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLateFeeRepository_ListActiveByInstallment(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LateFeeRepository{querier: mock, logger: logger}
	installmentID := uuid.New()
	active := newTestEntry(installmentID)

	query := `(?s)SELECT .+ FROM late_fee_entries\s+WHERE installment_id = \$1 AND status = 'ACTIVE'\s+ORDER BY calculation_date, created_at`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(lateFeeTestColumns).AddRow(lateFeeRow(active)...)
		mock.ExpectQuery(query).WithArgs(installmentID).WillReturnRows(rows)

		got, err := repo.ListActiveByInstallment(ctx, installmentID)
		assert.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, latefee.StatusActive, got[0].Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(installmentID).
			WillReturnRows(pgxmock.NewRows(lateFeeTestColumns))

		got, err := repo.ListActiveByInstallment(ctx, installmentID)
		assert.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLateFeeRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LateFeeRepository{querier: mock, logger: logger}
	entryID := uuid.New()

	query := `
		UPDATE late_fee_entries
		SET status = \$1, updated_at = NOW\(\)
		WHERE id = \$2
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(latefee.StatusPaid, entryID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateStatus(ctx, entryID, latefee.StatusPaid)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(latefee.StatusWaived, entryID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, entryID, latefee.StatusWaived)
		assert.ErrorIs(t, err, latefee.ErrEntryNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
