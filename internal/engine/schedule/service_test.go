package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lendfabric/repayment-engine/internal/domain/installment"
	"github.com/lendfabric/repayment-engine/internal/domain/loan"
	"github.com/lendfabric/repayment-engine/internal/domain/money"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, l *loan.Loan) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*loan.Loan), args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, l *loan.Loan) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockLoanRepository) AddAccruedFees(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *MockLoanRepository) WithTx(tx pgx.Tx) loan.Repository {
	args := m.Called(tx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(loan.Repository)
}

type MockInstallmentRepository struct {
	mock.Mock
}

func (m *MockInstallmentRepository) CreateBatch(ctx context.Context, installments []*installment.Installment) error {
	args := m.Called(ctx, installments)
	return args.Error(0)
}

func (m *MockInstallmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*installment.Installment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*installment.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*installment.Installment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*installment.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) CountByLoan(ctx context.Context, loanID uuid.UUID) (int64, error) {
	args := m.Called(ctx, loanID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInstallmentRepository) DeleteByLoan(ctx context.Context, loanID uuid.UUID) (int64, error) {
	args := m.Called(ctx, loanID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInstallmentRepository) ListOverdue(ctx context.Context, before time.Time) ([]*installment.Installment, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*installment.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) Update(ctx context.Context, inst *installment.Installment) error {
	args := m.Called(ctx, inst)
	return args.Error(0)
}

func (m *MockInstallmentRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*installment.Installment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*installment.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) WithTx(tx pgx.Tx) installment.Repository {
	args := m.Called(tx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(installment.Repository)
}

func newTestService(t *testing.T) (*Service, *MockLoanRepository, *MockInstallmentRepository) {
	t.Helper()
	loc := testLocation(t)
	mockLoans := new(MockLoanRepository)
	mockInstallments := new(MockInstallmentRepository)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(mockLoans, mockInstallments, NewGenerator(loc, 2, 15), logger)
	return svc, mockLoans, mockInstallments
}

func TestService_GenerateSchedule(t *testing.T) {
	ctx := context.Background()
	loc, _ := time.LoadLocation("America/Mexico_City")

	t.Run("Success", func(t *testing.T) {
		svc, mockLoans, mockInstallments := newTestService(t)
		base := time.Date(2025, time.January, 15, 10, 0, 0, 0, loc)
		l := newTestLoan(t, "150000", "0.015", 12, loan.MethodStraightLine, loan.PolicyExactMonthly, base)

		mockLoans.On("GetByID", ctx, l.ID).Return(l, nil).Once()
		mockInstallments.On("ListByLoan", ctx, l.ID).Return([]*installment.Installment{}, nil).Once()
		mockInstallments.On("CreateBatch", ctx, mock.AnythingOfType("[]*installment.Installment")).Return(nil).Once()

		items, err := svc.GenerateSchedule(ctx, l.ID)
		require.NoError(t, err)
		assert.Len(t, items, 12)
		mockLoans.AssertExpectations(t)
		mockInstallments.AssertExpectations(t)
	})

	t.Run("ExistingScheduleReturnedUnchanged", func(t *testing.T) {
		svc, mockLoans, mockInstallments := newTestService(t)
		base := time.Date(2025, time.January, 15, 10, 0, 0, 0, loc)
		l := newTestLoan(t, "150000", "0.015", 12, loan.MethodStraightLine, loan.PolicyExactMonthly, base)
		existing := []*installment.Installment{
			{ID: uuid.New(), LoanID: l.ID, Sequence: 1},
			{ID: uuid.New(), LoanID: l.ID, Sequence: 2},
		}

		mockLoans.On("GetByID", ctx, l.ID).Return(l, nil).Once()
		mockInstallments.On("ListByLoan", ctx, l.ID).Return(existing, nil).Once()

		items, err := svc.GenerateSchedule(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, existing, items)
		mockInstallments.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
		mockLoans.AssertExpectations(t)
		mockInstallments.AssertExpectations(t)
	})

	t.Run("LoanNotFound", func(t *testing.T) {
		svc, mockLoans, _ := newTestService(t)
		loanID := uuid.New()

		mockLoans.On("GetByID", ctx, loanID).Return(nil, loan.ErrLoanNotFound{LoanID: loanID}).Once()

		_, err := svc.GenerateSchedule(ctx, loanID)
		assert.ErrorIs(t, err, loan.ErrLoanNotFound{})
		mockLoans.AssertExpectations(t)
	})

	t.Run("CreateBatchFailure", func(t *testing.T) {
		svc, mockLoans, mockInstallments := newTestService(t)
		base := time.Date(2025, time.January, 15, 10, 0, 0, 0, loc)
		l := newTestLoan(t, "150000", "0.015", 12, loan.MethodStraightLine, loan.PolicyExactMonthly, base)
		dbErr := errors.New("connection lost")

		mockLoans.On("GetByID", ctx, l.ID).Return(l, nil).Once()
		mockInstallments.On("ListByLoan", ctx, l.ID).Return([]*installment.Installment{}, nil).Once()
		mockInstallments.On("CreateBatch", ctx, mock.Anything).Return(dbErr).Once()

		_, err := svc.GenerateSchedule(ctx, l.ID)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestService_RegenerateSchedule(t *testing.T) {
	ctx := context.Background()
	loc, _ := time.LoadLocation("America/Mexico_City")

	t.Run("RefusesWhenPaymentsRecorded", func(t *testing.T) {
		svc, _, mockInstallments := newTestService(t)
		loanID := uuid.New()
		existing := []*installment.Installment{
			{ID: uuid.New(), LoanID: loanID, Sequence: 1, AmountPaid: money.MustParse("100"), LateFeeAssessed: decimal.Zero},
		}

		mockInstallments.On("ListByLoan", ctx, loanID).Return(existing, nil).Once()

		_, err := svc.RegenerateSchedule(ctx, loanID)
		assert.ErrorIs(t, err, ErrScheduleHasPayments)
		mockInstallments.AssertNotCalled(t, "DeleteByLoan", mock.Anything, mock.Anything)
	})

	t.Run("RefusesWhenFeesAssessed", func(t *testing.T) {
		svc, _, mockInstallments := newTestService(t)
		loanID := uuid.New()
		existing := []*installment.Installment{
			{ID: uuid.New(), LoanID: loanID, Sequence: 1, AmountPaid: decimal.Zero, LateFeeAssessed: money.MustParse("12.50")},
		}

		mockInstallments.On("ListByLoan", ctx, loanID).Return(existing, nil).Once()

		_, err := svc.RegenerateSchedule(ctx, loanID)
		assert.ErrorIs(t, err, ErrScheduleHasPayments)
	})

	t.Run("DeletesAndRebuildsPristineSchedule", func(t *testing.T) {
		svc, mockLoans, mockInstallments := newTestService(t)
		base := time.Date(2025, time.January, 15, 10, 0, 0, 0, loc)
		l := newTestLoan(t, "6000", "0.01", 3, loan.MethodStraightLine, loan.PolicyExactMonthly, base)
		existing := []*installment.Installment{
			{ID: uuid.New(), LoanID: l.ID, Sequence: 1, AmountPaid: decimal.Zero, LateFeeAssessed: decimal.Zero},
		}

		mockInstallments.On("ListByLoan", ctx, l.ID).Return(existing, nil).Once()
		mockInstallments.On("DeleteByLoan", ctx, l.ID).Return(int64(1), nil).Once()
		mockLoans.On("GetByID", ctx, l.ID).Return(l, nil).Once()
		mockInstallments.On("ListByLoan", ctx, l.ID).Return([]*installment.Installment{}, nil).Once()
		mockInstallments.On("CreateBatch", ctx, mock.Anything).Return(nil).Once()

		items, err := svc.RegenerateSchedule(ctx, l.ID)
		require.NoError(t, err)
		assert.Len(t, items, 3)
		mockLoans.AssertExpectations(t)
		mockInstallments.AssertExpectations(t)
	})
}

func TestService_GetSchedule(t *testing.T) {
	ctx := context.Background()

	t.Run("SummarizesInstallments", func(t *testing.T) {
		svc, _, mockInstallments := newTestService(t)
		loanID := uuid.New()
		items := []*installment.Installment{
			{
				ID: uuid.New(), LoanID: loanID, Sequence: 1,
				Principal: money.MustParse("1000"), Interest: money.MustParse("50"), Total: money.MustParse("1050"),
				Status: installment.StatusPaid, AmountPaid: money.MustParse("1050"),
				PrincipalPaid: money.MustParse("1000"), LateFeeAssessed: decimal.Zero, LateFeePaid: decimal.Zero,
			},
			{
				ID: uuid.New(), LoanID: loanID, Sequence: 2,
				Principal: money.MustParse("1000"), Interest: money.MustParse("50"), Total: money.MustParse("1050"),
				Status: installment.StatusPending, AmountPaid: decimal.Zero,
				PrincipalPaid: decimal.Zero, LateFeeAssessed: money.MustParse("30"), LateFeePaid: decimal.Zero,
			},
		}

		mockInstallments.On("ListByLoan", ctx, loanID).Return(items, nil).Once()

		got, sum, err := svc.GetSchedule(ctx, loanID)
		require.NoError(t, err)
		assert.Equal(t, items, got)
		assert.Equal(t, 2, sum.TotalInstallments)
		assert.Equal(t, 1, sum.PaidInstallments)
		assert.Equal(t, "2000.00", sum.TotalPrincipal.StringFixed(2))
		assert.Equal(t, "100.00", sum.TotalInterest.StringFixed(2))
		assert.Equal(t, "2100.00", sum.TotalAmount.StringFixed(2))
		assert.Equal(t, "1050.00", sum.PaidAmount.StringFixed(2))
		assert.Equal(t, "1050.00", sum.RemainingAmount.StringFixed(2))
		assert.Equal(t, "30.00", sum.OutstandingFees.StringFixed(2))
	})

	t.Run("EmptySchedule", func(t *testing.T) {
		svc, _, mockInstallments := newTestService(t)
		loanID := uuid.New()

		mockInstallments.On("ListByLoan", ctx, loanID).Return([]*installment.Installment{}, nil).Once()

		got, sum, err := svc.GetSchedule(ctx, loanID)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, 0, sum.TotalInstallments)
		assert.True(t, sum.TotalAmount.IsZero())
	})
}
