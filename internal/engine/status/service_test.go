package status

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lendfabric/repayment-engine/internal/domain/ledger"
)

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetRecent(ctx context.Context, limit int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) GetLastByStatus(ctx context.Context, statuses []ledger.Status) (*ledger.Entry, error) {
	args := m.Called(ctx, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

func newTestService(t *testing.T) (*Service, *MockLedgerRepository) {
	t.Helper()
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)
	mockLedger := new(MockLedgerRepository)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(mockLedger, loc, logger), mockLedger
}

func TestService_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("WithLastRun", func(t *testing.T) {
		svc, mockLedger := newTestService(t)
		lastRun := &ledger.Entry{
			ID:     uuid.New(),
			RunAt:  time.Now().Add(-2 * time.Hour),
			Status: ledger.StatusSuccess,
		}
		recent := []*ledger.Entry{lastRun}

		mockLedger.On("GetLastByStatus", ctx, ledger.RunStatuses).Return(lastRun, nil).Once()
		mockLedger.On("CountSince", ctx, mock.AnythingOfType("time.Time")).Return(int64(3), nil).Once()
		mockLedger.On("GetRecent", ctx, statusWindow).Return(recent, nil).Once()

		st, err := svc.Status(ctx)
		require.NoError(t, err)

		require.NotNil(t, st.LastRunAt)
		assert.True(t, st.LastRunAt.Equal(lastRun.RunAt))
		assert.Equal(t, ledger.StatusSuccess, st.LastRunStatus)
		assert.Equal(t, int64(3), st.ProcessedToday)
		assert.Equal(t, recent, st.RecentEntries)
		assert.Empty(t, st.RecentErrors)
		mockLedger.AssertExpectations(t)
	})

	t.Run("SurfacesRecentFailures", func(t *testing.T) {
		svc, mockLedger := newTestService(t)
		lastRun := &ledger.Entry{ID: uuid.New(), RunAt: time.Now(), Status: ledger.StatusSuccess}
		failed := &ledger.Entry{ID: uuid.New(), Status: ledger.StatusFailed, ErrorMessage: "db timeout"}
		manualFailed := &ledger.Entry{ID: uuid.New(), Status: ledger.StatusManualFailed, ErrorMessage: "installment not found"}
		degraded := &ledger.Entry{ID: uuid.New(), Status: ledger.StatusSuccess, ErrorMessage: "2 installments skipped"}
		recent := make([]*ledger.Entry, 0, 15)
		recent = append(recent, lastRun, failed)
		for i := 0; i < 11; i++ {
			recent = append(recent, &ledger.Entry{ID: uuid.New(), Status: ledger.StatusSuccess})
		}
		recent = append(recent, manualFailed, degraded)

		mockLedger.On("GetLastByStatus", ctx, ledger.RunStatuses).Return(lastRun, nil).Once()
		mockLedger.On("CountSince", ctx, mock.AnythingOfType("time.Time")).Return(int64(15), nil).Once()
		mockLedger.On("GetRecent", ctx, statusWindow).Return(recent, nil).Once()

		st, err := svc.Status(ctx)
		require.NoError(t, err)

		// Failures outside the displayed entries window are still reported,
		// including successful runs that carry an error message.
		assert.Len(t, st.RecentEntries, statusEntriesShown)
		assert.Equal(t, []*ledger.Entry{failed, manualFailed, degraded}, st.RecentErrors)
	})

	t.Run("NoRunsYet", func(t *testing.T) {
		svc, mockLedger := newTestService(t)

		mockLedger.On("GetLastByStatus", ctx, ledger.RunStatuses).Return(nil, nil).Once()
		mockLedger.On("CountSince", ctx, mock.AnythingOfType("time.Time")).Return(int64(0), nil).Once()
		mockLedger.On("GetRecent", ctx, statusWindow).Return([]*ledger.Entry{}, nil).Once()

		st, err := svc.Status(ctx)
		require.NoError(t, err)

		assert.Nil(t, st.LastRunAt)
		assert.Empty(t, st.LastRunStatus)
		assert.Equal(t, int64(0), st.ProcessedToday)
	})

	t.Run("LedgerUnavailable", func(t *testing.T) {
		svc, mockLedger := newTestService(t)
		dbErr := errors.New("mongo down")

		mockLedger.On("GetLastByStatus", ctx, ledger.RunStatuses).Return(nil, dbErr).Once()

		_, err := svc.Status(ctx)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestService_Ledger(t *testing.T) {
	ctx := context.Background()

	t.Run("PassesLimitThrough", func(t *testing.T) {
		svc, mockLedger := newTestService(t)
		mockLedger.On("GetRecent", ctx, 25).Return([]*ledger.Entry{}, nil).Once()

		_, err := svc.Ledger(ctx, 25)
		require.NoError(t, err)
		mockLedger.AssertExpectations(t)
	})

	t.Run("ClampsOutOfRangeLimit", func(t *testing.T) {
		svc, mockLedger := newTestService(t)
		mockLedger.On("GetRecent", ctx, 50).Return([]*ledger.Entry{}, nil).Twice()

		_, err := svc.Ledger(ctx, 0)
		require.NoError(t, err)
		_, err = svc.Ledger(ctx, 500)
		require.NoError(t, err)
		mockLedger.AssertExpectations(t)
	})
}
