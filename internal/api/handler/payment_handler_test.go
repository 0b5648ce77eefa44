package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lendfabric/repayment-engine/internal/domain/installment"
	"github.com/lendfabric/repayment-engine/internal/domain/money"
	"github.com/lendfabric/repayment-engine/internal/domain/payment"
	"github.com/lendfabric/repayment-engine/internal/engine/allocation"
)

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) EnqueuePayment(ctx context.Context, confirmation *payment.Confirmation) error {
	args := m.Called(ctx, confirmation)
	return args.Error(0)
}

func (m *MockPaymentService) WaiveFees(ctx context.Context, installmentID uuid.UUID, reason, actor string) (*allocation.WaiveResult, error) {
	args := m.Called(ctx, installmentID, reason, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.WaiveResult), args.Error(1)
}

func TestPaymentHandler_Create(t *testing.T) {
	logger := newHandlerTestLogger()

	t.Run("Accepted", func(t *testing.T) {
		mockPayments := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockPayments)

		installmentID := uuid.New()
		var enqueued *payment.Confirmation
		mockPayments.On("EnqueuePayment", mock.Anything, mock.MatchedBy(func(c *payment.Confirmation) bool {
			return c.InstallmentID == installmentID && c.Amount.Equal(money.MustParse("1030.50"))
		})).Run(func(args mock.Arguments) {
			enqueued = args.Get(1).(*payment.Confirmation)
		}).Return(nil)

		router := setupTestRouter()
		router.POST("/payments", handler.Create)

		reqBody := CreatePaymentRequest{
			InstallmentID: installmentID.String(),
			Amount:        "1030.50",
			PaidAt:        "2025-06-15T10:30:00Z",
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusAccepted, rr.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		body, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "ACCEPTED", body["status"])
		assert.Equal(t, installmentID.String(), body["installment_id"])

		require.NotNil(t, enqueued)
		assert.Equal(t, enqueued.PaymentID.String(), body["payment_id"])
		assert.NotEqual(t, uuid.Nil, enqueued.PaymentID)
		mockPayments.AssertExpectations(t)
	})

	t.Run("MalformedAmount", func(t *testing.T) {
		handler := NewPaymentHandler(logger, new(MockPaymentService))
		router := setupTestRouter()
		router.POST("/payments", handler.Create)

		jsonBody := []byte(`{"installment_id":"` + uuid.New().String() + `","amount":"not-a-number"}`)
		req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("MalformedPaidAt", func(t *testing.T) {
		handler := NewPaymentHandler(logger, new(MockPaymentService))
		router := setupTestRouter()
		router.POST("/payments", handler.Create)

		jsonBody := []byte(`{"installment_id":"` + uuid.New().String() + `","amount":"100","paid_at":"15/06/2025"}`)
		req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("NonPositiveAmountRejected", func(t *testing.T) {
		mockPayments := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockPayments)
		mockPayments.On("EnqueuePayment", mock.Anything, mock.Anything).
			Return(payment.ErrInvalidAmount)

		router := setupTestRouter()
		router.POST("/payments", handler.Create)

		jsonBody := []byte(`{"installment_id":"` + uuid.New().String() + `","amount":"-50"}`)
		req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("BrokerUnavailable", func(t *testing.T) {
		mockPayments := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockPayments)
		mockPayments.On("EnqueuePayment", mock.Anything, mock.Anything).
			Return(assert.AnError)

		router := setupTestRouter()
		router.POST("/payments", handler.Create)

		jsonBody := []byte(`{"installment_id":"` + uuid.New().String() + `","amount":"100"}`)
		req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestPaymentHandler_Waive(t *testing.T) {
	logger := newHandlerTestLogger()

	t.Run("Success", func(t *testing.T) {
		mockPayments := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockPayments)

		installmentID := uuid.New()
		mockPayments.On("WaiveFees", mock.Anything, installmentID, "customer goodwill", "ops@lendfabric.io").
			Return(&allocation.WaiveResult{
				InstallmentID: installmentID,
				FeesWaived:    money.MustParse("75.00"),
				EntriesWaived: 3,
			}, nil)

		router := setupTestRouter()
		router.POST("/installments/:id/waive", handler.Waive)

		jsonBody := []byte(`{"reason":"customer goodwill","actor":"ops@lendfabric.io"}`)
		req, _ := http.NewRequest(http.MethodPost, "/installments/"+installmentID.String()+"/waive", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		var body allocation.WaiveResult
		dataBytes, _ := json.Marshal(resp.Data)
		require.NoError(t, json.Unmarshal(dataBytes, &body))
		assert.Equal(t, 3, body.EntriesWaived)
		assert.True(t, body.FeesWaived.Equal(money.MustParse("75.00")))
		mockPayments.AssertExpectations(t)
	})

	t.Run("MissingReason", func(t *testing.T) {
		handler := NewPaymentHandler(logger, new(MockPaymentService))
		router := setupTestRouter()
		router.POST("/installments/:id/waive", handler.Waive)

		jsonBody := []byte(`{"actor":"ops@lendfabric.io"}`)
		req, _ := http.NewRequest(http.MethodPost, "/installments/"+uuid.New().String()+"/waive", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("InstallmentNotFound", func(t *testing.T) {
		mockPayments := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockPayments)
		missingID := uuid.New()
		mockPayments.On("WaiveFees", mock.Anything, missingID, mock.Anything, mock.Anything).
			Return(nil, installment.ErrInstallmentNotFound{InstallmentID: missingID})

		router := setupTestRouter()
		router.POST("/installments/:id/waive", handler.Waive)

		jsonBody := []byte(`{"reason":"dispute resolved","actor":"ops@lendfabric.io"}`)
		req, _ := http.NewRequest(http.MethodPost, "/installments/"+missingID.String()+"/waive", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("NoActiveFees", func(t *testing.T) {
		mockPayments := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockPayments)
		installmentID := uuid.New()
		mockPayments.On("WaiveFees", mock.Anything, installmentID, mock.Anything, mock.Anything).
			Return(nil, allocation.ErrNoActiveFees)

		router := setupTestRouter()
		router.POST("/installments/:id/waive", handler.Waive)

		jsonBody := []byte(`{"reason":"dispute resolved","actor":"ops@lendfabric.io"}`)
		req, _ := http.NewRequest(http.MethodPost, "/installments/"+installmentID.String()+"/waive", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}
