package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lendfabric/repayment-engine/internal/api/middleware"
	"github.com/lendfabric/repayment-engine/internal/api/service"
	"github.com/lendfabric/repayment-engine/internal/domain/installment"
	"github.com/lendfabric/repayment-engine/internal/domain/payment"
	"github.com/lendfabric/repayment-engine/internal/engine/allocation"
)

// PaymentHandler handles HTTP requests for payment intake and fee waives
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// Create accepts a payment confirmation and enqueues it for asynchronous
// allocation, responding 202 with the assigned payment ID
func (h *PaymentHandler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	installmentID, err := uuid.Parse(req.InstallmentID)
	if err != nil {
		RespondBadRequest(c, "Invalid installment ID")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid payment amount")
		return
	}

	paidAt := time.Now()
	if req.PaidAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			RespondBadRequest(c, "Invalid paid_at timestamp, expected RFC3339")
			return
		}
		paidAt = parsed
	}

	confirmation := &payment.Confirmation{
		PaymentID:     uuid.New(),
		InstallmentID: installmentID,
		Amount:        amount,
		PaidAt:        paidAt,
		CorrelationID: middleware.GetCorrelationID(c),
	}

	if err := h.paymentService.EnqueuePayment(c.Request.Context(), confirmation); err != nil {
		if errors.Is(err, payment.ErrInvalidAmount) || errors.Is(err, payment.ErrMissingInstallment) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to enqueue payment", "installment_id", installmentID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"payment_id":     confirmation.PaymentID.String(),
		"installment_id": installmentID.String(),
		"status":         "ACCEPTED",
	})
}

// Waive cancels an installment's active late fees
func (h *PaymentHandler) Waive(c *gin.Context) {
	idParam := c.Param("id")
	installmentID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid installment ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid installment ID")
		return
	}

	var req WaiveFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.paymentService.WaiveFees(c.Request.Context(), installmentID, req.Reason, req.Actor)
	if err != nil {
		if errors.Is(err, installment.ErrInstallmentNotFound{}) {
			RespondNotFound(c, "Installment not found")
			return
		}
		if errors.Is(err, allocation.ErrNoActiveFees) {
			RespondConflict(c, "Installment has no active late fees to waive")
			return
		}
		h.logger.Error("Failed to waive fees", "installment_id", installmentID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, result)
}
