// Package consumer receives payment confirmation events and feeds them to the
// payment allocator.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lendfabric/repayment-engine/internal/domain/payment"
	"github.com/lendfabric/repayment-engine/internal/engine/allocation"
	"github.com/lendfabric/repayment-engine/internal/platform/messaging/producers"
)

// PaymentAllocator applies a confirmed payment to an installment.
type PaymentAllocator interface {
	Allocate(ctx context.Context, installmentID uuid.UUID, amount decimal.Decimal, paymentDate time.Time) (*allocation.Result, error)
}

// PaymentEventHandler handles incoming payment confirmation messages from Kafka
type PaymentEventHandler struct {
	allocator PaymentAllocator
	producer  producers.DeadLetterPublisher
	logger    *slog.Logger
}

// NewPaymentEventHandler creates a new handler
func NewPaymentEventHandler(
	logger *slog.Logger,
	allocator PaymentAllocator,
	producer producers.DeadLetterPublisher,
) *PaymentEventHandler {
	return &PaymentEventHandler{
		allocator: allocator,
		producer:  producer,
		logger:    logger,
	}
}

// HandleMessage processes Kafka messages. Malformed or invalid confirmations
// go to the DLQ; transient allocation failures are returned uncommitted so
// Kafka redelivers them.
func (h *PaymentEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var confirmation payment.Confirmation
	if err := json.Unmarshal(value, &confirmation); err != nil {
		return h.sendToDLQ(ctx, key, value, "Failed to unmarshal payment confirmation from Kafka message", err)
	}

	if err := confirmation.Validate(); err != nil {
		return h.sendToDLQ(ctx, key, value, "Payment confirmation failed validation", err)
	}

	logger := h.logger
	if confirmation.CorrelationID != "" {
		logger = h.logger.With("correlation_id", confirmation.CorrelationID)
	}

	logger.Info("Received payment confirmation for allocation",
		"payment_id", confirmation.PaymentID.String(),
		"installment_id", confirmation.InstallmentID.String(),
		"amount", confirmation.Amount.String(),
	)

	_, err := h.allocator.Allocate(ctx, confirmation.InstallmentID, confirmation.Amount, confirmation.PaidAt)
	if err != nil {
		if errors.Is(err, allocation.ErrNonPositivePayment) {
			// Retrying cannot fix a bad amount
			return h.sendToDLQ(ctx, key, value, "Payment amount rejected by allocator", err)
		}
		logger.Error("Failed to allocate payment",
			"payment_id", confirmation.PaymentID.String(),
			"installment_id", confirmation.InstallmentID.String(),
			"error", err,
		)
		return fmt.Errorf("allocating payment %s failed: %w", confirmation.PaymentID.String(), err)
	}

	logger.Info("Successfully allocated payment", "payment_id", confirmation.PaymentID.String())
	return nil // Success, commit offset
}

// sendToDLQ parks an unprocessable message. If the DLQ is unavailable the
// original error is returned so the offset stays uncommitted.
func (h *PaymentEventHandler) sendToDLQ(ctx context.Context, key []byte, value []byte, reason string, cause error) error {
	h.logger.Error(reason,
		"error", cause,
		"message_key", string(key),
	)

	if h.producer != nil {
		dlqReason := fmt.Sprintf("%s: %s", reason, cause.Error())
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
			h.logger.Error("Failed to publish message to DLQ",
				"dlq_error", dlqErr,
				"original_error", cause,
				"message_key", string(key),
			)
		} else {
			h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
			return nil // Message handled, commit offset
		}
	}
	return fmt.Errorf("%s: %w", reason, cause)
}
