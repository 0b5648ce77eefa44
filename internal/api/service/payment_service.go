package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lendfabric/repayment-engine/internal/domain/payment"
	"github.com/lendfabric/repayment-engine/internal/engine/allocation"
	"github.com/lendfabric/repayment-engine/internal/platform/messaging/producers"
)

// PaymentServiceImpl implements the PaymentService interface. Payments are
// accepted asynchronously: the API publishes a confirmation event and the
// worker allocates it. Waives run synchronously because they are rare
// administrative actions.
type PaymentServiceImpl struct {
	producer  producers.MessagePublisher
	allocator *allocation.Allocator
	logger    *slog.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(logger *slog.Logger, producer producers.MessagePublisher, allocator *allocation.Allocator) PaymentService {
	return &PaymentServiceImpl{
		producer:  producer,
		allocator: allocator,
		logger:    logger,
	}
}

// EnqueuePayment validates the confirmation, assigns it a payment ID, and
// publishes it for the worker to allocate
func (s *PaymentServiceImpl) EnqueuePayment(ctx context.Context, confirmation *payment.Confirmation) error {
	if confirmation.PaymentID == uuid.Nil {
		confirmation.PaymentID = uuid.New()
	}
	if err := confirmation.Validate(); err != nil {
		return err
	}

	if err := s.producer.Publish(ctx, confirmation.PaymentID.String(), confirmation); err != nil {
		return fmt.Errorf("failed to enqueue payment confirmation: %w", err)
	}

	s.logger.Info("Payment confirmation enqueued",
		"payment_id", confirmation.PaymentID.String(),
		"installment_id", confirmation.InstallmentID.String(),
		"amount", confirmation.Amount.String())
	return nil
}

// WaiveFees cancels an installment's active late fees
func (s *PaymentServiceImpl) WaiveFees(ctx context.Context, installmentID uuid.UUID, reason, actor string) (*allocation.WaiveResult, error) {
	return s.allocator.Waive(ctx, installmentID, reason, actor)
}
