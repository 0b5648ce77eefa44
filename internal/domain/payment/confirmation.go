package payment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingInstallment = errors.New("payment confirmation has no installment id")
	ErrInvalidAmount      = errors.New("payment amount must be positive")
)

// Confirmation defines a Kafka message announcing a received payment. The
// payment provider integration publishes these; the accrual worker consumes
// them and drives the allocator.
type Confirmation struct {
	PaymentID     uuid.UUID       `json:"payment_id"`
	InstallmentID uuid.UUID       `json:"installment_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paid_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// Validate rejects malformed confirmations before any allocation happens.
func (c *Confirmation) Validate() error {
	if c.InstallmentID == uuid.Nil {
		return ErrMissingInstallment
	}
	if c.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
