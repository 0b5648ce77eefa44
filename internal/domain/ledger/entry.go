package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status defines processing ledger entry states
type Status string

const (
	StatusSuccess          Status = "SUCCESS"
	StatusFailed           Status = "FAILED"
	StatusManualSuccess    Status = "MANUAL_SUCCESS"
	StatusManualFailed     Status = "MANUAL_FAILED"
	StatusPaymentProcessed Status = "PAYMENT_PROCESSED"
	StatusManualWaived     Status = "MANUAL_WAIVED"
)

// RunStatuses are the statuses written by accrual runs, scheduled or manual.
var RunStatuses = []Status{StatusSuccess, StatusFailed, StatusManualSuccess, StatusManualFailed}

// Entry is one append-only record of an accrual run, payment allocation, or
// administrative waive. Entries are never mutated after creation. Amounts are
// stored as decimal strings so they survive the BSON round trip exactly.
type Entry struct {
	ID                  uuid.UUID         `json:"id" bson:"id"`
	RunAt               time.Time         `json:"run_at" bson:"run_at"`
	Status              Status            `json:"status" bson:"status"`
	InstallmentsScanned int               `json:"installments_scanned" bson:"installments_scanned"`
	FeesCalculated      int               `json:"fees_calculated" bson:"fees_calculated"`
	TotalFeeAmount      string            `json:"total_fee_amount" bson:"total_fee_amount"`
	ErrorMessage        string            `json:"error_message,omitempty" bson:"error_message,omitempty"`
	DurationMillis      int64             `json:"duration_ms" bson:"duration_ms"`
	Metadata            map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// NewRunEntry records the outcome of an accrual run.
func NewRunEntry(status Status, scanned, feesCalculated int, totalFees decimal.Decimal, duration time.Duration, errMsg string) *Entry {
	return &Entry{
		ID:                  uuid.New(),
		RunAt:               time.Now(),
		Status:              status,
		InstallmentsScanned: scanned,
		FeesCalculated:      feesCalculated,
		TotalFeeAmount:      totalFees.String(),
		ErrorMessage:        errMsg,
		DurationMillis:      duration.Milliseconds(),
	}
}

// NewEventEntry records a payment allocation or an administrative action.
func NewEventEntry(status Status, metadata map[string]string) *Entry {
	return &Entry{
		ID:             uuid.New(),
		RunAt:          time.Now(),
		Status:         status,
		TotalFeeAmount: decimal.Zero.String(),
		Metadata:       metadata,
	}
}
