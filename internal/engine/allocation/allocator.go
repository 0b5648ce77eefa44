// Package allocation applies payments to installments through the payment
// waterfall and carries out administrative fee waivers. Every mutation runs
// inside a single transaction and every outcome is recorded in the processing
// ledger.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/lendfabric/repayment-engine/internal/domain/installment"
	"github.com/lendfabric/repayment-engine/internal/domain/latefee"
	"github.com/lendfabric/repayment-engine/internal/domain/ledger"
	"github.com/lendfabric/repayment-engine/internal/domain/loan"
	"github.com/lendfabric/repayment-engine/internal/domain/money"
	"github.com/lendfabric/repayment-engine/internal/platform/persistence"
)

var (
	ErrNonPositivePayment = errors.New("payment amount must be positive")
	ErrNoActiveFees       = errors.New("installment has no active late fees to waive")
)

// Result summarizes how a payment was split across the waterfall.
type Result struct {
	InstallmentID            uuid.UUID       `json:"installment_id"`
	PaymentAmount            decimal.Decimal `json:"payment_amount"`
	LateFeesPaid             decimal.Decimal `json:"late_fees_paid"`
	PrincipalInterestCovered decimal.Decimal `json:"principal_interest_covered"`
	RemainingPayment         decimal.Decimal `json:"remaining_payment"`
	InstallmentStatus        installment.Status `json:"installment_status"`
}

// WaiveResult summarizes an administrative waive.
type WaiveResult struct {
	InstallmentID uuid.UUID       `json:"installment_id"`
	FeesWaived    decimal.Decimal `json:"fees_waived"`
	EntriesWaived int             `json:"entries_waived"`
}

// Allocator executes the payment waterfall against a locked installment.
type Allocator struct {
	db           persistence.TxRunner
	loans        loan.Repository
	installments installment.Repository
	fees         latefee.Repository
	ledger       ledger.Repository
	logger       *slog.Logger
}

func NewAllocator(
	db persistence.TxRunner,
	loans loan.Repository,
	installments installment.Repository,
	fees latefee.Repository,
	ledgerRepo ledger.Repository,
	logger *slog.Logger,
) *Allocator {
	return &Allocator{
		db:           db,
		loans:        loans,
		installments: installments,
		fees:         fees,
		ledger:       ledgerRepo,
		logger:       logger,
	}
}

// Allocate applies a payment to one installment. The scheduled principal and
// interest are settled first; only the portion exceeding the scheduled total
// goes to accumulated late fees, oldest calculation date first. A payment at
// or below the scheduled total leaves every fee entry untouched. Whatever
// exceeds both is reported back in RemainingPayment rather than carried to
// other installments.
func (a *Allocator) Allocate(ctx context.Context, installmentID uuid.UUID, amount decimal.Decimal, paymentDate time.Time) (*Result, error) {
	if amount.Sign() <= 0 {
		return nil, ErrNonPositivePayment
	}

	result := &Result{
		InstallmentID: installmentID,
		PaymentAmount: amount,
	}

	err := a.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		instTx := a.installments.WithTx(tx)
		feesTx := a.fees.WithTx(tx)
		loansTx := a.loans.WithTx(tx)

		inst, err := instTx.LockForUpdate(ctx, installmentID)
		if err != nil {
			return err
		}

		remaining := amount

		scheduledDue := inst.OutstandingTotal()
		applied := money.Min(remaining, scheduledDue)
		if applied.Sign() > 0 {
			if err := inst.ApplyPayment(applied); err != nil {
				return err
			}
			remaining = remaining.Sub(applied)
		}

		feesPaid := decimal.Zero
		if remaining.Sign() > 0 {
			feesPaid, err = a.consumeFees(ctx, feesTx, inst, &remaining)
			if err != nil {
				return err
			}
		}

		if feesPaid.Sign() > 0 {
			inst.LateFeePaid = inst.LateFeePaid.Add(feesPaid)
			inst.UpdatedAt = time.Now()
		}
		if feesPaid.Sign() > 0 || applied.Sign() > 0 {
			if err := instTx.Update(ctx, inst); err != nil {
				return err
			}
		}
		if feesPaid.Sign() > 0 {
			if err := loansTx.AddAccruedFees(ctx, inst.LoanID, feesPaid.Neg()); err != nil {
				return err
			}
		}

		result.LateFeesPaid = feesPaid
		result.PrincipalInterestCovered = applied
		result.RemainingPayment = remaining
		result.InstallmentStatus = inst.Status
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to allocate payment: %w", err)
	}

	a.appendEvent(ctx, ledger.StatusPaymentProcessed, map[string]string{
		"installment_id":    installmentID.String(),
		"payment_amount":    amount.String(),
		"fees_paid":         result.LateFeesPaid.String(),
		"fees_waived":       decimal.Zero.String(),
		"principal_covered": result.PrincipalInterestCovered.String(),
		"remaining":         result.RemainingPayment.String(),
		"payment_date":      paymentDate.Format(time.RFC3339),
	})

	a.logger.Info("Payment allocated",
		"installment_id", installmentID.String(),
		"amount", amount.String(),
		"fees_paid", result.LateFeesPaid.String(),
		"status", string(result.InstallmentStatus))

	return result, nil
}

// consumeFees walks the ACTIVE fee entries oldest-first and marks them PAID
// until the payment runs out. A partially covered entry is split: the covered
// part becomes PAID and the uncovered part stays ACTIVE with the original
// calculation date, so the days it charged keep counting.
func (a *Allocator) consumeFees(ctx context.Context, feesTx latefee.Repository, inst *installment.Installment, remaining *decimal.Decimal) (decimal.Decimal, error) {
	active, err := feesTx.ListActiveByInstallment(ctx, inst.ID)
	if err != nil {
		return decimal.Zero, err
	}

	feesPaid := decimal.Zero
	for _, entry := range active {
		if remaining.Sign() <= 0 {
			break
		}

		if remaining.GreaterThanOrEqual(entry.Amount) {
			if err := feesTx.UpdateStatus(ctx, entry.ID, latefee.StatusPaid); err != nil {
				return decimal.Zero, err
			}
			*remaining = remaining.Sub(entry.Amount)
			feesPaid = feesPaid.Add(entry.Amount)
			continue
		}

		covered := *remaining
		uncovered := entry.Amount.Sub(covered)

		entry.Amount = covered
		entry.Status = latefee.StatusPaid
		entry.UpdatedAt = time.Now()
		if err := feesTx.Update(ctx, entry); err != nil {
			return decimal.Zero, err
		}
		if err := feesTx.Create(ctx, entry.SplitRemainder(uncovered)); err != nil {
			return decimal.Zero, err
		}

		feesPaid = feesPaid.Add(covered)
		*remaining = decimal.Zero
	}

	return feesPaid, nil
}

// Waive cancels an installment's ACTIVE fee entries. Fees are never forgiven
// implicitly by a payment; this administrative operation is the only path out
// of ACTIVE besides being paid.
func (a *Allocator) Waive(ctx context.Context, installmentID uuid.UUID, reason, actor string) (*WaiveResult, error) {
	result := &WaiveResult{
		InstallmentID: installmentID,
		FeesWaived:    decimal.Zero,
	}

	err := a.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		instTx := a.installments.WithTx(tx)
		feesTx := a.fees.WithTx(tx)
		loansTx := a.loans.WithTx(tx)

		inst, err := instTx.LockForUpdate(ctx, installmentID)
		if err != nil {
			return err
		}

		active, err := feesTx.ListActiveByInstallment(ctx, inst.ID)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			return ErrNoActiveFees
		}

		waived := decimal.Zero
		for _, entry := range active {
			if err := feesTx.UpdateStatus(ctx, entry.ID, latefee.StatusWaived); err != nil {
				return err
			}
			waived = waived.Add(entry.Amount)
		}

		// Waived fees count as settled fee obligations on the installment and
		// come off the loan-level aggregate.
		inst.LateFeePaid = inst.LateFeePaid.Add(waived)
		inst.UpdatedAt = time.Now()
		if err := instTx.Update(ctx, inst); err != nil {
			return err
		}
		if err := loansTx.AddAccruedFees(ctx, inst.LoanID, waived.Neg()); err != nil {
			return err
		}

		result.FeesWaived = waived
		result.EntriesWaived = len(active)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNoActiveFees) {
			return nil, ErrNoActiveFees
		}
		return nil, fmt.Errorf("failed to waive fees: %w", err)
	}

	a.appendEvent(ctx, ledger.StatusManualWaived, map[string]string{
		"installment_id": installmentID.String(),
		"fees_waived":    result.FeesWaived.String(),
		"entries_waived": fmt.Sprintf("%d", result.EntriesWaived),
		"reason":         reason,
		"actor":          actor,
	})

	a.logger.Info("Late fees waived",
		"installment_id", installmentID.String(),
		"fees_waived", result.FeesWaived.String(),
		"actor", actor)

	return result, nil
}

func (a *Allocator) appendEvent(ctx context.Context, status ledger.Status, metadata map[string]string) {
	if err := a.ledger.Append(ctx, ledger.NewEventEntry(status, metadata)); err != nil {
		a.logger.Error("Failed to append event to processing ledger",
			"status", string(status),
			"error", err)
	}
}
