// Package accrual books daily late fees against overdue installments. Each
// installment is processed in its own database transaction and the
// (installment, calculation date, fee type) key makes re-runs converge
// instead of double-charging, so the batch is safe under at-least-once
// scheduling.
package accrual

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"

	"github.com/lendfabric/repayment-engine/internal/domain/installment"
	"github.com/lendfabric/repayment-engine/internal/domain/latefee"
	"github.com/lendfabric/repayment-engine/internal/domain/ledger"
	"github.com/lendfabric/repayment-engine/internal/domain/loan"
	"github.com/lendfabric/repayment-engine/internal/domain/money"
	"github.com/lendfabric/repayment-engine/internal/platform/persistence"
)

// Config carries the late-fee product terms.
type Config struct {
	DailyLateRate         decimal.Decimal
	FixedFeeAmount        decimal.Decimal
	FixedFeeFrequencyDays int
	Timezone              *time.Location
}

// Engine executes accrual runs over the overdue installment set.
type Engine struct {
	db           persistence.TxRunner
	loans        loan.Repository
	installments installment.Repository
	fees         latefee.Repository
	ledger       ledger.Repository
	cfg          Config
	pool         *ants.Pool // nil runs the batch sequentially
	logger       *slog.Logger
}

// New creates an accrual engine. poolSize > 0 enables parallel per-installment
// processing; every installment still commits in its own transaction.
func New(
	db persistence.TxRunner,
	loans loan.Repository,
	installments installment.Repository,
	fees latefee.Repository,
	ledgerRepo ledger.Repository,
	cfg Config,
	poolSize int,
	logger *slog.Logger,
) (*Engine, error) {
	e := &Engine{
		db:           db,
		loans:        loans,
		installments: installments,
		fees:         fees,
		ledger:       ledgerRepo,
		cfg:          cfg,
		logger:       logger,
	}

	if poolSize > 0 {
		pool, err := ants.NewPool(poolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create accrual worker pool: %w", err)
		}
		e.pool = pool
	}

	return e, nil
}

// Shutdown releases the worker pool, if any.
func (e *Engine) Shutdown() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// Run scans overdue installments as of the given date and books the late fees
// owed for the elapsed period. Per-installment failures are isolated and
// collected; only a failure to reach the data store fails the whole run. A
// processing ledger entry is always written, even when nothing was booked.
func (e *Engine) Run(ctx context.Context, asOf time.Time, mode RunMode) (*RunResult, error) {
	start := time.Now()
	asOfMidnight := money.Midnight(asOf, e.cfg.Timezone)

	e.logger.Info("Accrual run starting",
		"as_of", asOfMidnight.Format(time.DateOnly),
		"mode", string(mode))

	overdue, err := e.installments.ListOverdue(ctx, asOfMidnight)
	if err != nil {
		// Terminal: the data store is unreachable. Record the failed run and
		// propagate the hard error.
		runErr := fmt.Errorf("failed to list overdue installments: %w", err)
		e.appendRunEntry(ctx, mode.LedgerStatus(true), 0, 0, decimal.Zero, time.Since(start), runErr.Error())
		return nil, runErr
	}

	result := &RunResult{
		InstallmentsScanned: len(overdue),
		TotalFeeAmount:      decimal.Zero,
	}

	var mu sync.Mutex
	record := func(amount decimal.Decimal, charged bool, itemErr *ItemError) {
		mu.Lock()
		defer mu.Unlock()
		if itemErr != nil {
			result.Errors = append(result.Errors, *itemErr)
			return
		}
		if charged {
			result.FeesCalculated++
			result.TotalFeeAmount = result.TotalFeeAmount.Add(amount)
		}
	}

	process := func(inst *installment.Installment) {
		amount, charged, err := e.processInstallment(ctx, inst, asOfMidnight, mode)
		if err != nil {
			e.logger.Error("Accrual failed for installment",
				"installment_id", inst.ID.String(),
				"error", err)
			record(decimal.Zero, false, &ItemError{InstallmentID: inst.ID, Err: err})
			return
		}
		record(amount, charged, nil)
	}

	if e.pool != nil {
		var wg sync.WaitGroup
		for _, inst := range overdue {
			inst := inst
			wg.Add(1)
			if submitErr := e.pool.Submit(func() {
				defer wg.Done()
				process(inst)
			}); submitErr != nil {
				wg.Done()
				record(decimal.Zero, false, &ItemError{InstallmentID: inst.ID, Err: submitErr})
			}
		}
		wg.Wait()
	} else {
		for _, inst := range overdue {
			process(inst)
		}
	}

	e.appendRunEntry(ctx, mode.LedgerStatus(false),
		result.InstallmentsScanned, result.FeesCalculated, result.TotalFeeAmount,
		time.Since(start), "")

	e.logger.Info("Accrual run finished",
		"scanned", result.InstallmentsScanned,
		"fees_calculated", result.FeesCalculated,
		"total_fee_amount", result.TotalFeeAmount.String(),
		"errors", len(result.Errors),
		"duration", time.Since(start).String())

	return result, nil
}

// processInstallment computes and persists one installment's fee for the day
// inside a single transaction.
func (e *Engine) processInstallment(ctx context.Context, inst *installment.Installment, asOfMidnight time.Time, mode RunMode) (decimal.Decimal, bool, error) {
	dueMidnight := money.Midnight(inst.DueDate, e.cfg.Timezone)
	daysOverdue := money.DaysBetween(dueMidnight, asOfMidnight, e.cfg.Timezone)
	if daysOverdue <= 0 {
		return decimal.Zero, false, nil
	}

	var (
		amount  decimal.Decimal
		charged bool
	)

	err := e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		instTx := e.installments.WithTx(tx)
		feesTx := e.fees.WithTx(tx)
		loansTx := e.loans.WithTx(tx)

		// Re-read under lock: a concurrent allocation may have settled the
		// installment since the scan.
		locked, err := instTx.LockForUpdate(ctx, inst.ID)
		if err != nil {
			return err
		}
		if locked.Status == installment.StatusPaid {
			return nil
		}

		basis := locked.OutstandingPrincipal()
		if basis.Sign() <= 0 {
			return nil
		}

		entries, err := feesTx.ListByInstallment(ctx, locked.ID)
		if err != nil {
			return err
		}

		fee := e.computeFee(locked, entries, basis, daysOverdue, asOfMidnight)
		if fee.Amount.Sign() <= 0 && mode != ModeManual {
			return nil // Nothing new to charge
		}

		existing, err := feesTx.GetActiveForDate(ctx, locked.ID, asOfMidnight, latefee.TypeCombined)
		if err != nil {
			return err
		}

		previousAmount := decimal.Zero
		if existing != nil {
			// Same-day re-run: update the day's entry in place so the run
			// converges instead of appending a duplicate.
			previousAmount = existing.Amount
			existing.DaysOverdue = fee.DaysOverdue
			existing.PrincipalBasis = fee.PrincipalBasis
			existing.Amount = fee.Amount
			existing.FixedAmount = fee.FixedAmount
			existing.CumulativeTotal = fee.CumulativeTotal
			existing.UpdatedAt = time.Now()
			if err := feesTx.Update(ctx, existing); err != nil {
				return err
			}
		} else {
			if err := feesTx.Create(ctx, fee); err != nil {
				return err
			}
		}

		delta := fee.Amount.Sub(previousAmount)
		if !delta.IsZero() {
			locked.LateFeeAssessed = locked.LateFeeAssessed.Add(delta)
			locked.UpdatedAt = time.Now()
			if err := instTx.Update(ctx, locked); err != nil {
				return err
			}
			if err := loansTx.AddAccruedFees(ctx, locked.LoanID, delta); err != nil {
				return err
			}
		}

		amount = fee.Amount
		charged = true
		return nil
	})
	if err != nil {
		return decimal.Zero, false, err
	}

	return amount, charged, nil
}

// computeFee builds the day's COMBINED fee entry from the installment's prior
// entries and the product terms.
func (e *Engine) computeFee(inst *installment.Installment, entries []*latefee.Entry, basis decimal.Decimal, daysOverdue int, asOfMidnight time.Time) *latefee.Entry {
	// Days charged on earlier days must never be charged again, whatever the
	// status of the entry that charged them: a paid or waived fee still
	// covered its days. The max prior days-overdue marks how far billing got.
	daysCharged := 0
	fixedCharged := decimal.Zero
	cumulativeActive := decimal.Zero
	for _, prior := range entries {
		if !prior.CalculationDate.Before(asOfMidnight) {
			continue
		}
		if prior.DaysOverdue > daysCharged {
			daysCharged = prior.DaysOverdue
		}
		fixedCharged = fixedCharged.Add(prior.FixedAmount)
		if prior.Status == latefee.StatusActive {
			cumulativeActive = cumulativeActive.Add(prior.Amount)
		}
	}

	missedDays := daysOverdue - daysCharged
	if missedDays < 0 {
		missedDays = 0
	}

	interestComponent := money.RoundCents(
		basis.Mul(e.cfg.DailyLateRate).Mul(decimal.NewFromInt(int64(missedDays))))

	fixedComponent := decimal.Zero
	if e.cfg.FixedFeeFrequencyDays > 0 && e.cfg.FixedFeeAmount.Sign() > 0 {
		periods := int64(daysOverdue / e.cfg.FixedFeeFrequencyDays)
		fixedDue := e.cfg.FixedFeeAmount.Mul(decimal.NewFromInt(periods))
		fixedComponent = money.ClampNonNegative(fixedDue.Sub(fixedCharged))
	}

	amount := interestComponent.Add(fixedComponent)
	now := time.Now()

	return &latefee.Entry{
		ID:              uuid.New(),
		InstallmentID:   inst.ID,
		CalculationDate: asOfMidnight,
		DaysOverdue:     daysOverdue,
		PrincipalBasis:  basis,
		DailyRate:       e.cfg.DailyLateRate,
		Amount:          amount,
		FixedAmount:     fixedComponent,
		CumulativeTotal: cumulativeActive.Add(amount),
		FeeType:         latefee.TypeCombined,
		Status:          latefee.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// appendRunEntry writes the run's ledger record. The ledger is the audit
// trail; a write failure is logged but does not fail an otherwise good run.
func (e *Engine) appendRunEntry(ctx context.Context, status ledger.Status, scanned, calculated int, total decimal.Decimal, duration time.Duration, errMsg string) {
	entry := ledger.NewRunEntry(status, scanned, calculated, total, duration, errMsg)
	if err := e.ledger.Append(ctx, entry); err != nil {
		e.logger.Error("Failed to append accrual run to processing ledger",
			"status", string(status),
			"error", err)
	}
}
