package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lendfabric/repayment-engine/internal/domain/installment"
	"github.com/lendfabric/repayment-engine/internal/domain/loan"
	"github.com/lendfabric/repayment-engine/internal/domain/money"
)

// ErrScheduleHasPayments guards regeneration: a schedule with recorded
// payments must never be deleted and rebuilt.
var ErrScheduleHasPayments = errors.New("schedule has recorded payments and cannot be regenerated")

// Service exposes schedule generation to collaborators with the idempotency
// guard: generating twice for the same loan returns the existing schedule.
type Service struct {
	loans        loan.Repository
	installments installment.Repository
	generator    *Generator
	logger       *slog.Logger
}

// NewService creates a schedule service.
func NewService(loans loan.Repository, installments installment.Repository, generator *Generator, logger *slog.Logger) *Service {
	return &Service{
		loans:        loans,
		installments: installments,
		generator:    generator,
		logger:       logger,
	}
}

// GenerateSchedule creates the loan's installments, or returns the existing
// ones unchanged if a schedule was generated before.
func (s *Service) GenerateSchedule(ctx context.Context, loanID uuid.UUID) ([]*installment.Installment, error) {
	l, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, err
	}

	existing, err := s.installments.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		s.logger.Info("Schedule already exists, returning as-is",
			"loan_id", loanID.String(),
			"installments", len(existing))
		return existing, nil
	}

	items, err := s.generator.Generate(l)
	if err != nil {
		return nil, err
	}

	if err := s.verifyClosure(l, items); err != nil {
		return nil, err
	}

	if err := s.installments.CreateBatch(ctx, items); err != nil {
		return nil, err
	}

	s.logger.Info("Schedule generated",
		"loan_id", loanID.String(),
		"installments", len(items),
		"method", string(l.Method),
		"policy", string(l.Policy))
	return items, nil
}

// RegenerateSchedule deletes and rebuilds a loan's schedule. It refuses when
// any installment has a recorded payment or assessed fee.
func (s *Service) RegenerateSchedule(ctx context.Context, loanID uuid.UUID) ([]*installment.Installment, error) {
	existing, err := s.installments.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	for _, inst := range existing {
		if inst.AmountPaid.Sign() > 0 || inst.LateFeeAssessed.Sign() > 0 {
			return nil, ErrScheduleHasPayments
		}
	}

	if len(existing) > 0 {
		deleted, err := s.installments.DeleteByLoan(ctx, loanID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Deleted schedule for regeneration",
			"loan_id", loanID.String(), "deleted", deleted)
	}

	return s.GenerateSchedule(ctx, loanID)
}

// verifyClosure re-checks the schedule invariant before persisting anything.
// A mismatch is an internal consistency defect, never silently corrected.
func (s *Service) verifyClosure(l *loan.Loan, items []*installment.Installment) error {
	sumPrincipal := decimal.Zero
	sumInterest := decimal.Zero
	for _, it := range items {
		sumPrincipal = sumPrincipal.Add(it.Principal)
		sumInterest = sumInterest.Add(it.Interest)
	}

	if !sumPrincipal.Equal(l.Principal) {
		return fmt.Errorf("schedule closure violated for loan %s: principals sum to %s, want %s",
			l.ID.String(), sumPrincipal.String(), l.Principal.String())
	}
	if total := l.TotalInterest(); !sumInterest.Equal(total) {
		return fmt.Errorf("schedule closure violated for loan %s: interests sum to %s, want %s",
			l.ID.String(), sumInterest.String(), total.String())
	}
	return nil
}

// Summary aggregates a loan's schedule for display.
type Summary struct {
	TotalInstallments int             `json:"total_installments"`
	TotalPrincipal    decimal.Decimal `json:"total_principal"`
	TotalInterest     decimal.Decimal `json:"total_interest"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	PaidInstallments  int             `json:"paid_installments"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	RemainingAmount   decimal.Decimal `json:"remaining_amount"`
	OutstandingFees   decimal.Decimal `json:"outstanding_fees"`
}

// GetSchedule returns a loan's installments with an aggregate summary.
func (s *Service) GetSchedule(ctx context.Context, loanID uuid.UUID) ([]*installment.Installment, *Summary, error) {
	items, err := s.installments.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}

	sum := &Summary{
		TotalInstallments: len(items),
		TotalPrincipal:    decimal.Zero,
		TotalInterest:     decimal.Zero,
		TotalAmount:       decimal.Zero,
		PaidAmount:        decimal.Zero,
		RemainingAmount:   decimal.Zero,
		OutstandingFees:   decimal.Zero,
	}
	for _, it := range items {
		sum.TotalPrincipal = sum.TotalPrincipal.Add(it.Principal)
		sum.TotalInterest = sum.TotalInterest.Add(it.Interest)
		sum.TotalAmount = sum.TotalAmount.Add(it.Total)
		sum.PaidAmount = sum.PaidAmount.Add(it.AmountPaid)
		sum.RemainingAmount = sum.RemainingAmount.Add(it.OutstandingTotal())
		sum.OutstandingFees = sum.OutstandingFees.Add(it.OutstandingFees())
		if it.Status == installment.StatusPaid {
			sum.PaidInstallments++
		}
	}
	sum.OutstandingFees = money.RoundCents(sum.OutstandingFees)

	return items, sum, nil
}
