package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lendfabric/repayment-engine/internal/domain/loan"
)

// LoanServiceImpl implements the LoanService interface
type LoanServiceImpl struct {
	loans  loan.Repository
	logger *slog.Logger
}

// NewLoanService creates a new loan service
func NewLoanService(logger *slog.Logger, loans loan.Repository) LoanService {
	return &LoanServiceImpl{
		loans:  loans,
		logger: logger,
	}
}

// CreateLoan registers a new loan with validated terms
func (s *LoanServiceImpl) CreateLoan(ctx context.Context, principal, monthlyRate decimal.Decimal, termMonths int, method loan.CalculationMethod, policy loan.SchedulePolicy) (*loan.Loan, error) {
	l, err := loan.New(principal, monthlyRate, termMonths, method, policy)
	if err != nil {
		return nil, err
	}

	if err := s.loans.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to create loan: %w", err)
	}

	s.logger.Info("Loan created",
		"loan_id", l.ID.String(),
		"principal", l.Principal.String(),
		"term_months", l.TermMonths,
		"method", string(l.Method),
		"policy", string(l.Policy))
	return l, nil
}

// GetLoan retrieves a loan by its ID
func (s *LoanServiceImpl) GetLoan(ctx context.Context, id uuid.UUID) (*loan.Loan, error) {
	return s.loans.GetByID(ctx, id)
}
