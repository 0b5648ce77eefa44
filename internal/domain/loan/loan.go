package loan

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrInvalidPrincipal = errors.New("principal must be positive")
	ErrInvalidRate      = errors.New("monthly rate must not be negative")
	ErrInvalidTerm      = errors.New("term must be at least one month")
	ErrUnknownMethod    = errors.New("unknown calculation method")
	ErrUnknownPolicy    = errors.New("unknown schedule policy")
)

// CalculationMethod selects how interest is distributed across installments
type CalculationMethod string

const (
	MethodRuleOf78     CalculationMethod = "RULE_OF_78"
	MethodStraightLine CalculationMethod = "STRAIGHT_LINE"
)

// SchedulePolicy selects where installment due dates are placed
type SchedulePolicy string

const (
	PolicyExactMonthly SchedulePolicy = "EXACT_MONTHLY"
	PolicyCustomDate   SchedulePolicy = "CUSTOM_DATE"
	PolicyFirstOfMonth SchedulePolicy = "FIRST_OF_MONTH"
)

// Status defines loan lifecycle states
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusClosed Status = "CLOSED"
)

// Loan represents the approved terms the engine schedules and accrues against
type Loan struct {
	ID                 uuid.UUID         `json:"id"`
	Principal          decimal.Decimal   `json:"principal"`
	MonthlyRate        decimal.Decimal   `json:"monthly_rate"`
	TermMonths         int               `json:"term_months"`
	Method             CalculationMethod `json:"method"`
	Policy             SchedulePolicy    `json:"policy"`
	Status             Status            `json:"status"`
	OutstandingBalance decimal.Decimal   `json:"outstanding_balance"`
	AccruedFees        decimal.Decimal   `json:"accrued_fees"` // Assessed and not yet waived
	CreatedAt          time.Time         `json:"created_at"`
	DisbursedAt        *time.Time        `json:"disbursed_at,omitempty"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// New creates an active loan with validated terms. The schedule is generated
// from CreatedAt because the disbursement date is not known yet.
func New(principal, monthlyRate decimal.Decimal, termMonths int, method CalculationMethod, policy SchedulePolicy) (*Loan, error) {
	if principal.Sign() <= 0 {
		return nil, ErrInvalidPrincipal
	}
	if monthlyRate.Sign() < 0 {
		return nil, ErrInvalidRate
	}
	if termMonths < 1 {
		return nil, ErrInvalidTerm
	}
	switch method {
	case MethodRuleOf78, MethodStraightLine:
	default:
		return nil, ErrUnknownMethod
	}
	switch policy {
	case PolicyExactMonthly, PolicyCustomDate, PolicyFirstOfMonth:
	default:
		return nil, ErrUnknownPolicy
	}

	now := time.Now()
	return &Loan{
		ID:                 uuid.New(),
		Principal:          principal,
		MonthlyRate:        monthlyRate,
		TermMonths:         termMonths,
		Method:             method,
		Policy:             policy,
		Status:             StatusActive,
		OutstandingBalance: principal,
		AccruedFees:        decimal.Zero,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// TotalInterest returns the simple interest over the whole term, rounded to
// the minor unit: principal x monthlyRate x term. No compounding across
// installments.
func (l *Loan) TotalInterest() decimal.Decimal {
	return l.Principal.
		Mul(l.MonthlyRate).
		Mul(decimal.NewFromInt(int64(l.TermMonths))).
		Round(2)
}
