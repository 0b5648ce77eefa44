// Package schedule turns approved loan terms into an amortization schedule.
// The generator is pure computation; the surrounding service adds the
// persistence and idempotency guard.
package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lendfabric/repayment-engine/internal/domain/installment"
	"github.com/lendfabric/repayment-engine/internal/domain/loan"
	"github.com/lendfabric/repayment-engine/internal/domain/money"
)

// prorationDenominator is the flat month length used to scale a short or long
// first period under CUSTOM_DATE. The source product intentionally uses 30
// rather than the calendar month's actual day count; changing it would change
// financial outcomes.
var prorationDenominator = decimal.NewFromInt(30)

// Generator computes installment schedules from loan terms.
type Generator struct {
	loc          *time.Location
	customDueDay int // Day-of-month due dates fall on under CUSTOM_DATE
	cutoffDay    int // Base dates on/after this day push the first due date one month further
}

// NewGenerator creates a schedule generator for the given reference timezone
// and CUSTOM_DATE placement parameters.
func NewGenerator(loc *time.Location, customDueDay, cutoffDay int) *Generator {
	return &Generator{
		loc:          loc,
		customDueDay: customDueDay,
		cutoffDay:    cutoffDay,
	}
}

// Generate produces the full installment schedule for a loan, anchored at the
// loan's creation date. The returned installments satisfy the closure
// invariant: principals sum exactly to the loan principal and interests sum
// exactly to the loan's total interest, with any rounding drift absorbed by
// the final installment.
func (g *Generator) Generate(l *loan.Loan) ([]*installment.Installment, error) {
	if l.TermMonths < 1 {
		return nil, loan.ErrInvalidTerm
	}
	if l.Principal.Sign() <= 0 {
		return nil, loan.ErrInvalidPrincipal
	}
	if l.MonthlyRate.Sign() < 0 {
		return nil, loan.ErrInvalidRate
	}

	totalInterest := l.TotalInterest()
	base := l.CreatedAt.In(g.loc)

	firstDue, err := g.firstDueDate(base, l.Policy)
	if err != nil {
		return nil, err
	}
	daysInFirstPeriod := money.DaysBetween(base, firstDue, g.loc)

	term := int64(l.TermMonths)
	termDec := decimal.NewFromInt(term)

	// Sum of weights 1..term for Rule of 78.
	rule78Denom := decimal.NewFromInt(term * (term + 1) / 2)
	levelPayment := l.Principal.Add(totalInterest).Div(termDec)

	now := time.Now()
	items := make([]*installment.Installment, 0, l.TermMonths)
	sumPrincipal := decimal.Zero
	sumInterest := decimal.Zero

	for i := 1; i <= l.TermMonths; i++ {
		var interest, principal decimal.Decimal

		switch l.Method {
		case loan.MethodRuleOf78:
			weight := decimal.NewFromInt(term - int64(i) + 1)
			interest = money.RoundCents(totalInterest.Mul(weight).Div(rule78Denom))
			principal = money.RoundCents(levelPayment.Sub(interest))
		case loan.MethodStraightLine:
			interest = money.RoundCents(totalInterest.Div(termDec))
			principal = money.RoundCents(l.Principal.Div(termDec))
		default:
			return nil, loan.ErrUnknownMethod
		}

		// First-period proration applies only under CUSTOM_DATE, and only
		// when the period deviates from the flat 30-day month.
		if i == 1 && l.Policy == loan.PolicyCustomDate && daysInFirstPeriod != 30 {
			factor := decimal.NewFromInt(int64(daysInFirstPeriod)).Div(prorationDenominator)
			interest = money.RoundCents(interest.Mul(factor))
			principal = money.RoundCents(principal.Mul(factor))
		}

		// Rounding closure: the final installment absorbs all accumulated
		// rounding so the schedule sums exactly to principal and interest.
		if i == l.TermMonths {
			interest = totalInterest.Sub(sumInterest)
			principal = l.Principal.Sub(sumPrincipal)
		}

		sumInterest = sumInterest.Add(interest)
		sumPrincipal = sumPrincipal.Add(principal)

		items = append(items, &installment.Installment{
			ID:              uuid.New(),
			LoanID:          l.ID,
			Sequence:        i,
			DueDate:         money.AddMonthsClamped(firstDue, i-1, g.loc),
			Principal:       principal,
			Interest:        interest,
			Total:           principal.Add(interest),
			Status:          installment.StatusPending,
			AmountPaid:      decimal.Zero,
			PrincipalPaid:   decimal.Zero,
			LateFeeAssessed: decimal.Zero,
			LateFeePaid:     decimal.Zero,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	return items, nil
}

// firstDueDate places the first installment according to the schedule policy.
// All due dates carry the end-of-day convention in the reference timezone.
func (g *Generator) firstDueDate(base time.Time, policy loan.SchedulePolicy) (time.Time, error) {
	switch policy {
	case loan.PolicyExactMonthly:
		// Same calendar day next month, clamped on overflow.
		return money.AddMonthsClamped(money.EndOfDay(base, g.loc), 1, g.loc), nil

	case loan.PolicyFirstOfMonth:
		first := time.Date(base.Year(), base.Month()+1, 1, 0, 0, 0, 0, g.loc)
		return money.EndOfDay(first, g.loc), nil

	case loan.PolicyCustomDate:
		// A base date before the cutoff pays on the configured day next
		// month; on or after the cutoff, the month after next.
		monthsAhead := 1
		if base.Day() >= g.cutoffDay {
			monthsAhead = 2
		}
		anchor := time.Date(base.Year(), base.Month(), g.customDueDay, 0, 0, 0, 0, g.loc)
		return money.EndOfDay(money.AddMonthsClamped(anchor, monthsAhead, g.loc), g.loc), nil

	default:
		return time.Time{}, fmt.Errorf("%w: %s", loan.ErrUnknownPolicy, policy)
	}
}
