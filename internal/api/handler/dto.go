package handler

import (
	"time"

	"github.com/lendfabric/repayment-engine/internal/domain/installment"
	"github.com/lendfabric/repayment-engine/internal/domain/loan"
	"github.com/lendfabric/repayment-engine/internal/engine/schedule"
)

// CreateLoanRequest represents a request to register a new loan
type CreateLoanRequest struct {
	Principal   string `json:"principal" binding:"required"`
	MonthlyRate string `json:"monthly_rate" binding:"required"`
	TermMonths  int    `json:"term_months" binding:"required,min=1"`
	Method      string `json:"method" binding:"required,oneof=RULE_OF_78 STRAIGHT_LINE"`
	Policy      string `json:"policy" binding:"required,oneof=EXACT_MONTHLY CUSTOM_DATE FIRST_OF_MONTH"`
}

// LoanResponse represents a loan in API responses
type LoanResponse struct {
	ID                 string `json:"id"`
	Principal          string `json:"principal"`
	MonthlyRate        string `json:"monthly_rate"`
	TermMonths         int    `json:"term_months"`
	Method             string `json:"method"`
	Policy             string `json:"policy"`
	Status             string `json:"status"`
	OutstandingBalance string `json:"outstanding_balance"`
	AccruedFees        string `json:"accrued_fees"`
	CreatedAt          string `json:"created_at"`
}

// InstallmentResponse represents an installment in API responses
type InstallmentResponse struct {
	ID              string `json:"id"`
	LoanID          string `json:"loan_id"`
	Sequence        int    `json:"sequence"`
	DueDate         string `json:"due_date"`
	Principal       string `json:"principal"`
	Interest        string `json:"interest"`
	Total           string `json:"total"`
	Status          string `json:"status"`
	AmountPaid      string `json:"amount_paid"`
	LateFeeAssessed string `json:"late_fee_assessed"`
	LateFeePaid     string `json:"late_fee_paid"`
}

// ScheduleResponse represents a loan's schedule with its aggregate summary
type ScheduleResponse struct {
	Installments []InstallmentResponse `json:"installments"`
	Summary      *schedule.Summary     `json:"summary,omitempty"`
}

// RunAccrualRequest represents a manual accrual run trigger. AsOf defaults to
// today when omitted.
type RunAccrualRequest struct {
	AsOf string `json:"as_of,omitempty"`
}

// CreatePaymentRequest represents an incoming payment confirmation
type CreatePaymentRequest struct {
	InstallmentID string `json:"installment_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required"`
	PaidAt        string `json:"paid_at,omitempty"`
}

// WaiveFeesRequest represents an administrative fee waive
type WaiveFeesRequest struct {
	Reason string `json:"reason" binding:"required"`
	Actor  string `json:"actor" binding:"required"`
}

// mapLoanToResponse maps a loan entity to a loan response DTO
func mapLoanToResponse(l *loan.Loan) LoanResponse {
	return LoanResponse{
		ID:                 l.ID.String(),
		Principal:          l.Principal.String(),
		MonthlyRate:        l.MonthlyRate.String(),
		TermMonths:         l.TermMonths,
		Method:             string(l.Method),
		Policy:             string(l.Policy),
		Status:             string(l.Status),
		OutstandingBalance: l.OutstandingBalance.String(),
		AccruedFees:        l.AccruedFees.String(),
		CreatedAt:          l.CreatedAt.Format(time.RFC3339),
	}
}

// mapInstallmentToResponse maps an installment entity to a response DTO
func mapInstallmentToResponse(inst *installment.Installment) InstallmentResponse {
	return InstallmentResponse{
		ID:              inst.ID.String(),
		LoanID:          inst.LoanID.String(),
		Sequence:        inst.Sequence,
		DueDate:         inst.DueDate.Format(time.RFC3339),
		Principal:       inst.Principal.String(),
		Interest:        inst.Interest.String(),
		Total:           inst.Total.String(),
		Status:          string(inst.Status),
		AmountPaid:      inst.AmountPaid.String(),
		LateFeeAssessed: inst.LateFeeAssessed.String(),
		LateFeePaid:     inst.LateFeePaid.String(),
	}
}

func mapInstallmentsToResponse(items []*installment.Installment) []InstallmentResponse {
	responses := make([]InstallmentResponse, 0, len(items))
	for _, inst := range items {
		responses = append(responses, mapInstallmentToResponse(inst))
	}
	return responses
}
