package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lendfabric/repayment-engine/internal/api/service"
	"github.com/lendfabric/repayment-engine/internal/domain/loan"
	"github.com/lendfabric/repayment-engine/internal/engine/schedule"
)

// LoanHandler handles HTTP requests for loan and schedule operations
type LoanHandler struct {
	loanService     service.LoanService
	scheduleService service.ScheduleService
	logger          *slog.Logger
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(logger *slog.Logger, loanService service.LoanService, scheduleService service.ScheduleService) *LoanHandler {
	return &LoanHandler{
		loanService:     loanService,
		scheduleService: scheduleService,
		logger:          logger,
	}
}

// Create handles registration of a new loan
func (h *LoanHandler) Create(c *gin.Context) {
	var req CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	principal, err := decimal.NewFromString(req.Principal)
	if err != nil {
		RespondBadRequest(c, "Invalid principal amount")
		return
	}
	monthlyRate, err := decimal.NewFromString(req.MonthlyRate)
	if err != nil {
		RespondBadRequest(c, "Invalid monthly rate")
		return
	}

	l, err := h.loanService.CreateLoan(c.Request.Context(), principal, monthlyRate, req.TermMonths,
		loan.CalculationMethod(req.Method), loan.SchedulePolicy(req.Policy))
	if err != nil {
		switch {
		case errors.Is(err, loan.ErrInvalidPrincipal),
			errors.Is(err, loan.ErrInvalidRate),
			errors.Is(err, loan.ErrInvalidTerm),
			errors.Is(err, loan.ErrUnknownMethod),
			errors.Is(err, loan.ErrUnknownPolicy):
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to create loan", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapLoanToResponse(l))
}

// GetByID retrieves a loan by its ID, returning 404 if not found
func (h *LoanHandler) GetByID(c *gin.Context) {
	id, ok := h.parseLoanID(c)
	if !ok {
		return
	}

	l, err := h.loanService.GetLoan(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, loan.ErrLoanNotFound{}) {
			RespondNotFound(c, "Loan not found")
			return
		}
		h.logger.Error("Failed to get loan", "loan_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapLoanToResponse(l))
}

// GenerateSchedule builds the loan's repayment schedule. Generating twice is
// idempotent and returns the existing schedule.
func (h *LoanHandler) GenerateSchedule(c *gin.Context) {
	id, ok := h.parseLoanID(c)
	if !ok {
		return
	}

	items, err := h.scheduleService.GenerateSchedule(c.Request.Context(), id)
	if err != nil {
		h.respondScheduleError(c, id, err)
		return
	}

	RespondCreated(c, ScheduleResponse{Installments: mapInstallmentsToResponse(items)})
}

// RegenerateSchedule deletes and rebuilds a schedule, refusing when payments
// or fees have been recorded
func (h *LoanHandler) RegenerateSchedule(c *gin.Context) {
	id, ok := h.parseLoanID(c)
	if !ok {
		return
	}

	items, err := h.scheduleService.RegenerateSchedule(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleHasPayments) {
			RespondConflict(c, "Schedule has recorded payments and cannot be regenerated")
			return
		}
		h.respondScheduleError(c, id, err)
		return
	}

	RespondCreated(c, ScheduleResponse{Installments: mapInstallmentsToResponse(items)})
}

// GetSchedule returns a loan's installments with an aggregate summary
func (h *LoanHandler) GetSchedule(c *gin.Context) {
	id, ok := h.parseLoanID(c)
	if !ok {
		return
	}

	items, summary, err := h.scheduleService.GetSchedule(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get schedule", "loan_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, ScheduleResponse{
		Installments: mapInstallmentsToResponse(items),
		Summary:      summary,
	})
}

func (h *LoanHandler) parseLoanID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid loan ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid loan ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *LoanHandler) respondScheduleError(c *gin.Context, loanID uuid.UUID, err error) {
	if errors.Is(err, loan.ErrLoanNotFound{}) {
		RespondNotFound(c, "Loan not found")
		return
	}
	switch {
	case errors.Is(err, loan.ErrInvalidPrincipal),
		errors.Is(err, loan.ErrInvalidRate),
		errors.Is(err, loan.ErrInvalidTerm),
		errors.Is(err, loan.ErrUnknownMethod),
		errors.Is(err, loan.ErrUnknownPolicy):
		RespondBadRequest(c, err.Error())
		return
	}
	h.logger.Error("Failed to generate schedule", "loan_id", loanID.String(), "error", err)
	RespondInternalError(c)
}
