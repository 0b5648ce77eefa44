package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lendfabric/repayment-engine/internal/api/service"
	"github.com/lendfabric/repayment-engine/internal/engine/accrual"
)

// AccrualHandler handles HTTP requests for manual accrual runs and engine
// health queries
type AccrualHandler struct {
	accrualService service.AccrualService
	statusService  service.StatusService
	logger         *slog.Logger
}

// NewAccrualHandler creates a new accrual handler
func NewAccrualHandler(logger *slog.Logger, accrualService service.AccrualService, statusService service.StatusService) *AccrualHandler {
	return &AccrualHandler{
		accrualService: accrualService,
		statusService:  statusService,
		logger:         logger,
	}
}

// Run triggers a manual accrual run, optionally for a past calculation date
func (h *AccrualHandler) Run(c *gin.Context) {
	var req RunAccrualRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	asOf := time.Now()
	if req.AsOf != "" {
		parsed, err := time.Parse(time.DateOnly, req.AsOf)
		if err != nil {
			RespondBadRequest(c, "Invalid as_of date, expected YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	result, err := h.accrualService.Run(c.Request.Context(), asOf, accrual.ModeManual)
	if err != nil {
		h.logger.Error("Manual accrual run failed", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, result)
}

// Status reports the engine's last run and today's activity
func (h *AccrualHandler) Status(c *gin.Context) {
	st, err := h.statusService.Status(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get engine status", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, st)
}

// Ledger returns recent processing ledger entries
func (h *AccrualHandler) Ledger(c *gin.Context) {
	var params struct {
		Limit int `form:"limit,default=50" binding:"min=0,max=100"`
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	entries, err := h.statusService.Ledger(c.Request.Context(), params.Limit)
	if err != nil {
		h.logger.Error("Failed to get ledger entries", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, entries)
}
