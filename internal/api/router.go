package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lendfabric/repayment-engine/internal/api/handler"
	"github.com/lendfabric/repayment-engine/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	loanHandler *handler.LoanHandler,
	accrualHandler *handler.AccrualHandler,
	paymentHandler *handler.PaymentHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Loan and schedule operations
		loans := v1.Group("/loans")
		{
			loans.POST("", loanHandler.Create)
			loans.GET("/:id", loanHandler.GetByID)
			loans.POST("/:id/schedule", loanHandler.GenerateSchedule)
			loans.PUT("/:id/schedule", loanHandler.RegenerateSchedule)
			loans.GET("/:id/schedule", loanHandler.GetSchedule)
		}

		// Accrual operations
		accruals := v1.Group("/accruals")
		{
			accruals.POST("/run", accrualHandler.Run)
		}

		// Payment intake and fee administration
		payments := v1.Group("/payments")
		{
			payments.POST("", paymentHandler.Create)
		}
		installments := v1.Group("/installments")
		{
			installments.POST("/:id/waive", paymentHandler.Waive)
		}

		// Engine health and audit trail
		engine := v1.Group("/engine")
		{
			engine.GET("/status", accrualHandler.Status)
			engine.GET("/ledger", accrualHandler.Ledger)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
