package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lendfabric/repayment-engine/internal/api"
	"github.com/lendfabric/repayment-engine/internal/api/service"
	"github.com/lendfabric/repayment-engine/internal/config"
	"github.com/lendfabric/repayment-engine/internal/data/mongo"
	"github.com/lendfabric/repayment-engine/internal/data/postgres"
	"github.com/lendfabric/repayment-engine/internal/engine/accrual"
	"github.com/lendfabric/repayment-engine/internal/engine/allocation"
	"github.com/lendfabric/repayment-engine/internal/engine/schedule"
	"github.com/lendfabric/repayment-engine/internal/engine/status"
	"github.com/lendfabric/repayment-engine/internal/logger"
	"github.com/lendfabric/repayment-engine/internal/platform/messaging/producers"
	"github.com/lendfabric/repayment-engine/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("engine_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Parse product terms
	accrualCfg, err := accrual.NewConfig(&cfg.Product)
	if err != nil {
		log.Error("Failed to parse product configuration", "error", err)
		os.Exit(1)
	}

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for payment confirmations
	paymentProducer, err := producers.NewPaymentConfirmationProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize payment Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	loanRepo := postgres.NewLoanRepository(log, postgresDB)
	installmentRepo := postgres.NewInstallmentRepository(log, postgresDB)
	feeRepo := postgres.NewLateFeeRepository(log, postgresDB)
	ledgerRepo := mongo.NewProcessingLogRepository(log, mongoDB.Database())

	// Initialize engine components
	generator := schedule.NewGenerator(accrualCfg.Timezone, cfg.Product.CustomDueDay, cfg.Product.CustomCutoffDay)
	scheduleService := schedule.NewService(loanRepo, installmentRepo, generator, log)
	allocator := allocation.NewAllocator(postgresDB, loanRepo, installmentRepo, feeRepo, ledgerRepo, log)
	statusService := status.NewService(ledgerRepo, accrualCfg.Timezone, log)

	// Manual runs from the API go through the same engine, sequentially
	accrualEngine, err := accrual.New(postgresDB, loanRepo, installmentRepo, feeRepo, ledgerRepo, accrualCfg, 0, log)
	if err != nil {
		log.Error("Failed to initialize accrual engine", "error", err)
		os.Exit(1)
	}

	// Initialize services
	loanService := service.NewLoanService(log, loanRepo)
	paymentService := service.NewPaymentService(log, paymentProducer, allocator)

	// Initialize REST server
	server := api.NewServer(log, cfg, loanService, scheduleService, accrualEngine, paymentService, statusService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = paymentProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
