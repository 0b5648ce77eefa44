package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lendfabric/repayment-engine/internal/config"
	"github.com/lendfabric/repayment-engine/internal/data/mongo"
	"github.com/lendfabric/repayment-engine/internal/data/postgres"
	"github.com/lendfabric/repayment-engine/internal/engine/accrual"
	"github.com/lendfabric/repayment-engine/internal/engine/allocation"
	"github.com/lendfabric/repayment-engine/internal/logger"
	"github.com/lendfabric/repayment-engine/internal/platform/messaging/consumers"
	"github.com/lendfabric/repayment-engine/internal/platform/messaging/producers"
	"github.com/lendfabric/repayment-engine/internal/platform/persistence"
	"github.com/lendfabric/repayment-engine/internal/platform/scheduler"
	"github.com/lendfabric/repayment-engine/internal/worker/consumer"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("accrual_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Accrual Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	loanRepo := postgres.NewLoanRepository(log, postgresDB)
	installmentRepo := postgres.NewInstallmentRepository(log, postgresDB)
	feeRepo := postgres.NewLateFeeRepository(log, postgresDB)
	ledgerRepo := mongo.NewProcessingLogRepository(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler is nil-safe.

	// Initialize the accrual engine with the worker pool
	accrualEngine, err := accrual.New(postgresDB, loanRepo, installmentRepo, feeRepo, ledgerRepo, accrualCfg, cfg.WorkerPool.Size, log)
	if err != nil {
		log.Error("Failed to initialize accrual engine", "error", err)
		os.Exit(1)
	}

	// Initialize the payment allocator and event handler
	allocator := allocation.NewAllocator(postgresDB, loanRepo, installmentRepo, feeRepo, ledgerRepo, log)
	paymentEventHandler := consumer.NewPaymentEventHandler(
		log,
		allocator,
		dlqProducer,
	)

	// Register the daily accrual job with the scheduler
	cronScheduler := scheduler.New(accrualCfg.Timezone, log)
	if err := cronScheduler.Register(cfg.Scheduler.AccrualCron, scheduler.NewAccrualJob(accrualEngine)); err != nil {
		log.Error("Failed to register accrual job", "error", err)
		os.Exit(1)
	}

	// Create error channel for service errors
	errChan := make(chan error, 1)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.PaymentTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.PaymentTopic, cfg.Kafka.ConsumerGroup, paymentEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start the scheduler
	log.Info("Starting accrual scheduler", "cron", cfg.Scheduler.AccrualCron)
	cronScheduler.Start()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Stop the scheduler and wait for a running accrual to finish
	log.Info("Stopping accrual scheduler")
	cronScheduler.Stop()

	// Shutdown the accrual worker pool
	accrualEngine.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Accrual Worker shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Accrual Worker shutdown completed with errors")
	} else {
		log.Info("Accrual Worker shutdown completed successfully")
	}
}
