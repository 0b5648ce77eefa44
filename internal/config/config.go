// Package config provides configuration structures and validation for the
// repayment engine. It covers the HTTP server, database connections, the
// payment event queue, the accrual scheduler, and the late-fee product terms.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration. Each field represents
// a subsystem's configuration and is validated during startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Scheduler   SchedulerConfig
	WorkerPool  WorkerPoolConfig
	Product     ProductConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains the payment event queue configuration
type KafkaConfig struct {
	Brokers           string
	PaymentTopic      string // Payment confirmation events consumed by the worker
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Topic for unprocessable payment events
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the processing ledger
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// SchedulerConfig contains the accrual scheduler configuration
type SchedulerConfig struct {
	AccrualCron string // Cron expression for the daily accrual job
}

// WorkerPoolConfig contains worker pool configuration for the accrual batch
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool; 0 runs the batch sequentially
}

// ProductConfig contains the lending product terms the engine computes with.
// Rates and amounts are decimal strings so they round-trip exactly.
type ProductConfig struct {
	Timezone              string // Reference timezone for due dates and day counting
	DailyLateRate         string // Daily late-fee rate applied to outstanding principal
	FixedFeeAmount        string // Fixed fee charged every FixedFeeFrequencyDays overdue
	FixedFeeFrequencyDays int
	CustomDueDay          int // Day-of-month for the CUSTOM_DATE schedule policy
	CustomCutoffDay       int // Base-date cutoff deciding the first due month under CUSTOM_DATE
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.PaymentTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_PAYMENT_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Scheduler config
	if strings.TrimSpace(c.Scheduler.AccrualCron) == "" {
		validationErrors = append(validationErrors, "SCHEDULER_ACCRUAL_CRON is required")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size < 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must not be negative")
	}

	// Validate Product config
	if c.Product.Timezone == "" {
		validationErrors = append(validationErrors, "PRODUCT_TIMEZONE is required")
	}
	if c.Product.DailyLateRate == "" {
		validationErrors = append(validationErrors, "PRODUCT_DAILY_LATE_RATE is required")
	}
	if c.Product.FixedFeeFrequencyDays < 0 {
		validationErrors = append(validationErrors, "PRODUCT_FIXED_FEE_FREQUENCY_DAYS must not be negative")
	}
	if c.Product.CustomDueDay < 1 || c.Product.CustomDueDay > 28 {
		validationErrors = append(validationErrors, "PRODUCT_CUSTOM_DUE_DAY must be between 1 and 28")
	}
	if c.Product.CustomCutoffDay < 1 || c.Product.CustomCutoffDay > 28 {
		validationErrors = append(validationErrors, "PRODUCT_CUSTOM_CUTOFF_DAY must be between 1 and 28")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
