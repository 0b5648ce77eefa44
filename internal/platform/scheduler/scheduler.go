// Package scheduler runs named background jobs on cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler wraps a cron runner with a named-job registry so every scheduled
// execution is identifiable in logs and the processing ledger.
type Scheduler struct {
	cron    *cron.Cron
	entries map[string]cron.EntryID
	logger  *slog.Logger
}

func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		entries: make(map[string]cron.EntryID),
		logger:  logger,
	}
}

// Register adds a job on the given cron spec. Registering the same job name
// twice is a configuration error.
func (s *Scheduler) Register(spec string, job Job) error {
	if _, exists := s.entries[job.Name()]; exists {
		return fmt.Errorf("job %s is already registered", job.Name())
	}

	id, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		s.logger.Info("Scheduled job starting", "job", job.Name())

		if err := job.Run(context.Background()); err != nil {
			s.logger.Error("Scheduled job failed",
				"job", job.Name(),
				"duration", time.Since(start).String(),
				"error", err)
			return
		}

		s.logger.Info("Scheduled job finished",
			"job", job.Name(),
			"duration", time.Since(start).String())
	})
	if err != nil {
		return fmt.Errorf("failed to register job %s with spec %q: %w", job.Name(), spec, err)
	}

	s.entries[job.Name()] = id
	s.logger.Info("Registered scheduled job", "job", job.Name(), "spec", spec)
	return nil
}

// Start begins running registered jobs in their own goroutines.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to complete.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
