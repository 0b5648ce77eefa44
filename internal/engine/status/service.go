// Package status reports engine health derived from the processing ledger.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lendfabric/repayment-engine/internal/domain/ledger"
	"github.com/lendfabric/repayment-engine/internal/domain/money"
)

// EngineStatus is a point-in-time view of the accrual engine.
type EngineStatus struct {
	LastRunAt      *time.Time      `json:"last_run_at,omitempty"`
	LastRunStatus  ledger.Status   `json:"last_run_status,omitempty"`
	ProcessedToday int64           `json:"processed_today"`
	RecentEntries  []*ledger.Entry `json:"recent_entries"`
	RecentErrors   []*ledger.Entry `json:"recent_errors"`
}

const (
	statusWindow       = 50
	statusEntriesShown = 10
)

func isErrorEntry(e *ledger.Entry) bool {
	return e.Status == ledger.StatusFailed ||
		e.Status == ledger.StatusManualFailed ||
		e.ErrorMessage != ""
}

// Service answers status and ledger queries.
type Service struct {
	ledger ledger.Repository
	loc    *time.Location
	logger *slog.Logger
}

func NewService(ledgerRepo ledger.Repository, loc *time.Location, logger *slog.Logger) *Service {
	return &Service{
		ledger: ledgerRepo,
		loc:    loc,
		logger: logger,
	}
}

// Status summarizes the latest accrual run and today's ledger activity,
// surfacing failed runs and entries carrying an error message separately.
func (s *Service) Status(ctx context.Context) (*EngineStatus, error) {
	last, err := s.ledger.GetLastByStatus(ctx, ledger.RunStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to read last run: %w", err)
	}

	midnight := money.Midnight(time.Now(), s.loc)
	processedToday, err := s.ledger.CountSince(ctx, midnight)
	if err != nil {
		return nil, fmt.Errorf("failed to count today's entries: %w", err)
	}

	recent, err := s.ledger.GetRecent(ctx, statusWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to read recent entries: %w", err)
	}

	recentErrors := make([]*ledger.Entry, 0)
	for _, entry := range recent {
		if len(recentErrors) == statusEntriesShown {
			break
		}
		if isErrorEntry(entry) {
			recentErrors = append(recentErrors, entry)
		}
	}
	if len(recent) > statusEntriesShown {
		recent = recent[:statusEntriesShown]
	}

	st := &EngineStatus{
		ProcessedToday: processedToday,
		RecentEntries:  recent,
		RecentErrors:   recentErrors,
	}
	if last != nil {
		st.LastRunAt = &last.RunAt
		st.LastRunStatus = last.Status
	}
	return st, nil
}

// Ledger returns the newest ledger entries, capped at limit.
func (s *Service) Ledger(ctx context.Context, limit int) ([]*ledger.Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	entries, err := s.ledger.GetRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return entries, nil
}
