package ledger

import (
	"context"
	"time"
)

// Repository manages the append-only processing ledger. Append is the only
// write; entries are never updated or deleted.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error

	// GetRecent returns the newest entries first
	GetRecent(ctx context.Context, limit int) ([]*Entry, error)

	// GetLastByStatus returns the newest entry whose status is in the given
	// set, or nil, nil when none exists
	GetLastByStatus(ctx context.Context, statuses []Status) (*Entry, error)

	// CountSince counts entries appended at or after the given instant
	CountSince(ctx context.Context, since time.Time) (int64, error)
}
