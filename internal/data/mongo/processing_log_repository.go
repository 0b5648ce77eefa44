// Package mongo provides the MongoDB implementation of the processing ledger.
// The ledger is append-only; entries are inserted once and never mutated.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lendfabric/repayment-engine/internal/domain/ledger"
)

const (
	// ProcessingLogCollectionName is the name of the processing log collection in MongoDB
	ProcessingLogCollectionName = "processing_log"
)

// ProcessingLogRepository implements the ledger.Repository interface for MongoDB
type ProcessingLogRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewProcessingLogRepository creates a new MongoDB processing log repository
func NewProcessingLogRepository(logger *slog.Logger, db *mongo.Database) ledger.Repository {
	return &ProcessingLogRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores a new processing log entry
func (r *ProcessingLogRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(ProcessingLogCollectionName)

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to append processing log entry",
			"status", string(entry.Status),
			"error", err)
		return fmt.Errorf("failed to append processing log entry: %w", err)
	}

	return nil
}

// GetRecent retrieves the newest entries first
func (r *ProcessingLogRepository) GetRecent(ctx context.Context, limit int) ([]*ledger.Entry, error) {
	collection := r.db.Collection(ProcessingLogCollectionName)

	opts := options.Find().
		SetSort(bson.M{"run_at": -1}). // Newest first
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.Error("Failed to get recent processing log entries", "error", err)
		return nil, fmt.Errorf("failed to get recent processing log entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*ledger.Entry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode processing log entries", "error", err)
		return nil, fmt.Errorf("failed to decode processing log entries: %w", err)
	}

	return entries, nil
}

// GetLastByStatus retrieves the newest entry whose status is in the given set.
// Returns nil, nil when no matching entry exists.
func (r *ProcessingLogRepository) GetLastByStatus(ctx context.Context, statuses []ledger.Status) (*ledger.Entry, error) {
	collection := r.db.Collection(ProcessingLogCollectionName)

	filter := bson.M{"status": bson.M{"$in": statuses}}
	opts := options.FindOne().SetSort(bson.M{"run_at": -1})

	var entry ledger.Entry
	err := collection.FindOne(ctx, filter, opts).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get last processing log entry by status", "error", err)
		return nil, fmt.Errorf("failed to get last processing log entry by status: %w", err)
	}

	return &entry, nil
}

// CountSince counts entries appended at or after the given instant
func (r *ProcessingLogRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	collection := r.db.Collection(ProcessingLogCollectionName)

	filter := bson.M{"run_at": bson.M{"$gte": since}}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count processing log entries", "error", err)
		return 0, fmt.Errorf("failed to count processing log entries: %w", err)
	}

	return count, nil
}
