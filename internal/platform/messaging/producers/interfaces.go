package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher publishes payment confirmations for the worker to
// allocate. Keys are payment IDs so retries of the same payment land on the
// same partition.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks unprocessable payment events with the reason
// they were rejected.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the subset of kafka.Writer the producers use.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
