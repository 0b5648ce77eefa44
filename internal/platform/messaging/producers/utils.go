package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

const topicProbeAttempts = 5

// ensureTopic creates the topic when it does not exist yet. Partition reads
// flap while a broker is still starting, so the probe retries before deciding
// the topic is missing.
func ensureTopic(conn *kafka.Conn, topic string, numPartitions, replicationFactor int, log *slog.Logger) error {
	var partitions []kafka.Partition
	var probeErr error

	for attempt := 1; attempt <= topicProbeAttempts; attempt++ {
		partitions, probeErr = conn.ReadPartitions(topic)
		if probeErr == nil {
			break
		}
		log.Warn("Failed to read topic partitions",
			"topic", topic, "attempt", attempt, "error", probeErr)
		time.Sleep(2 * time.Second)
	}

	if len(partitions) > 0 {
		log.Info("Kafka topic exists", "topic", topic, "partitions", len(partitions))
		return nil
	}

	if numPartitions == 0 {
		numPartitions = 1
	}
	if replicationFactor == 0 {
		replicationFactor = 1
	}

	log.Info("Creating Kafka topic",
		"topic", topic,
		"partitions", numPartitions,
		"replication_factor", replicationFactor)
	if err := conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}

	return nil
}
