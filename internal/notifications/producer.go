package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// KafkaProducerConfig contains configuration for the Kafka event producer.
type KafkaProducerConfig struct {
	Brokers          []string
	RetryMax         int
	Timeout          time.Duration
	RequiredAcks     sarama.RequiredAcks
	Compression      sarama.CompressionCodec
	IdempotentWrites bool
}

// DefaultKafkaProducerConfig returns a producer configuration suitable for
// local development.
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		RetryMax:         3,
		Timeout:          10 * time.Second,
		RequiredAcks:     sarama.WaitForAll,
		Compression:      sarama.CompressionSnappy,
		IdempotentWrites: true,
	}
}

// KafkaDispatcher publishes domain events to Kafka topics via a sync producer.
type KafkaDispatcher struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
}

// NewKafkaDispatcher creates a Kafka-backed Dispatcher.
func NewKafkaDispatcher(config *KafkaProducerConfig) (Dispatcher, error) {
	if config == nil {
		config = DefaultKafkaProducerConfig()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.Compression
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = config.Timeout
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}
	// Hash partitioner keeps events for one aggregate on one partition.
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaDispatcher{producer: producer, config: config}, nil
}

// Emit publishes one event envelope to the topic derived from its type.
func (d *KafkaDispatcher) Emit(ctx context.Context, eventType string, payload map[string]interface{}) error {
	envelope := &Envelope{
		EventType:  eventType,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}

	value, err := envelope.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", eventType, err)
	}

	message := &sarama.ProducerMessage{
		Topic: TopicFor(eventType),
		Key:   sarama.StringEncoder(envelope.PartitionKey()),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(eventType)},
			{Key: []byte("occurred_at"), Value: []byte(envelope.OccurredAt.Format(time.RFC3339))},
		},
		Timestamp: envelope.OccurredAt,
	}

	partition, offset, err := d.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	log.Printf("event published - topic: %s, partition: %d, offset: %d, type: %s",
		message.Topic, partition, offset, eventType)
	return nil
}

// Close closes the underlying producer.
func (d *KafkaDispatcher) Close() error {
	if d.producer != nil {
		if err := d.producer.Close(); err != nil {
			return fmt.Errorf("failed to close Kafka producer: %w", err)
		}
	}
	return nil
}
