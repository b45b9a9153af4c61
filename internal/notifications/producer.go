package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"staydesk/pkg/logger"

	"github.com/IBM/sarama"
)

// Publisher delivers lifecycle envelopes to the broker
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// KafkaProducerConfig contains configuration for the lifecycle event producer
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "booking-lifecycle",
		RetryMax:         3,
		TimeoutMs:        10000,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000,
	}
}

// SaramaConfig builds the sarama producer configuration
func (c *KafkaProducerConfig) SaramaConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = c.RequiredAcks
	saramaConfig.Producer.Compression = c.CompressionType
	saramaConfig.Producer.Retry.Max = c.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(c.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = c.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = c.MaxMessageBytes

	if c.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// every event of one booking lands on the same partition
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	return saramaConfig
}

// KafkaPublisher publishes lifecycle envelopes through a sarama SyncProducer
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *logger.Logger
}

// NewKafkaPublisher connects a producer to the configured brokers
func NewKafkaPublisher(config *KafkaProducerConfig, log *logger.Logger) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(config.Brokers, config.SaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, config.Topic, log), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, log *logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.GetDefault()
	}
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   log.WithComponent("kafka-publisher"),
	}
}

// Publish sends one envelope keyed by booking id
func (kp *KafkaPublisher) Publish(ctx context.Context, env Envelope) error {
	messageBytes, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     kp.topic,
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   createHeaders(env),
		Timestamp: env.OccurredAt,
	}
	if env.BookingID != "" {
		message.Key = sarama.StringEncoder(env.BookingID)
	}

	partition, offset, err := kp.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send %s to Kafka: %w", env.Type, err)
	}

	kp.logger.DebugContext(ctx, "Lifecycle event published",
		"topic", kp.topic,
		"partition", partition,
		"offset", offset,
		"event_type", env.Type,
		"booking_id", env.BookingID,
	)
	return nil
}

func createHeaders(env Envelope) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("event_id"), Value: []byte(env.ID.String())},
		{Key: []byte("event_type"), Value: []byte(env.Type)},
		{Key: []byte("occurred_at"), Value: []byte(env.OccurredAt.Format(time.RFC3339Nano))},
		{Key: []byte("producer"), Value: []byte("staydesk")},
	}
	if env.BookingID != "" {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte("booking_id"),
			Value: []byte(env.BookingID),
		})
	}
	return headers
}

// Close closes the Kafka producer
func (kp *KafkaPublisher) Close() error {
	if kp.producer == nil {
		return nil
	}
	if err := kp.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}
