package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"staydesk/internal/shared/constants"
	"staydesk/pkg/logger"

	"github.com/IBM/sarama"
)

// Deduplicator remembers which notifications were already delivered.
// cache.Service satisfies it over Redis.
type Deduplicator interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

type ConsumerConfig struct {
	Brokers              []string
	GroupID              string
	Topics               []string
	Workers              int
	SessionTimeoutMs     int
	HeartbeatMs          int
	RetryBackoffMs       int
	MaxProcessingTime    time.Duration
	OffsetOldest         bool
	MaxRetries           int
	RetryBackoffDuration time.Duration
	DedupeTTL            time.Duration
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:              []string{"localhost:9092"},
		GroupID:              "staydesk-notification-workers",
		Topics:               []string{"booking-lifecycle"},
		Workers:              1,
		SessionTimeoutMs:     30000,
		HeartbeatMs:          3000,
		RetryBackoffMs:       100,
		MaxProcessingTime:    5 * time.Minute,
		OffsetOldest:         false,
		MaxRetries:           3,
		RetryBackoffDuration: time.Second,
		DedupeTTL:            72 * time.Hour,
	}
}

// SaramaConfig builds the sarama consumer group configuration
func (c *ConsumerConfig) SaramaConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(c.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(c.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Retry.Backoff = time.Duration(c.RetryBackoffMs) * time.Millisecond
	saramaConfig.Consumer.MaxProcessingTime = c.MaxProcessingTime
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second

	if c.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	return saramaConfig
}

// KafkaConsumer runs consumer group members that turn lifecycle events into e-mails
type KafkaConsumer struct {
	groups  []sarama.ConsumerGroup
	topics  []string
	handler *MessageHandler
	logger  *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewKafkaConsumer joins config.Workers members to the consumer group
func NewKafkaConsumer(config *ConsumerConfig, handler *MessageHandler, log *logger.Logger) (*KafkaConsumer, error) {
	workers := config.Workers
	if workers <= 0 {
		workers = 1
	}

	groups := make([]sarama.ConsumerGroup, 0, workers)
	for i := 0; i < workers; i++ {
		group, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, config.SaramaConfig())
		if err != nil {
			for _, g := range groups {
				_ = g.Close()
			}
			return nil, fmt.Errorf("failed to create consumer group: %w", err)
		}
		groups = append(groups, group)
	}
	return NewKafkaConsumerWithGroups(groups, config.Topics, handler, log), nil
}

// NewKafkaConsumerWithGroups wraps existing consumer group members
func NewKafkaConsumerWithGroups(groups []sarama.ConsumerGroup, topics []string, handler *MessageHandler, log *logger.Logger) *KafkaConsumer {
	if log == nil {
		log = logger.GetDefault()
	}
	return &KafkaConsumer{
		groups:  groups,
		topics:  topics,
		handler: handler,
		logger:  log.WithComponent("kafka-consumer"),
	}
}

// Start begins consuming in the background until Stop or ctx ends
func (kc *KafkaConsumer) Start(ctx context.Context) error {
	kc.mu.Lock()
	defer kc.mu.Unlock()
	if kc.running {
		return fmt.Errorf("consumer is already running")
	}

	ctx, kc.cancel = context.WithCancel(ctx)
	kc.running = true

	for i, group := range kc.groups {
		kc.wg.Add(2)
		go kc.handleErrors(i, group)
		go kc.runWorker(ctx, i, group)
	}

	kc.logger.Info("Notification consumers started", "workers", len(kc.groups), "topics", kc.topics)
	return nil
}

func (kc *KafkaConsumer) runWorker(ctx context.Context, workerID int, group sarama.ConsumerGroup) {
	defer kc.wg.Done()
	for {
		if err := group.Consume(ctx, kc.topics, kc.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			kc.logger.Error("Error consuming messages", "worker", workerID, "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (kc *KafkaConsumer) handleErrors(workerID int, group sarama.ConsumerGroup) {
	defer kc.wg.Done()
	for err := range group.Errors() {
		kc.logger.Error("Consumer group error", "worker", workerID, "error", err)
	}
}

// Stop leaves the consumer group and waits for the workers to return
func (kc *KafkaConsumer) Stop() error {
	kc.mu.Lock()
	defer kc.mu.Unlock()
	if !kc.running {
		return nil
	}

	kc.cancel()
	var errs []error
	for _, group := range kc.groups {
		if err := group.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close consumer group: %w", err))
		}
	}
	kc.wg.Wait()
	kc.running = false

	kc.logger.Info("Notification consumers stopped")
	return errors.Join(errs...)
}

// MessageHandler decodes lifecycle envelopes, drops duplicates and delivers e-mails.
// Delivery makes no assumption about the order events arrive in.
type MessageHandler struct {
	emailService EmailService
	dedupe       Deduplicator
	dedupeTTL    time.Duration
	maxRetries   int
	backoff      time.Duration
	logger       *logger.Logger
}

// NewMessageHandler builds a handler; dedupe may be nil to disable deduplication
func NewMessageHandler(emailService EmailService, dedupe Deduplicator, config *ConsumerConfig, log *logger.Logger) *MessageHandler {
	if log == nil {
		log = logger.GetDefault()
	}
	return &MessageHandler{
		emailService: emailService,
		dedupe:       dedupe,
		dedupeTTL:    config.DedupeTTL,
		maxRetries:   config.MaxRetries,
		backoff:      config.RetryBackoffDuration,
		logger:       log.WithComponent("notification-handler"),
	}
}

func (h *MessageHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *MessageHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *MessageHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}

			if err := h.HandleMessage(session.Context(), message); err != nil {
				// the offset stays unmarked so the next session redelivers from here
				h.logger.Error("Delivery failed, releasing claim for redelivery",
					"topic", message.Topic,
					"partition", message.Partition,
					"offset", message.Offset,
					"error", err,
				)
				return err
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// HandleMessage processes one broker message. Undecodable messages and events
// that do not notify anyone are acknowledged without delivery.
func (h *MessageHandler) HandleMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	var env Envelope
	if err := json.Unmarshal(message.Value, &env); err != nil {
		h.logger.WarnContext(ctx, "Skipping undecodable message", "offset", message.Offset, "error", err)
		return nil
	}

	notification, ok, err := FromEnvelope(env)
	if err != nil {
		h.logger.WarnContext(ctx, "Skipping malformed event", "event_type", env.Type, "event_id", env.ID.String(), "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	key := constants.NotificationDedupeKey(notification.BookingID.String(), notification.DedupeStatus, notification.OccurredAt)
	if h.dedupe != nil {
		fresh, err := h.dedupe.SetNX(ctx, key, env.ID.String(), h.dedupeTTL)
		if err != nil {
			// delivery proceeds without deduplication
			h.logger.WarnContext(ctx, "Deduplication unavailable", "key", key, "error", err)
		} else if !fresh {
			h.logger.DebugContext(ctx, "Duplicate notification dropped", "key", key)
			return nil
		}
	}

	notification.Status = NotificationStatusSending
	if err := h.executeWithRetry(ctx, notification); err != nil {
		notification.MarkFailed(err)
		if h.dedupe != nil {
			if delErr := h.dedupe.Delete(context.WithoutCancel(ctx), key); delErr != nil {
				h.logger.WarnContext(ctx, "Failed to release dedupe key", "key", key, "error", delErr)
			}
		}
		return err
	}

	notification.MarkSent()
	return nil
}

func (h *MessageHandler) executeWithRetry(ctx context.Context, notification *EmailNotification) error {
	for attempt := 0; ; attempt++ {
		err := h.emailService.SendNotification(ctx, notification)
		if err == nil {
			return nil
		}
		notification.RetryCount = attempt

		if attempt >= h.maxRetries {
			return fmt.Errorf("delivery failed after %d attempts: %w", attempt+1, err)
		}

		delay := h.backoff * time.Duration(1<<attempt)
		h.logger.WarnContext(ctx, "Retrying notification delivery",
			"notification_type", string(notification.Type),
			"booking_id", notification.BookingID.String(),
			"attempt", attempt+1,
			"delay", delay,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
