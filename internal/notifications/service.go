package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"staydesk/internal/bookings"
	"staydesk/internal/shared/config"
	"staydesk/pkg/logger"
)

// Service owns the notification pipeline: the async emitter handed to the
// lifecycle manager, the Kafka publisher behind it and the consumer that
// sends e-mails.
type Service struct {
	emitter   *AsyncEmitter
	publisher Publisher
	consumer  *KafkaConsumer
	logger    *logger.Logger

	mu        sync.Mutex
	isRunning bool
}

// NewService builds the pipeline from configuration. dedupe may be nil when
// Redis is unavailable.
func NewService(cfg *config.Config, dedupe Deduplicator, log *logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.GetDefault()
	}

	producerConfig := DefaultKafkaProducerConfig()
	producerConfig.Brokers = cfg.Kafka.Brokers
	producerConfig.Topic = cfg.Kafka.LifecycleTopic

	publisher, err := NewKafkaPublisher(producerConfig, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create lifecycle publisher: %w", err)
	}

	var emailService EmailService
	if cfg.HasSMTP() {
		emailService, err = NewSMTPEmailService(&SMTPConfig{
			Host:      cfg.Email.SMTPHost,
			Port:      cfg.Email.SMTPPort,
			Username:  cfg.Email.SMTPUsername,
			Password:  cfg.Email.SMTPPassword,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
			UseTLS:    true,
		}, log)
		if err != nil {
			_ = publisher.Close()
			return nil, err
		}
	} else {
		log.Warn("SMTP is not configured, notifications will only be logged")
		emailService = NewLogEmailService(log)
	}

	consumerConfig := DefaultConsumerConfig()
	consumerConfig.Brokers = cfg.Kafka.Brokers
	consumerConfig.GroupID = cfg.Kafka.ConsumerGroupID
	consumerConfig.Topics = []string{cfg.Kafka.LifecycleTopic}
	consumerConfig.Workers = cfg.Kafka.ConsumerWorkers
	if cfg.Redis.DedupeTTL > 0 {
		consumerConfig.DedupeTTL = cfg.Redis.DedupeTTL
	}

	handler := NewMessageHandler(emailService, dedupe, consumerConfig, log)
	consumer, err := NewKafkaConsumer(consumerConfig, handler, log)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("failed to create notification consumer: %w", err)
	}

	return &Service{
		emitter:   NewAsyncEmitter(publisher, cfg.Kafka.EmitBufferSize, cfg.Kafka.EmitWorkers, log),
		publisher: publisher,
		consumer:  consumer,
		logger:    log.WithComponent("notifications"),
	}, nil
}

// Emitter returns the emitter to hand to the lifecycle manager
func (s *Service) Emitter() bookings.EventEmitter {
	return s.emitter
}

// Start starts the consumer
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("notification service is already running")
	}
	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start consumers: %w", err)
	}
	s.isRunning = true
	return nil
}

// Stop drains the emitter, then closes the consumer and the publisher
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if err := s.emitter.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("emitter did not drain: %w", err))
	}
	if s.isRunning {
		if err := s.consumer.Stop(); err != nil {
			errs = append(errs, err)
		}
		s.isRunning = false
	}
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info("Notification service stopped")
	return errors.Join(errs...)
}
