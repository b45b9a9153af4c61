package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Messaging
	Kafka KafkaConfig

	// Outgoing mail
	Email EmailConfig

	// Booking lifecycle rules
	Lifecycle LifecycleConfig

	// Background jobs
	Jobs JobsConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	// How long a delivered lifecycle event is remembered for deduplication
	DedupeTTL time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	JWTExpiresIn     time.Duration
	RefreshExpiresIn time.Duration
	Issuer           string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled            bool          `json:"enabled"`
	WindowDuration     time.Duration `json:"window_duration"`
	DefaultRequests    int           `json:"default_requests"`
	PublicRequests     int           `json:"public_requests"`
	BookingRequests    int           `json:"booking_requests"`
	TransitionRequests int           `json:"transition_requests"`
	RefundRequests     int           `json:"refund_requests"`
	HealthRequests     int           `json:"health_requests"`
	WhitelistedIPs     []string      `json:"whitelisted_ips"`
}

// KafkaConfig holds broker and topic configuration for lifecycle events
type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	LifecycleTopic  string
	ConsumerGroupID string
	ConsumerWorkers int
	EmitBufferSize  int
	EmitWorkers     int
}

// EmailConfig holds email configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	StaffEmail   string
}

// LifecycleConfig holds the booking lifecycle rules
type LifecycleConfig struct {
	TransitionTimeout             time.Duration
	FreeCancellationWindow        time.Duration
	LateCancellationRefundPercent int
	PostCheckInWindow             time.Duration
	PostCheckInRefundPercent      int
}

// JobsConfig holds the background sweep configuration
type JobsConfig struct {
	Enabled          bool
	NoShowInterval   time.Duration
	NoShowGrace      time.Duration
	CompleteInterval time.Duration
	CompleteGrace    time.Duration
	BatchSize        int
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		// Database configuration
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "staydesk_db"),
			User:            getEnv("DB_USER", "staydesk_user"),
			Password:        getEnv("DB_PASSWORD", "staydesk_password"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		},

		// Redis configuration
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnv("REDIS_PORT", "6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getIntEnv("REDIS_DB", 0),
			DedupeTTL: getDurationEnv("REDIS_DEDUPE_TTL", 72*time.Hour),
		},

		// JWT configuration
		JWT: JWTConfig{
			Secret:           getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
			JWTExpiresIn:     getDurationEnv("JWT_EXPIRES_IN", 15*time.Minute),
			RefreshExpiresIn: getDurationEnv("JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),
			Issuer:           getEnv("JWT_ISSUER", "staydesk"),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:            getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:     getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:    getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:     getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 100),
			BookingRequests:    getIntEnv("RATE_LIMIT_BOOKING_REQUESTS", 60),
			TransitionRequests: getIntEnv("RATE_LIMIT_TRANSITION_REQUESTS", 20),
			RefundRequests:     getIntEnv("RATE_LIMIT_REFUND_REQUESTS", 10),
			HealthRequests:     getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 300),
			WhitelistedIPs:     getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		// Kafka configuration
		Kafka: KafkaConfig{
			Enabled:         getBoolEnv("KAFKA_ENABLED", true),
			Brokers:         getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			LifecycleTopic:  getEnv("KAFKA_LIFECYCLE_TOPIC", "booking-lifecycle"),
			ConsumerGroupID: getEnv("KAFKA_CONSUMER_GROUP_ID", "staydesk-notification-workers"),
			ConsumerWorkers: getIntEnv("KAFKA_CONSUMER_WORKERS", 3),
			EmitBufferSize:  getIntEnv("EMIT_BUFFER_SIZE", 1024),
			EmitWorkers:     getIntEnv("EMIT_WORKERS", 2),
		},

		// Email configuration
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getIntEnv("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@staydesk.app"),
			FromName:     getEnv("SMTP_FROM_NAME", "Staydesk"),
			StaffEmail:   getEnv("STAFF_EMAIL", ""),
		},

		// Lifecycle rules
		Lifecycle: LifecycleConfig{
			TransitionTimeout:             getDurationEnv("LIFECYCLE_TRANSITION_TIMEOUT", 5*time.Second),
			FreeCancellationWindow:        getDurationEnv("REFUND_FREE_CANCELLATION_WINDOW", 48*time.Hour),
			LateCancellationRefundPercent: getIntEnv("REFUND_LATE_CANCELLATION_PERCENT", 50),
			PostCheckInWindow:             getDurationEnv("REFUND_POST_CHECK_IN_WINDOW", 24*time.Hour),
			PostCheckInRefundPercent:      getIntEnv("REFUND_POST_CHECK_IN_PERCENT", 0),
		},

		// Background jobs
		Jobs: JobsConfig{
			Enabled:          getBoolEnv("JOBS_ENABLED", true),
			NoShowInterval:   getDurationEnv("JOBS_NO_SHOW_INTERVAL", 15*time.Minute),
			NoShowGrace:      getDurationEnv("JOBS_NO_SHOW_GRACE", 24*time.Hour),
			CompleteInterval: getDurationEnv("JOBS_COMPLETE_INTERVAL", 15*time.Minute),
			CompleteGrace:    getDurationEnv("JOBS_COMPLETE_GRACE", 2*time.Hour),
			BatchSize:        getIntEnv("JOBS_BATCH_SIZE", 100),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}

// HasSMTP reports whether outgoing mail is configured
func (c *Config) HasSMTP() bool {
	return c.Email.SMTPHost != "" && c.Email.SMTPUsername != ""
}

// Validate rejects settings the lifecycle and job code cannot run with
func (c *Config) Validate() error {
	var errs []error

	positive := map[string]time.Duration{
		"JOBS_NO_SHOW_INTERVAL":        c.Jobs.NoShowInterval,
		"JOBS_COMPLETE_INTERVAL":       c.Jobs.CompleteInterval,
		"LIFECYCLE_TRANSITION_TIMEOUT": c.Lifecycle.TransitionTimeout,
	}
	for key, value := range positive {
		if value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key, value))
		}
	}

	nonNegative := map[string]time.Duration{
		"JOBS_NO_SHOW_GRACE":              c.Jobs.NoShowGrace,
		"JOBS_COMPLETE_GRACE":             c.Jobs.CompleteGrace,
		"REFUND_FREE_CANCELLATION_WINDOW": c.Lifecycle.FreeCancellationWindow,
		"REFUND_POST_CHECK_IN_WINDOW":     c.Lifecycle.PostCheckInWindow,
	}
	for key, value := range nonNegative {
		if value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", key, value))
		}
	}

	percents := map[string]int{
		"REFUND_LATE_CANCELLATION_PERCENT": c.Lifecycle.LateCancellationRefundPercent,
		"REFUND_POST_CHECK_IN_PERCENT":     c.Lifecycle.PostCheckInRefundPercent,
	}
	for key, value := range percents {
		if value < 0 || value > 100 {
			errs = append(errs, fmt.Errorf("%s must be between 0 and 100, got %d", key, value))
		}
	}

	if c.Jobs.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("JOBS_BATCH_SIZE must be positive, got %d", c.Jobs.BatchSize))
	}

	return errors.Join(errs...)
}
