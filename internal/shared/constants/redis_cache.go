package constants

import (
	"fmt"
	"time"
)

// Redis key layout
// Pattern: staydesk:{module}:{operation}:{identifier}:{params?}

const (
	CACHE_PREFIX = "staydesk"
)

// ================== TTL DURATIONS ==================

const (
	TTL_NOTIFICATION_DEDUPE = 72 * time.Hour // lifecycle events are redelivered for at most a few days
	TTL_HEALTH_PROBE        = 10 * time.Second
)

// ================== NOTIFICATIONS MODULE ==================

const (
	// + {booking}:{status}:{unix-nano}
	CACHE_KEY_NOTIFICATION_DEDUPE = CACHE_PREFIX + ":notifications:dedupe:"
)

// ================== RATE LIMITING ==================

const (
	// + {client-ip}:{limit-type}
	CACHE_KEY_RATE_LIMIT = CACHE_PREFIX + ":ratelimit:"
)

// ================== HEALTH ==================

const (
	CACHE_KEY_HEALTH_PROBE = CACHE_PREFIX + ":health:probe"
)

// ================== HELPER FUNCTIONS ==================

// NotificationDedupeKey identifies one delivered notification.
// Example: staydesk:notifications:dedupe:8f0c...:cancelled:1760781600000000000
func NotificationDedupeKey(bookingID, status string, occurredAt time.Time) string {
	return fmt.Sprintf("%s%s:%s:%d", CACHE_KEY_NOTIFICATION_DEDUPE, bookingID, status, occurredAt.UnixNano())
}

// RateLimitKey identifies the request window of one client for one limit type
func RateLimitKey(clientIP, limitType string) string {
	return CACHE_KEY_RATE_LIMIT + clientIP + ":" + limitType
}
