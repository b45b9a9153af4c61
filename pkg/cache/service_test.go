package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real Redis when REDIS_TEST_ADDR is set, e.g. localhost:6379
func newTestService(t *testing.T) Service {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client, err := Connect(context.Background(), Config{Address: addr, DB: 15})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewService(client)
}

func TestSetNX(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	key := "staydesk:test:setnx:" + uuid.NewString()
	t.Cleanup(func() { _ = svc.Delete(ctx, key) })

	first, err := svc.SetNX(ctx, key, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := svc.SetNX(ctx, key, "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	var got string
	require.NoError(t, svc.Get(ctx, key, &got))
	assert.Equal(t, "a", got)

	require.NoError(t, svc.Delete(ctx, key))
	assert.False(t, svc.Exists(ctx, key))
	assert.ErrorIs(t, svc.Get(ctx, key, &got), ErrCacheMiss)
}

func TestConnect_EmptyAddress(t *testing.T) {
	_, err := Connect(context.Background(), Config{})
	assert.Error(t, err)
}

func TestNewConfigFromRedisConfig(t *testing.T) {
	cfg := NewConfigFromRedisConfig(RedisConfig{Host: "cache", Port: "6380", DB: 2})
	assert.Equal(t, "cache:6380", cfg.Address)
	assert.Equal(t, 2, cfg.DB)

	cfg = NewConfigFromRedisConfig(RedisConfig{Addr: "other:6379", Host: "ignored"})
	assert.Equal(t, "other:6379", cfg.Address)
}
