package notifications

import (
	"context"
	"testing"
	"time"

	"staydesk/internal/bookings"
	"staydesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncEmitter_PublishesEnvelope(t *testing.T) {
	pub := &recordingPublisher{}
	e := NewAsyncEmitter(pub, 8, 2, logger.Discard())
	bookingID := uuid.New()

	require.NoError(t, e.Emit(context.Background(), bookings.EventBookingStatusChanged, bookings.StatusChangedPayload{
		BookingID: bookingID,
		NewStatus: bookings.StatusConfirmed,
	}))
	require.NoError(t, e.Close(context.Background()))

	envs := pub.published()
	require.Len(t, envs, 1)
	assert.Equal(t, bookings.EventBookingStatusChanged, envs[0].Type)
	assert.Equal(t, bookingID.String(), envs[0].BookingID)
	assert.NotEqual(t, uuid.Nil, envs[0].ID)
	assert.False(t, envs[0].OccurredAt.IsZero())
	assert.Contains(t, string(envs[0].Payload), `"new_status":"confirmed"`)
}

func TestAsyncEmitter_FullBufferDropsWithoutBlocking(t *testing.T) {
	pub := &recordingPublisher{block: make(chan struct{})}
	e := NewAsyncEmitter(pub, 1, 1, logger.Discard())
	ctx := context.Background()

	// the worker takes the first event and blocks in Publish, the second fills the buffer
	require.NoError(t, e.Emit(ctx, bookings.EventBookingCreated, bookings.StatusChangedPayload{BookingID: uuid.New()}))
	require.Eventually(t, func() bool { return len(e.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, e.Emit(ctx, bookings.EventBookingCreated, bookings.StatusChangedPayload{BookingID: uuid.New()}))

	done := make(chan error, 1)
	go func() {
		done <- e.Emit(ctx, bookings.EventBookingCreated, bookings.StatusChangedPayload{BookingID: uuid.New()})
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrBufferFull)
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}

	close(pub.block)
	require.NoError(t, e.Close(ctx))
	assert.Len(t, pub.published(), 2)
}

func TestAsyncEmitter_PublishFailureIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{fail: true}
	e := NewAsyncEmitter(pub, 4, 1, logger.Discard())

	assert.NoError(t, e.Emit(context.Background(), bookings.EventRefundRequested, bookings.RefundEventPayload{BookingID: uuid.New()}))
	assert.NoError(t, e.Close(context.Background()))
	assert.Empty(t, pub.published())
}

func TestAsyncEmitter_ClosedRejects(t *testing.T) {
	e := NewAsyncEmitter(&recordingPublisher{}, 4, 1, logger.Discard())
	require.NoError(t, e.Close(context.Background()))
	require.NoError(t, e.Close(context.Background()))

	err := e.Emit(context.Background(), bookings.EventBookingCreated, bookings.StatusChangedPayload{})
	assert.ErrorIs(t, err, ErrEmitterClosed)
}

func TestAsyncEmitter_UnmarshalablePayload(t *testing.T) {
	e := NewAsyncEmitter(&recordingPublisher{}, 4, 1, logger.Discard())
	defer e.Close(context.Background())

	err := e.Emit(context.Background(), "bad", map[string]interface{}{"ch": make(chan int)})
	assert.Error(t, err)
}
