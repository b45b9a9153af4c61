package jobs_test

import (
	"context"
	"testing"
	"time"

	"staydesk/internal/bookings"
	"staydesk/internal/bookings/bookingstest"
	"staydesk/internal/jobs"
	"staydesk/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProcessor(t *testing.T) (*jobs.JobProcessor, bookings.Store, *bookingstest.RecordingEmitter) {
	t.Helper()
	store := bookingstest.NewStore(t)
	emitter := &bookingstest.RecordingEmitter{}
	manager := bookings.NewManager(store, emitter, logger.Discard(), bookings.ManagerConfig{})
	return jobs.NewJobProcessor(manager, store, jobs.DefaultJobConfig(), logger.Discard()), store, emitter
}

func TestSweepNoShows(t *testing.T) {
	jp, store, emitter := newProcessor(t)
	ctx := context.Background()
	now := time.Now().UTC()

	missed := bookingstest.Fixture(t, store, func(b *bookings.Booking) {
		b.Status = bookings.StatusConfirmed
		b.CheckIn = now.Add(-48 * time.Hour)
		b.CheckOut = now.Add(24 * time.Hour)
	})
	withinGrace := bookingstest.Fixture(t, store, func(b *bookings.Booking) {
		b.Status = bookings.StatusConfirmed
		b.CheckIn = now.Add(-time.Hour)
		b.CheckOut = now.Add(48 * time.Hour)
	})

	result, err := jp.SweepNoShows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Transitioned)

	got, err := store.GetBooking(ctx, missed.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusNoShow, got.Status)

	got, err = store.GetBooking(ctx, withinGrace.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusConfirmed, got.Status)

	assert.Equal(t, []string{bookings.EventBookingStatusChanged}, emitter.Types())

	// a second sweep finds nothing left to do
	result, err = jp.SweepNoShows(ctx)
	require.NoError(t, err)
	assert.Equal(t, jobs.SweepResult{}, result)
}

func TestSweepCompletions(t *testing.T) {
	jp, store, _ := newProcessor(t)
	ctx := context.Background()
	now := time.Now().UTC()

	finished := bookingstest.Fixture(t, store, func(b *bookings.Booking) {
		b.Status = bookings.StatusCheckedIn
		b.CheckIn = now.Add(-72 * time.Hour)
		b.CheckOut = now.Add(-3 * time.Hour)
	})
	staying := bookingstest.Fixture(t, store, func(b *bookings.Booking) {
		b.Status = bookings.StatusCheckedIn
		b.CheckIn = now.Add(-24 * time.Hour)
		b.CheckOut = now.Add(24 * time.Hour)
	})

	result, err := jp.SweepCompletions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Transitioned)

	got, err := store.GetBooking(ctx, finished.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusCompleted, got.Status)

	got, err = store.GetBooking(ctx, staying.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusCheckedIn, got.Status)
}

func TestStartStop(t *testing.T) {
	jp, _, _ := newProcessor(t)
	jp.Start(context.Background())
	jp.Stop()
	jp.Stop()

	status := jp.GetJobStatus()
	assert.Equal(t, 100, status["batch_size"])
}

func TestStart_NonPositiveIntervalsAndRepeatedStart(t *testing.T) {
	store := bookingstest.NewStore(t)
	manager := bookings.NewManager(store, nil, logger.Discard(), bookings.ManagerConfig{})
	jp := jobs.NewJobProcessor(manager, store, &jobs.JobConfig{
		NoShowInterval:   0,
		CompleteInterval: -time.Minute,
	}, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	jp.Start(ctx)
	jp.Start(ctx)
	jp.Stop()

	status := jp.GetJobStatus()
	assert.Equal(t, "15m0s", status["no_show_interval"])
	assert.Equal(t, "15m0s", status["complete_interval"])
	assert.Equal(t, 100, status["batch_size"])
}
