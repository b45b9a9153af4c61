// Package bookingstest provides an in-memory store and a recording emitter
// for tests of packages built on the lifecycle manager.
package bookingstest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"staydesk/internal/bookings"
	"staydesk/internal/shared/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database private to the test
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// SQLite allows one writer; a single connection serialises transactions
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// NewStore returns a GORM store over a fresh database
func NewStore(t testing.TB) bookings.Store {
	return bookings.NewRepository(NewDB(t))
}

// Fixture inserts a booking with sensible defaults; mutate adjusts it before insert
func Fixture(t testing.TB, store bookings.Store, mutate func(b *bookings.Booking)) *bookings.Booking {
	t.Helper()

	checkIn := time.Now().UTC().Add(7 * 24 * time.Hour).Truncate(time.Second)
	b := &bookings.Booking{
		PropertyID:     uuid.New(),
		GuestID:        uuid.New(),
		GuestEmail:     "guest@example.com",
		GuestName:      "Ada Guest",
		CheckIn:        checkIn,
		CheckOut:       checkIn.Add(3 * 24 * time.Hour),
		TotalAmount:    decimal.NewFromInt(300),
		Currency:       "USD",
		Status:         bookings.StatusPending,
		PaymentStatus:  bookings.PaymentUnpaid,
		AmountPaid:     decimal.Zero,
		AmountRefunded: decimal.Zero,
		AmountCredited: decimal.Zero,
		Version:        1,
		Rooms:          []bookings.BookingRoom{{RoomID: uuid.New()}},
	}
	if mutate != nil {
		mutate(b)
	}

	require.NoError(t, store.CreateBooking(context.Background(), b))
	return b
}

// RecordedEvent is one call to RecordingEmitter.Emit
type RecordedEvent struct {
	Type    string
	Payload interface{}
}

// RecordingEmitter keeps every emitted event in memory
type RecordingEmitter struct {
	mu     sync.Mutex
	events []RecordedEvent
}

func (e *RecordingEmitter) Emit(_ context.Context, eventType string, payload interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, RecordedEvent{Type: eventType, Payload: payload})
	return nil
}

// Events returns a copy of the recorded events
func (e *RecordingEmitter) Events() []RecordedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]RecordedEvent, len(e.events))
	copy(out, e.events)
	return out
}

// Types returns the recorded event types in emission order
func (e *RecordingEmitter) Types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	types := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		types = append(types, ev.Type)
	}
	return types
}

// Reset drops the recorded events
func (e *RecordingEmitter) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = nil
}
