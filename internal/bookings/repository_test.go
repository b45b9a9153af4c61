package bookings_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"staydesk/internal/bookings"
	"staydesk/internal/bookings/bookingstest"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateBookingStatus_StaleVersionRace(t *testing.T) {
	store := bookingstest.NewStore(t)
	ctx := context.Background()
	b := bookingstest.Fixture(t, store, nil)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.UpdateBookingStatus(ctx, b.ID, bookings.StatusUpdate{
				Status:         bookings.StatusConfirmed,
				PaymentStatus:  bookings.PaymentUnpaid,
				AmountPaid:     decimal.Zero,
				AmountRefunded: decimal.Zero,
				AmountCredited: decimal.Zero,
			}, b.Version)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, bookings.ErrConcurrentModification):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, writers-1, conflicts)

	got, err := store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Version+1, got.Version)
}

func TestUpdateBookingStatus_MissingBooking(t *testing.T) {
	store := bookingstest.NewStore(t)

	_, err := store.UpdateBookingStatus(context.Background(), uuid.New(), bookings.StatusUpdate{Status: bookings.StatusConfirmed}, 1)
	assert.ErrorIs(t, err, bookings.ErrNotFound)
}

func TestGetBooking_LoadsRooms(t *testing.T) {
	store := bookingstest.NewStore(t)
	roomA, roomB := uuid.New(), uuid.New()
	b := bookingstest.Fixture(t, store, func(b *bookings.Booking) {
		b.Rooms = []bookings.BookingRoom{{RoomID: roomA}, {RoomID: roomB}}
	})

	got, err := store.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{roomA, roomB}, got.RoomIDs())
	assert.Equal(t, "300.00", got.TotalAmount.StringFixed(2))
}

func TestListBookings_Filters(t *testing.T) {
	store := bookingstest.NewStore(t)
	ctx := context.Background()
	guest := uuid.New()

	bookingstest.Fixture(t, store, func(b *bookings.Booking) { b.GuestID = guest })
	bookingstest.Fixture(t, store, func(b *bookings.Booking) {
		b.GuestID = guest
		b.Status = bookings.StatusConfirmed
	})
	bookingstest.Fixture(t, store, func(b *bookings.Booking) { b.Status = bookings.StatusConfirmed })

	list, total, err := store.ListBookings(ctx, bookings.BookingListQuery{GuestID: guest.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	list, total, err = store.ListBookings(ctx, bookings.BookingListQuery{Status: string(bookings.StatusConfirmed), Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 1)
	assert.Equal(t, 2, bookings.CalculateTotalPages(total, 1))
}

func TestListStaleBookings(t *testing.T) {
	store := bookingstest.NewStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	overdue := bookingstest.Fixture(t, store, func(b *bookings.Booking) {
		b.Status = bookings.StatusConfirmed
		b.CheckIn = now.Add(-48 * time.Hour)
		b.CheckOut = now.Add(24 * time.Hour)
	})
	bookingstest.Fixture(t, store, func(b *bookings.Booking) { b.Status = bookings.StatusConfirmed })
	bookingstest.Fixture(t, store, func(b *bookings.Booking) {
		b.Status = bookings.StatusPending
		b.CheckIn = now.Add(-48 * time.Hour)
		b.CheckOut = now.Add(24 * time.Hour)
	})

	stale, err := store.ListStaleBookings(ctx, bookings.StatusConfirmed, bookings.DueCheckIn, now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, overdue.ID, stale[0].ID)

	_, err = store.ListStaleBookings(ctx, bookings.StatusConfirmed, bookings.DueField("created_at; DROP TABLE bookings"), now, 10)
	assert.Error(t, err)
}

func TestUpdateRefundStatus_CompareAndSwap(t *testing.T) {
	store := bookingstest.NewStore(t)
	ctx := context.Background()
	b := bookingstest.Fixture(t, store, nil)
	staff := bookings.StaffActor(uuid.New())

	req := &bookings.RefundRequest{
		BookingID:       b.ID,
		Amount:          decimal.NewFromInt(50),
		Status:          bookings.RefundRequested,
		RequestedByKind: bookings.ActorGuest,
		RequestedByID:   b.GuestID,
	}
	require.NoError(t, store.CreateRefundRequest(ctx, req))

	approved, err := store.UpdateRefundStatus(ctx, req.ID, bookings.RefundRequested, bookings.RefundApproved, staff, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, bookings.RefundApproved, approved.Status)
	require.NotNil(t, approved.DecidedByID)
	assert.Equal(t, staff.ID, *approved.DecidedByID)

	_, err = store.UpdateRefundStatus(ctx, req.ID, bookings.RefundRequested, bookings.RefundRejected, staff, time.Now().UTC())
	assert.ErrorIs(t, err, bookings.ErrInvalidTransition)

	_, err = store.UpdateRefundStatus(ctx, req.ID, bookings.RefundRequested, bookings.RefundProcessed, staff, time.Now().UTC())
	assert.ErrorIs(t, err, bookings.ErrInvalidTransition)

	_, err = store.UpdateRefundStatus(ctx, uuid.New(), bookings.RefundRequested, bookings.RefundApproved, staff, time.Now().UTC())
	assert.ErrorIs(t, err, bookings.ErrNotFound)
}

func TestCreditNote_IsImmutable(t *testing.T) {
	db := bookingstest.NewDB(t)
	store := bookings.NewRepository(db)
	ctx := context.Background()
	b := bookingstest.Fixture(t, store, nil)

	note := &bookings.CreditNote{
		BookingID:    b.ID,
		Amount:       decimal.NewFromInt(25),
		Reason:       "late check-in",
		IssuedByKind: bookings.ActorStaff,
		IssuedByID:   uuid.New(),
		IssuedAt:     time.Now().UTC(),
	}
	require.NoError(t, store.CreateCreditNote(ctx, note))

	note.Amount = decimal.NewFromInt(2500)
	assert.ErrorIs(t, db.Save(note).Error, bookings.ErrImmutable)
	assert.ErrorIs(t, db.Delete(note).Error, bookings.ErrImmutable)

	stored, err := store.GetCreditNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "25.00", stored.Amount.StringFixed(2))
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	store := bookingstest.NewStore(t)
	ctx := context.Background()
	b := bookingstest.Fixture(t, store, nil)
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx bookings.Store) error {
		if _, err := tx.UpdateBookingStatus(ctx, b.ID, bookings.StatusUpdate{
			Status:         bookings.StatusConfirmed,
			PaymentStatus:  bookings.PaymentUnpaid,
			AmountPaid:     decimal.Zero,
			AmountRefunded: decimal.Zero,
			AmountCredited: decimal.Zero,
		}, b.Version); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusPending, got.Status)
	assert.Equal(t, int64(1), got.Version)
}
