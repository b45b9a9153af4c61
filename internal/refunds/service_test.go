package refunds_test

import (
	"context"
	"testing"
	"time"

	"staydesk/internal/bookings"
	"staydesk/internal/bookings/bookingstest"
	"staydesk/internal/refunds"
	"staydesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	service refunds.Service
	store   bookings.Store
	emitter *bookingstest.RecordingEmitter
}

func newHarness(t *testing.T) harness {
	t.Helper()
	store := bookingstest.NewStore(t)
	emitter := &bookingstest.RecordingEmitter{}
	m := bookings.NewManager(store, emitter, logger.Discard(), bookings.ManagerConfig{
		TransitionTimeout: 5 * time.Second,
		RefundPolicy:      bookings.DefaultRefundPolicy(),
	})
	return harness{
		service: refunds.NewService(store, m, logger.Discard()),
		store:   store,
		emitter: emitter,
	}
}

func paidBooking(t *testing.T, store bookings.Store) *bookings.Booking {
	return bookingstest.Fixture(t, store, func(b *bookings.Booking) {
		b.Status = bookings.StatusConfirmed
		b.PaymentStatus = bookings.PaymentPaid
		b.TotalAmount = decimal.NewFromInt(500)
		b.AmountPaid = decimal.NewFromInt(500)
	})
}

func refundReq(amount int64) refunds.CreateRefundRequest {
	return refunds.CreateRefundRequest{Amount: decimal.NewFromInt(amount), Reason: "plans changed"}
}

func TestRequestRefund_GuestOwnBooking(t *testing.T) {
	h := newHarness(t)
	b := paidBooking(t, h.store)

	r, err := h.service.RequestRefund(context.Background(), bookings.GuestActor(b.GuestID), b.ID, refundReq(200))
	require.NoError(t, err)
	assert.Equal(t, bookings.RefundRequested, r.Status)
	assert.Equal(t, "200.00", r.Amount.StringFixed(2))
	assert.Equal(t, bookings.ActorGuest, r.RequestedByKind)
	assert.Equal(t, b.GuestID, r.RequestedByID)
	assert.Equal(t, []string{bookings.EventRefundRequested}, h.emitter.Types())
}

func TestRequestRefund_Rules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	staff := bookings.StaffActor(uuid.New())

	t.Run("another guest", func(t *testing.T) {
		b := paidBooking(t, h.store)
		_, err := h.service.RequestRefund(ctx, bookings.GuestActor(uuid.New()), b.ID, refundReq(10))
		assert.ErrorIs(t, err, bookings.ErrForbidden)
	})

	t.Run("amount above refundable", func(t *testing.T) {
		b := paidBooking(t, h.store)
		_, err := h.service.RequestRefund(ctx, staff, b.ID, refundReq(501))
		assert.ErrorIs(t, err, bookings.ErrValidation)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		b := paidBooking(t, h.store)
		_, err := h.service.RequestRefund(ctx, staff, b.ID, refundReq(0))
		assert.ErrorIs(t, err, bookings.ErrValidation)
	})

	t.Run("missing reason", func(t *testing.T) {
		b := paidBooking(t, h.store)
		_, err := h.service.RequestRefund(ctx, staff, b.ID, refunds.CreateRefundRequest{Amount: decimal.NewFromInt(5)})
		assert.ErrorIs(t, err, bookings.ErrValidation)
	})

	t.Run("nothing paid", func(t *testing.T) {
		b := bookingstest.Fixture(t, h.store, nil)
		_, err := h.service.RequestRefund(ctx, staff, b.ID, refundReq(10))
		assert.ErrorIs(t, err, bookings.ErrValidation)
	})

	t.Run("one open request per booking", func(t *testing.T) {
		b := paidBooking(t, h.store)
		_, err := h.service.RequestRefund(ctx, staff, b.ID, refundReq(10))
		require.NoError(t, err)
		_, err = h.service.RequestRefund(ctx, staff, b.ID, refundReq(10))
		assert.ErrorIs(t, err, bookings.ErrValidation)
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := h.service.RequestRefund(ctx, staff, uuid.New(), refundReq(10))
		assert.ErrorIs(t, err, bookings.ErrNotFound)
	})
}

func TestApproveAndProcess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := paidBooking(t, h.store)
	staff := bookings.StaffActor(uuid.New())

	r, err := h.service.RequestRefund(ctx, bookings.GuestActor(b.GuestID), b.ID, refundReq(200))
	require.NoError(t, err)

	_, _, err = h.service.Process(ctx, staff, r.ID)
	assert.ErrorIs(t, err, bookings.ErrRefundRequired, "a requested refund is not evidence yet")

	_, err = h.service.Approve(ctx, bookings.GuestActor(b.GuestID), r.ID)
	assert.ErrorIs(t, err, bookings.ErrForbidden)

	approved, err := h.service.Approve(ctx, staff, r.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings.RefundApproved, approved.Status)

	_, err = h.service.Reject(ctx, staff, r.ID)
	assert.ErrorIs(t, err, bookings.ErrInvalidTransition)

	h.emitter.Reset()
	processed, booking, err := h.service.Process(ctx, staff, r.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings.RefundProcessed, processed.Status)
	assert.Equal(t, bookings.PaymentPartiallyRefunded, booking.PaymentStatus)
	assert.Equal(t, "200.00", booking.AmountRefunded.StringFixed(2))
	assert.Equal(t, bookings.StatusConfirmed, booking.Status)
	assert.Equal(t, []string{bookings.EventBookingPaymentStatusChanged, bookings.EventRefundProcessed}, h.emitter.Types())

	_, _, err = h.service.Process(ctx, staff, r.ID)
	assert.ErrorIs(t, err, bookings.ErrInvalidTransition)

	// the processed request is closed, so a new one may be opened for the rest
	next, err := h.service.RequestRefund(ctx, staff, b.ID, refundReq(300))
	require.NoError(t, err)
	assert.Equal(t, bookings.RefundRequested, next.Status)
}

func TestReject(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := paidBooking(t, h.store)
	staff := bookings.StaffActor(uuid.New())

	r, err := h.service.RequestRefund(ctx, staff, b.ID, refundReq(100))
	require.NoError(t, err)

	rejected, err := h.service.Reject(ctx, staff, r.ID)
	require.NoError(t, err)
	assert.Equal(t, bookings.RefundRejected, rejected.Status)
	require.NotNil(t, rejected.DecidedByID)
	assert.Equal(t, staff.ID, *rejected.DecidedByID)

	_, err = h.service.Approve(ctx, staff, r.ID)
	assert.ErrorIs(t, err, bookings.ErrInvalidTransition)

	_, _, err = h.service.Process(ctx, staff, r.ID)
	assert.ErrorIs(t, err, bookings.ErrRefundRequired)

	assert.Contains(t, h.emitter.Types(), bookings.EventRefundRejected)
}

func TestListAndGet_Access(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b := paidBooking(t, h.store)
	owner := bookings.GuestActor(b.GuestID)
	stranger := bookings.GuestActor(uuid.New())

	r, err := h.service.RequestRefund(ctx, owner, b.ID, refundReq(50))
	require.NoError(t, err)

	list, err := h.service.ListForBooking(ctx, owner, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, r.ID, list[0].ID)

	_, err = h.service.ListForBooking(ctx, stranger, b.ID)
	assert.ErrorIs(t, err, bookings.ErrForbidden)

	got, err := h.service.Get(ctx, owner, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = h.service.Get(ctx, stranger, r.ID)
	assert.ErrorIs(t, err, bookings.ErrForbidden)

	_, err = h.service.Get(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, bookings.ErrNotFound)
}
