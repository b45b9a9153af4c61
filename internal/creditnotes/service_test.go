package creditnotes_test

import (
	"context"
	"testing"
	"time"

	"staydesk/internal/bookings"
	"staydesk/internal/bookings/bookingstest"
	"staydesk/internal/creditnotes"
	"staydesk/internal/refunds"
	"staydesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (creditnotes.Service, bookings.Store, *bookingstest.RecordingEmitter) {
	t.Helper()
	store := bookingstest.NewStore(t)
	emitter := &bookingstest.RecordingEmitter{}
	m := bookings.NewManager(store, emitter, logger.Discard(), bookings.ManagerConfig{
		TransitionTimeout: 5 * time.Second,
		RefundPolicy:      bookings.DefaultRefundPolicy(),
	})
	return creditnotes.NewService(store, m, logger.Discard()), store, emitter
}

func paidBooking(t *testing.T, store bookings.Store) *bookings.Booking {
	return bookingstest.Fixture(t, store, func(b *bookings.Booking) {
		b.Status = bookings.StatusConfirmed
		b.PaymentStatus = bookings.PaymentPaid
		b.TotalAmount = decimal.NewFromInt(400)
		b.AmountPaid = decimal.NewFromInt(400)
	})
}

func issueReq(amount int64) creditnotes.IssueCreditNoteRequest {
	return creditnotes.IssueCreditNoteRequest{
		Amount:     decimal.NewFromInt(amount),
		Reason:     "broken air conditioning",
		InvoiceRef: "INV-1042",
	}
}

func TestIssue(t *testing.T) {
	svc, store, emitter := newService(t)
	ctx := context.Background()
	b := paidBooking(t, store)
	staff := bookings.StaffActor(uuid.New())

	note, booking, err := svc.Issue(ctx, staff, b.ID, issueReq(150))
	require.NoError(t, err)
	assert.Equal(t, "150.00", note.Amount.StringFixed(2))
	assert.Equal(t, "INV-1042", note.InvoiceRef)
	assert.Equal(t, bookings.ActorStaff, note.IssuedByKind)
	assert.Equal(t, staff.ID, note.IssuedByID)
	assert.False(t, note.IssuedAt.IsZero())

	assert.Equal(t, "150.00", booking.AmountCredited.StringFixed(2))
	assert.Equal(t, bookings.PaymentPartiallyRefunded, booking.PaymentStatus)
	assert.Equal(t, b.Version+1, booking.Version)
	assert.Equal(t, []string{bookings.EventBookingPaymentStatusChanged, bookings.EventCreditNoteIssued}, emitter.Types())

	// the remaining 250 can still be credited, but not more
	_, _, err = svc.Issue(ctx, staff, b.ID, issueReq(251))
	assert.ErrorIs(t, err, bookings.ErrValidation)

	_, booking, err = svc.Issue(ctx, staff, b.ID, issueReq(250))
	require.NoError(t, err)
	assert.Equal(t, bookings.PaymentRefunded, booking.PaymentStatus)

	notes, err := svc.ListForBooking(ctx, bookings.GuestActor(b.GuestID), b.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestIssue_Rules(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	b := paidBooking(t, store)
	staff := bookings.StaffActor(uuid.New())

	_, _, err := svc.Issue(ctx, bookings.GuestActor(b.GuestID), b.ID, issueReq(10))
	assert.ErrorIs(t, err, bookings.ErrForbidden)

	_, _, err = svc.Issue(ctx, staff, b.ID, issueReq(0))
	assert.ErrorIs(t, err, bookings.ErrValidation)

	_, _, err = svc.Issue(ctx, staff, b.ID, creditnotes.IssueCreditNoteRequest{Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, bookings.ErrValidation)

	_, _, err = svc.Issue(ctx, staff, uuid.New(), issueReq(10))
	assert.ErrorIs(t, err, bookings.ErrNotFound)

	unpaid := bookingstest.Fixture(t, store, nil)
	_, _, err = svc.Issue(ctx, staff, unpaid.ID, issueReq(10))
	assert.ErrorIs(t, err, bookings.ErrValidation)
}

func TestGet_Access(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	b := paidBooking(t, store)

	note, _, err := svc.Issue(ctx, bookings.SystemActor(), b.ID, issueReq(20))
	require.NoError(t, err)

	got, err := svc.Get(ctx, bookings.GuestActor(b.GuestID), note.ID)
	require.NoError(t, err)
	assert.Equal(t, note.ID, got.ID)

	_, err = svc.Get(ctx, bookings.GuestActor(uuid.New()), note.ID)
	assert.ErrorIs(t, err, bookings.ErrForbidden)

	_, err = svc.ListForBooking(ctx, bookings.GuestActor(uuid.New()), b.ID)
	assert.ErrorIs(t, err, bookings.ErrForbidden)

	_, err = svc.Get(ctx, bookings.StaffActor(uuid.New()), uuid.New())
	assert.ErrorIs(t, err, bookings.ErrNotFound)
}

func TestIssue_SharesCapWithOpenRefund(t *testing.T) {
	store := bookingstest.NewStore(t)
	m := bookings.NewManager(store, &bookingstest.RecordingEmitter{}, logger.Discard(), bookings.ManagerConfig{
		TransitionTimeout: 5 * time.Second,
		RefundPolicy:      bookings.DefaultRefundPolicy(),
	})
	notes := creditnotes.NewService(store, m, logger.Discard())
	refundSvc := refunds.NewService(store, m, logger.Discard())
	ctx := context.Background()
	staff := bookings.StaffActor(uuid.New())

	// inside the free cancellation window only half is refundable
	b := bookingstest.Fixture(t, store, func(b *bookings.Booking) {
		b.Status = bookings.StatusConfirmed
		b.PaymentStatus = bookings.PaymentPaid
		b.TotalAmount = decimal.NewFromInt(1000)
		b.AmountPaid = decimal.NewFromInt(1000)
		b.CheckIn = time.Now().UTC().Add(24 * time.Hour)
		b.CheckOut = b.CheckIn.Add(48 * time.Hour)
	})

	refund, err := refundSvc.RequestRefund(ctx, bookings.GuestActor(b.GuestID), b.ID, refunds.CreateRefundRequest{
		Amount: decimal.NewFromInt(500),
		Reason: "plans changed",
	})
	require.NoError(t, err)

	_, _, err = notes.Issue(ctx, staff, b.ID, issueReq(500))
	assert.ErrorIs(t, err, bookings.ErrValidation)
	_, _, err = notes.Issue(ctx, staff, b.ID, issueReq(1))
	assert.ErrorIs(t, err, bookings.ErrValidation)

	_, err = refundSvc.Approve(ctx, staff, refund.ID)
	require.NoError(t, err)
	_, booking, err := refundSvc.Process(ctx, staff, refund.ID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", booking.AmountRefunded.StringFixed(2))
	assert.True(t, booking.AmountCredited.IsZero())
	assert.Equal(t, bookings.PaymentPartiallyRefunded, booking.PaymentStatus)

	_, _, err = notes.Issue(ctx, staff, b.ID, issueReq(1))
	assert.ErrorIs(t, err, bookings.ErrValidation)
}
