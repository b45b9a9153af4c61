package bookings_test

import (
	"testing"

	"staydesk/internal/bookings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_EveryStatusHasAnAdjacencyEntry(t *testing.T) {
	for _, s := range bookings.AllStatuses {
		assert.True(t, s.IsValid(), "status %s", s)
	}
	for _, p := range bookings.AllPaymentStatuses {
		assert.True(t, p.IsValid(), "payment status %s", p)
	}
}

func TestStatus_TerminalStatusesHaveNoExits(t *testing.T) {
	for _, s := range bookings.AllStatuses {
		if !s.IsTerminal() {
			continue
		}
		assert.Empty(t, s.AllowedNext(), "terminal status %s", s)
		for _, next := range bookings.AllStatuses {
			assert.False(t, s.CanTransitionTo(next), "%s -> %s", s, next)
		}
	}
	assert.True(t, bookings.StatusCompleted.IsTerminal())
	assert.True(t, bookings.StatusCancelled.IsTerminal())
	assert.False(t, bookings.StatusNoShow.IsTerminal())
}

func TestStatus_Adjacency(t *testing.T) {
	tests := []struct {
		from, to bookings.Status
		allowed  bool
	}{
		{bookings.StatusPending, bookings.StatusConfirmed, true},
		{bookings.StatusPending, bookings.StatusCancelled, true},
		{bookings.StatusPending, bookings.StatusCheckedIn, false},
		{bookings.StatusConfirmed, bookings.StatusCheckedIn, true},
		{bookings.StatusConfirmed, bookings.StatusNoShow, true},
		{bookings.StatusConfirmed, bookings.StatusCompleted, false},
		{bookings.StatusCheckedIn, bookings.StatusCompleted, true},
		{bookings.StatusCheckedIn, bookings.StatusCancelled, false},
		{bookings.StatusNoShow, bookings.StatusCheckedIn, true},
		{bookings.StatusNoShow, bookings.StatusCancelled, true},
		{bookings.StatusNoShow, bookings.StatusConfirmed, false},
		{bookings.StatusConfirmed, bookings.StatusConfirmed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestPaymentStatus_Adjacency(t *testing.T) {
	assert.True(t, bookings.PaymentUnpaid.CanTransitionTo(bookings.PaymentPaid))
	assert.True(t, bookings.PaymentPartiallyPaid.CanTransitionTo(bookings.PaymentPartiallyPaid))
	assert.True(t, bookings.PaymentPaid.CanTransitionTo(bookings.PaymentPartiallyRefunded))
	assert.True(t, bookings.PaymentPartiallyRefunded.CanTransitionTo(bookings.PaymentRefunded))
	assert.False(t, bookings.PaymentUnpaid.CanTransitionTo(bookings.PaymentRefunded))
	assert.False(t, bookings.PaymentRefunded.CanTransitionTo(bookings.PaymentPaid))
	assert.False(t, bookings.PaymentPaid.CanTransitionTo(bookings.PaymentUnpaid))
}

func TestParseStatus(t *testing.T) {
	s, err := bookings.ParseStatus("checked_in")
	require.NoError(t, err)
	assert.Equal(t, bookings.StatusCheckedIn, s)

	_, err = bookings.ParseStatus("archived")
	assert.Error(t, err)

	_, err = bookings.ParsePaymentStatus("overpaid")
	assert.Error(t, err)
}

func TestRefundStatus_Edges(t *testing.T) {
	assert.True(t, bookings.RefundRequested.CanTransitionTo(bookings.RefundApproved))
	assert.True(t, bookings.RefundRequested.CanTransitionTo(bookings.RefundRejected))
	assert.True(t, bookings.RefundApproved.CanTransitionTo(bookings.RefundProcessed))
	assert.False(t, bookings.RefundRequested.CanTransitionTo(bookings.RefundProcessed))
	assert.False(t, bookings.RefundRejected.CanTransitionTo(bookings.RefundApproved))
	assert.True(t, bookings.RefundApproved.CoversRefund())
	assert.False(t, bookings.RefundRequested.CoversRefund())
}
