package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DueField selects the date column a stale-booking sweep compares against
type DueField string

const (
	DueCheckIn  DueField = "check_in"
	DueCheckOut DueField = "check_out"
)

// StatusUpdate carries the full post-transition state written by UpdateBookingStatus
type StatusUpdate struct {
	Status             Status
	PaymentStatus      PaymentStatus
	AmountPaid         decimal.Decimal
	AmountRefunded     decimal.Decimal
	AmountCredited     decimal.Decimal
	CancelledAt        *time.Time
	CancellationReason string
}

// BookingListQuery filters booking listings
type BookingListQuery struct {
	Status        string `form:"status"`
	PaymentStatus string `form:"payment_status"`
	GuestID       string `form:"guest_id"`
	PropertyID    string `form:"property_id"`
	CheckInFrom   string `form:"check_in_from"`
	CheckInTo     string `form:"check_in_to"`
	Page          int    `form:"page"`
	Limit         int    `form:"limit"`
}

// Store is the persistence collaborator of the lifecycle manager.
// WithinTx is the single transactional boundary; the Store passed to fn
// is bound to that transaction.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	// Bookings
	CreateBooking(ctx context.Context, booking *Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error)
	ListBookings(ctx context.Context, query BookingListQuery) ([]Booking, int64, error)
	ListStaleBookings(ctx context.Context, status Status, field DueField, before time.Time, limit int) ([]Booking, error)
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, update StatusUpdate, expectedVersion int64) (*Booking, error)

	// Refund requests
	CreateRefundRequest(ctx context.Context, req *RefundRequest) error
	GetRefundRequest(ctx context.Context, id uuid.UUID) (*RefundRequest, error)
	ListRefundRequests(ctx context.Context, bookingID uuid.UUID) ([]RefundRequest, error)
	UpdateRefundStatus(ctx context.Context, id uuid.UUID, from, to RefundStatus, actor Actor, at time.Time) (*RefundRequest, error)

	// Credit notes
	CreateCreditNote(ctx context.Context, note *CreditNote) error
	GetCreditNote(ctx context.Context, id uuid.UUID) (*CreditNote, error)
	ListCreditNotes(ctx context.Context, bookingID uuid.UUID) ([]CreditNote, error)

	// Audit
	RecordTransition(ctx context.Context, transition *StatusTransition) error
	ListTransitions(ctx context.Context, bookingID uuid.UUID) ([]StatusTransition, error)
}
