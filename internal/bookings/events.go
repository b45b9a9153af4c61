package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lifecycle event types published to the notification collaborator
const (
	EventBookingCreated              = "booking.created"
	EventBookingStatusChanged        = "booking.status_changed"
	EventBookingPaymentStatusChanged = "booking.payment_status_changed"
	EventRefundRequested             = "refund.requested"
	EventRefundApproved              = "refund.approved"
	EventRefundRejected              = "refund.rejected"
	EventRefundProcessed             = "refund.processed"
	EventCreditNoteIssued            = "credit_note.issued"
)

// EventEmitter hands lifecycle events to the notification collaborator.
// Implementations must not block on delivery.
type EventEmitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

// NopEmitter drops every event
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, interface{}) error { return nil }

// StatusChangedPayload is the payload of booking.created, booking.status_changed
// and booking.payment_status_changed
type StatusChangedPayload struct {
	BookingID        uuid.UUID       `json:"booking_id"`
	PropertyID       uuid.UUID       `json:"property_id"`
	GuestID          uuid.UUID       `json:"guest_id"`
	GuestEmail       string          `json:"guest_email"`
	GuestName        string          `json:"guest_name,omitempty"`
	CheckIn          time.Time       `json:"check_in"`
	CheckOut         time.Time       `json:"check_out"`
	OldStatus        Status          `json:"old_status,omitempty"`
	NewStatus        Status          `json:"new_status"`
	OldPaymentStatus PaymentStatus   `json:"old_payment_status,omitempty"`
	NewPaymentStatus PaymentStatus   `json:"new_payment_status"`
	AmountPaid       decimal.Decimal `json:"amount_paid"`
	AmountRefunded   decimal.Decimal `json:"amount_refunded"`
	AmountCredited   decimal.Decimal `json:"amount_credited"`
	Currency         string          `json:"currency"`
	Actor            Actor           `json:"actor"`
	Reason           string          `json:"reason,omitempty"`
	RefundRequestID  *uuid.UUID      `json:"refund_request_id,omitempty"`
	Version          int64           `json:"version"`
	OccurredAt       time.Time       `json:"occurred_at"`
}

// RefundEventPayload is the payload of the refund.* events
type RefundEventPayload struct {
	BookingID       uuid.UUID       `json:"booking_id"`
	RefundRequestID uuid.UUID       `json:"refund_request_id"`
	GuestEmail      string          `json:"guest_email"`
	GuestName       string          `json:"guest_name,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Status          RefundStatus    `json:"status"`
	Reason          string          `json:"reason,omitempty"`
	Actor           Actor           `json:"actor"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

// CreditNoteEventPayload is the payload of credit_note.issued
type CreditNoteEventPayload struct {
	BookingID    uuid.UUID       `json:"booking_id"`
	CreditNoteID uuid.UUID       `json:"credit_note_id"`
	GuestEmail   string          `json:"guest_email"`
	GuestName    string          `json:"guest_name,omitempty"`
	InvoiceRef   string          `json:"invoice_ref,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Reason       string          `json:"reason"`
	Actor        Actor           `json:"actor"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

func newStatusChangedPayload(before, after *Booking, actor Actor, reason string, refundID *uuid.UUID, at time.Time) StatusChangedPayload {
	p := StatusChangedPayload{
		BookingID:        after.ID,
		PropertyID:       after.PropertyID,
		GuestID:          after.GuestID,
		GuestEmail:       after.GuestEmail,
		GuestName:        after.GuestName,
		CheckIn:          after.CheckIn,
		CheckOut:         after.CheckOut,
		NewStatus:        after.Status,
		NewPaymentStatus: after.PaymentStatus,
		AmountPaid:       after.AmountPaid,
		AmountRefunded:   after.AmountRefunded,
		AmountCredited:   after.AmountCredited,
		Currency:         after.Currency,
		Actor:            actor,
		Reason:           reason,
		RefundRequestID:  refundID,
		Version:          after.Version,
		OccurredAt:       at,
	}
	if before != nil {
		p.OldStatus = before.Status
		p.OldPaymentStatus = before.PaymentStatus
	}
	return p
}

// NewRefundEventPayload builds the payload for a refund.* event
func NewRefundEventPayload(b *Booking, r *RefundRequest, actor Actor, at time.Time) RefundEventPayload {
	return RefundEventPayload{
		BookingID:       b.ID,
		RefundRequestID: r.ID,
		GuestEmail:      b.GuestEmail,
		GuestName:       b.GuestName,
		Amount:          r.Amount,
		Currency:        b.Currency,
		Status:          r.Status,
		Reason:          r.Reason,
		Actor:           actor,
		OccurredAt:      at,
	}
}
