package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"staydesk/internal/bookings"

	"github.com/google/uuid"
)

// Envelope is the wire format of a lifecycle event on the broker
type Envelope struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	BookingID  string          `json:"booking_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload for eventType. The booking id is read from the
// payload's booking_id field and used as the partition key.
func NewEnvelope(eventType string, payload interface{}, at time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	var keyed struct {
		BookingID string `json:"booking_id"`
	}
	_ = json.Unmarshal(raw, &keyed)

	return Envelope{
		ID:         uuid.New(),
		Type:       eventType,
		BookingID:  keyed.BookingID,
		OccurredAt: at.UTC(),
		Payload:    raw,
	}, nil
}

type NotificationType string

const (
	NotificationTypeBookingReceived  NotificationType = "BOOKING_RECEIVED"
	NotificationTypeBookingConfirmed NotificationType = "BOOKING_CONFIRMED"
	NotificationTypeBookingCancelled NotificationType = "BOOKING_CANCELLED"
	NotificationTypeBookingCheckedIn NotificationType = "BOOKING_CHECKED_IN"
	NotificationTypeBookingCompleted NotificationType = "BOOKING_COMPLETED"
	NotificationTypeBookingNoShow    NotificationType = "BOOKING_NO_SHOW"
	NotificationTypePaymentUpdated   NotificationType = "PAYMENT_UPDATED"
	NotificationTypeRefundRequested  NotificationType = "REFUND_REQUESTED"
	NotificationTypeRefundApproved   NotificationType = "REFUND_APPROVED"
	NotificationTypeRefundRejected   NotificationType = "REFUND_REJECTED"
	NotificationTypeRefundProcessed  NotificationType = "REFUND_PROCESSED"
	NotificationTypeCreditNoteIssued NotificationType = "CREDIT_NOTE_ISSUED"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusSending NotificationStatus = "SENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// EmailNotification is a guest-facing message derived from one lifecycle event
type EmailNotification struct {
	ID      uuid.UUID        `json:"id"`
	EventID uuid.UUID        `json:"event_id"`
	Type    NotificationType `json:"type"`

	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name"`

	Subject      string                 `json:"subject"`
	TemplateData map[string]interface{} `json:"template_data"`

	BookingID uuid.UUID `json:"booking_id"`

	// DedupeStatus is the status component of the deduplication key
	DedupeStatus string    `json:"dedupe_status"`
	OccurredAt   time.Time `json:"occurred_at"`

	Status     NotificationStatus `json:"status"`
	RetryCount int                `json:"retry_count"`
	LastError  *string            `json:"last_error,omitempty"`
	SentAt     *time.Time         `json:"sent_at,omitempty"`
}

func (en *EmailNotification) MarkSent() {
	now := time.Now()
	en.Status = NotificationStatusSent
	en.SentAt = &now
}

func (en *EmailNotification) MarkFailed(err error) {
	en.Status = NotificationStatusFailed
	errorStr := err.Error()
	en.LastError = &errorStr
}

// FromEnvelope builds the notification for a lifecycle event. ok is false for
// events that do not notify the guest.
func FromEnvelope(env Envelope) (n *EmailNotification, ok bool, err error) {
	switch env.Type {
	case bookings.EventBookingCreated, bookings.EventBookingStatusChanged, bookings.EventBookingPaymentStatusChanged:
		var p bookings.StatusChangedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, false, fmt.Errorf("failed to decode %s payload: %w", env.Type, err)
		}
		return fromStatusChange(env, p)

	case bookings.EventRefundRequested, bookings.EventRefundApproved, bookings.EventRefundRejected, bookings.EventRefundProcessed:
		var p bookings.RefundEventPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, false, fmt.Errorf("failed to decode %s payload: %w", env.Type, err)
		}
		n := newNotification(env, p.BookingID, p.GuestEmail, p.GuestName)
		n.Type = refundTypes[p.Status]
		n.DedupeStatus = "refund_" + string(p.Status)
		n.TemplateData = map[string]interface{}{
			"refund_request_id": p.RefundRequestID.String(),
			"amount":            p.Amount.StringFixed(2),
			"currency":          p.Currency,
			"reason":            p.Reason,
		}
		n.Subject = subjectFor(n.Type)
		return n, n.Type != "", nil

	case bookings.EventCreditNoteIssued:
		var p bookings.CreditNoteEventPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, false, fmt.Errorf("failed to decode %s payload: %w", env.Type, err)
		}
		n := newNotification(env, p.BookingID, p.GuestEmail, p.GuestName)
		n.Type = NotificationTypeCreditNoteIssued
		n.DedupeStatus = "credit_note_" + p.CreditNoteID.String()
		n.TemplateData = map[string]interface{}{
			"credit_note_id": p.CreditNoteID.String(),
			"invoice_ref":    p.InvoiceRef,
			"amount":         p.Amount.StringFixed(2),
			"currency":       p.Currency,
			"reason":         p.Reason,
		}
		n.Subject = subjectFor(n.Type)
		return n, true, nil

	default:
		return nil, false, nil
	}
}

var statusTypes = map[bookings.Status]NotificationType{
	bookings.StatusConfirmed: NotificationTypeBookingConfirmed,
	bookings.StatusCancelled: NotificationTypeBookingCancelled,
	bookings.StatusCheckedIn: NotificationTypeBookingCheckedIn,
	bookings.StatusCompleted: NotificationTypeBookingCompleted,
	bookings.StatusNoShow:    NotificationTypeBookingNoShow,
}

var refundTypes = map[bookings.RefundStatus]NotificationType{
	bookings.RefundRequested: NotificationTypeRefundRequested,
	bookings.RefundApproved:  NotificationTypeRefundApproved,
	bookings.RefundRejected:  NotificationTypeRefundRejected,
	bookings.RefundProcessed: NotificationTypeRefundProcessed,
}

func fromStatusChange(env Envelope, p bookings.StatusChangedPayload) (*EmailNotification, bool, error) {
	n := newNotification(env, p.BookingID, p.GuestEmail, p.GuestName)
	n.TemplateData = map[string]interface{}{
		"check_in":       p.CheckIn.Format("2006-01-02"),
		"check_out":      p.CheckOut.Format("2006-01-02"),
		"status":         string(p.NewStatus),
		"payment_status": string(p.NewPaymentStatus),
		"amount_paid":    p.AmountPaid.StringFixed(2),
		"refunded":       p.AmountRefunded.Add(p.AmountCredited).StringFixed(2),
		"currency":       p.Currency,
		"reason":         p.Reason,
	}

	switch env.Type {
	case bookings.EventBookingCreated:
		n.Type = NotificationTypeBookingReceived
		n.DedupeStatus = string(p.NewStatus)
	case bookings.EventBookingPaymentStatusChanged:
		n.Type = NotificationTypePaymentUpdated
		n.DedupeStatus = "payment_" + string(p.NewPaymentStatus)
	default:
		t, ok := statusTypes[p.NewStatus]
		if !ok {
			return nil, false, nil
		}
		n.Type = t
		n.DedupeStatus = string(p.NewStatus)
	}

	n.Subject = subjectFor(n.Type)
	return n, true, nil
}

func newNotification(env Envelope, bookingID uuid.UUID, email, name string) *EmailNotification {
	return &EmailNotification{
		ID:             uuid.New(),
		EventID:        env.ID,
		RecipientEmail: email,
		RecipientName:  name,
		BookingID:      bookingID,
		OccurredAt:     env.OccurredAt,
		Status:         NotificationStatusPending,
	}
}

func subjectFor(t NotificationType) string {
	switch t {
	case NotificationTypeBookingReceived:
		return "We received your booking"
	case NotificationTypeBookingConfirmed:
		return "Your booking is confirmed"
	case NotificationTypeBookingCancelled:
		return "Your booking has been cancelled"
	case NotificationTypeBookingCheckedIn:
		return "Welcome, you are checked in"
	case NotificationTypeBookingCompleted:
		return "Thank you for staying with us"
	case NotificationTypeBookingNoShow:
		return "We missed you at check-in"
	case NotificationTypePaymentUpdated:
		return "Your payment status has changed"
	case NotificationTypeRefundRequested:
		return "We received your refund request"
	case NotificationTypeRefundApproved:
		return "Your refund has been approved"
	case NotificationTypeRefundRejected:
		return "Your refund request was declined"
	case NotificationTypeRefundProcessed:
		return "Your refund has been processed"
	case NotificationTypeCreditNoteIssued:
		return "A credit note has been issued"
	default:
		return "An update on your booking"
	}
}
