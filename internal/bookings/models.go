package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Booking defines the main booking structure
type Booking struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PropertyID         uuid.UUID       `gorm:"type:uuid;index;not null" json:"property_id"`
	GuestID            uuid.UUID       `gorm:"type:uuid;index;not null" json:"guest_id"`
	GuestEmail         string          `gorm:"type:varchar(255);not null" json:"guest_email"`
	GuestName          string          `gorm:"type:varchar(255)" json:"guest_name"`
	CheckIn            time.Time       `gorm:"not null;index" json:"check_in"`
	CheckOut           time.Time       `gorm:"not null;index" json:"check_out"`
	TotalAmount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency           string          `gorm:"type:varchar(3);default:'USD'" json:"currency"`
	Status             Status          `gorm:"type:varchar(20);not null;index;default:'pending'" json:"status"`
	PaymentStatus      PaymentStatus   `gorm:"type:varchar(20);not null;index;default:'unpaid'" json:"payment_status"`
	AmountPaid         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amount_paid"`
	AmountRefunded     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amount_refunded"`
	AmountCredited     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amount_credited"`
	CancellationReason string          `gorm:"type:text" json:"cancellation_reason,omitempty"`
	Version            int64           `gorm:"not null;default:1" json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`

	// Relationships
	Rooms []BookingRoom `json:"rooms,omitempty" gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE;"`
}

// BookingRoom links a booking to one of the rooms it reserves
type BookingRoom struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;index;not null" json:"booking_id"`
	RoomID    uuid.UUID `gorm:"type:uuid;index;not null" json:"room_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RefundStatus is the state of a refund request
type RefundStatus string

const (
	RefundRequested RefundStatus = "requested"
	RefundApproved  RefundStatus = "approved"
	RefundRejected  RefundStatus = "rejected"
	RefundProcessed RefundStatus = "processed"
)

var refundTransitions = map[RefundStatus][]RefundStatus{
	RefundRequested: {RefundApproved, RefundRejected},
	RefundApproved:  {RefundProcessed},
	RefundRejected:  {},
	RefundProcessed: {},
}

// CanTransitionTo checks the edge r -> next for refund requests
func (r RefundStatus) CanTransitionTo(next RefundStatus) bool {
	for _, candidate := range refundTransitions[r] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsOpen reports whether the request still awaits a decision or processing
func (r RefundStatus) IsOpen() bool {
	return r == RefundRequested || r == RefundApproved
}

// CoversRefund reports whether the request is evidence for a refund payment status
func (r RefundStatus) CoversRefund() bool {
	return r == RefundApproved || r == RefundProcessed
}

// RefundRequest defines a guest or staff request to return money for a booking
type RefundRequest struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID       uuid.UUID       `gorm:"type:uuid;index;not null" json:"booking_id"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status          RefundStatus    `gorm:"type:varchar(20);not null;index;default:'requested'" json:"status"`
	Reason          string          `gorm:"type:text" json:"reason,omitempty"`
	RequestedByKind ActorKind       `gorm:"type:varchar(10);not null" json:"requested_by_kind"`
	RequestedByID   uuid.UUID       `gorm:"type:uuid" json:"requested_by_id"`
	DecidedByKind   ActorKind       `gorm:"type:varchar(10)" json:"decided_by_kind,omitempty"`
	DecidedByID     *uuid.UUID      `gorm:"type:uuid" json:"decided_by_id,omitempty"`
	DecidedAt       *time.Time      `json:"decided_at,omitempty"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CreditNote is an immutable ledger record of value returned to the guest
type CreditNote struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID    uuid.UUID       `gorm:"type:uuid;index;not null" json:"booking_id"`
	InvoiceRef   string          `gorm:"type:varchar(64)" json:"invoice_ref,omitempty"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Reason       string          `gorm:"type:text;not null" json:"reason"`
	IssuedByKind ActorKind       `gorm:"type:varchar(10);not null" json:"issued_by_kind"`
	IssuedByID   uuid.UUID       `gorm:"type:uuid" json:"issued_by_id"`
	IssuedAt     time.Time       `gorm:"not null" json:"issued_at"`
}

// StatusTransition is the audit row written with every applied transition
type StatusTransition struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID         uuid.UUID     `gorm:"type:uuid;index;not null" json:"booking_id"`
	FromStatus        Status        `gorm:"type:varchar(20);not null" json:"from_status"`
	ToStatus          Status        `gorm:"type:varchar(20);not null" json:"to_status"`
	FromPaymentStatus PaymentStatus `gorm:"type:varchar(20);not null" json:"from_payment_status"`
	ToPaymentStatus   PaymentStatus `gorm:"type:varchar(20);not null" json:"to_payment_status"`
	ActorKind         ActorKind     `gorm:"type:varchar(10);not null" json:"actor_kind"`
	ActorID           uuid.UUID     `gorm:"type:uuid" json:"actor_id"`
	Reason            string        `gorm:"type:text" json:"reason,omitempty"`
	RefundRequestID   *uuid.UUID    `gorm:"type:uuid" json:"refund_request_id,omitempty"`
	CreditNoteID      *uuid.UUID    `gorm:"type:uuid" json:"credit_note_id,omitempty"`
	OccurredAt        time.Time     `gorm:"not null;index" json:"occurred_at"`
}

// TableName sets the table name for Booking
func (Booking) TableName() string {
	return "bookings"
}

// TableName sets the table name for BookingRoom
func (BookingRoom) TableName() string {
	return "booking_rooms"
}

// TableName sets the table name for RefundRequest
func (RefundRequest) TableName() string {
	return "refund_requests"
}

// TableName sets the table name for CreditNote
func (CreditNote) TableName() string {
	return "credit_notes"
}

// TableName sets the table name for StatusTransition
func (StatusTransition) TableName() string {
	return "booking_status_transitions"
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Version == 0 {
		b.Version = 1
	}
	return nil
}

func (r *BookingRoom) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r *RefundRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (n *CreditNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate blocks every update path for credit notes
func (n *CreditNote) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutable
}

// BeforeDelete blocks every delete path for credit notes
func (n *CreditNote) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutable
}

func (t *StatusTransition) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Helper methods for booking state

func (b *Booking) IsTerminal() bool {
	return b.Status.IsTerminal()
}

// RoomIDs returns the ids of the reserved rooms
func (b *Booking) RoomIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(b.Rooms))
	for _, room := range b.Rooms {
		ids = append(ids, room.RoomID)
	}
	return ids
}

// Outstanding is the amount still owed by the guest
func (b *Booking) Outstanding() decimal.Decimal {
	rest := b.TotalAmount.Sub(b.AmountPaid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// Returned is the amount already given back as refunds or credit
func (b *Booking) Returned() decimal.Decimal {
	return b.AmountRefunded.Add(b.AmountCredited)
}
