package bookings

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateBookingRequest struct {
	PropertyID  string          `json:"property_id" binding:"required,uuid" validate:"required,uuid"`
	GuestID     string          `json:"guest_id" binding:"omitempty,uuid" validate:"omitempty,uuid"`
	GuestEmail  string          `json:"guest_email" binding:"required,email" validate:"required,email"`
	GuestName   string          `json:"guest_name" binding:"max=255" validate:"max=255"`
	RoomIDs     []string        `json:"room_ids" binding:"required,min=1,dive,uuid" validate:"required,min=1,dive,uuid"`
	CheckIn     time.Time       `json:"check_in" binding:"required" validate:"required"`
	CheckOut    time.Time       `json:"check_out" binding:"required" validate:"required,gtfield=CheckIn"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency" binding:"omitempty,len=3" validate:"omitempty,len=3"`
}

type TransitionRequest struct {
	Status          string `json:"status" binding:"required" validate:"required"`
	Reason          string `json:"reason" binding:"max=500" validate:"max=500"`
	RefundRequestID string `json:"refund_request_id" binding:"omitempty,uuid" validate:"omitempty,uuid"`
}

type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
