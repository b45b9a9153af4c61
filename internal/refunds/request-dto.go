package refunds

import (
	"staydesk/internal/bookings"

	"github.com/shopspring/decimal"
)

type CreateRefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" binding:"required,min=3,max=500" validate:"required,min=3,max=500"`
}

type ProcessRefundResponse struct {
	Refund  *bookings.RefundRequest `json:"refund"`
	Booking *bookings.Booking       `json:"booking"`
}
