package creditnotes

import (
	"staydesk/internal/bookings"

	"github.com/shopspring/decimal"
)

type IssueCreditNoteRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason" binding:"required,min=3,max=500" validate:"required,min=3,max=500"`
	InvoiceRef string          `json:"invoice_ref" binding:"omitempty,max=64" validate:"omitempty,max=64"`
}

type IssueCreditNoteResponse struct {
	CreditNote *bookings.CreditNote `json:"credit_note"`
	Booking    *bookings.Booking    `json:"booking"`
}
