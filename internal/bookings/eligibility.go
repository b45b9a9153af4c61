package bookings

import (
	"time"

	"github.com/shopspring/decimal"
)

// Refund eligibility reason codes
const (
	ReasonNothingPaid        = "nothing_paid"
	ReasonFullyRefunded      = "fully_refunded"
	ReasonBookingCompleted   = "booking_completed"
	ReasonLateCancellation   = "late_cancellation"
	ReasonAfterCheckIn       = "after_check_in"
	ReasonRefundWindowClosed = "refund_window_closed"
	ReasonCoveredByCredit    = "covered_by_credit"
	ReasonCoveredByRefund    = "covered_by_refund"
	ReasonOpenRefundRequest  = "open_refund_request"
)

// RefundPolicy is the cancellation refund schedule
type RefundPolicy struct {
	FreeCancellationWindow        time.Duration
	LateCancellationRefundPercent int
	PostCheckInWindow             time.Duration
	PostCheckInRefundPercent      int
}

// DefaultRefundPolicy returns the stock refund schedule
func DefaultRefundPolicy() RefundPolicy {
	return RefundPolicy{
		FreeCancellationWindow:        48 * time.Hour,
		LateCancellationRefundPercent: 50,
		PostCheckInWindow:             24 * time.Hour,
		PostCheckInRefundPercent:      0,
	}
}

// RefundEligibility is the outcome of ValidateRefundEligibility
type RefundEligibility struct {
	Eligible      bool            `json:"eligible"`
	MaxRefundable decimal.Decimal `json:"max_refundable"`
	RefundPercent int             `json:"refund_percent"`
	Reasons       []string        `json:"reasons"`
}

var hundred = decimal.NewFromInt(100)

// ValidateRefundEligibility computes how much of a booking may still be returned.
// A cancelled booking is evaluated at its cancellation time rather than at.
// The function reads only its arguments.
func ValidateRefundEligibility(b Booking, policy RefundPolicy, at time.Time) RefundEligibility {
	result := RefundEligibility{
		MaxRefundable: decimal.Zero,
		Reasons:       []string{},
	}

	if !b.AmountPaid.IsPositive() {
		result.Reasons = append(result.Reasons, ReasonNothingPaid)
		return result
	}
	if b.PaymentStatus == PaymentRefunded {
		result.Reasons = append(result.Reasons, ReasonFullyRefunded)
		return result
	}
	if b.Status == StatusCompleted {
		result.Reasons = append(result.Reasons, ReasonBookingCompleted)
		return result
	}

	if b.Status == StatusCancelled && b.CancelledAt != nil {
		at = *b.CancelledAt
	}

	untilCheckIn := b.CheckIn.Sub(at)
	switch {
	case untilCheckIn >= policy.FreeCancellationWindow:
		result.RefundPercent = 100
	case untilCheckIn > 0:
		result.RefundPercent = policy.LateCancellationRefundPercent
		result.Reasons = append(result.Reasons, ReasonLateCancellation)
	case at.Before(b.CheckIn.Add(policy.PostCheckInWindow)):
		result.RefundPercent = policy.PostCheckInRefundPercent
		result.Reasons = append(result.Reasons, ReasonAfterCheckIn)
	default:
		result.Reasons = append(result.Reasons, ReasonRefundWindowClosed)
		return result
	}

	gross := b.AmountPaid.Mul(decimal.NewFromInt(int64(result.RefundPercent))).Div(hundred).Round(2)
	remaining := gross

	if b.AmountCredited.IsPositive() {
		remaining = remaining.Sub(b.AmountCredited)
		result.Reasons = append(result.Reasons, ReasonCoveredByCredit)
	}
	if b.AmountRefunded.IsPositive() {
		remaining = remaining.Sub(b.AmountRefunded)
		result.Reasons = append(result.Reasons, ReasonCoveredByRefund)
	}

	if remaining.IsPositive() {
		result.MaxRefundable = remaining
		result.Eligible = true
	}
	return result
}

// HoldOpenRefunds reduces e by the amount of refund requests that are still
// requested or approved. It is pure like ValidateRefundEligibility.
func HoldOpenRefunds(e RefundEligibility, open decimal.Decimal) RefundEligibility {
	if !open.IsPositive() {
		return e
	}
	reasons := make([]string, 0, len(e.Reasons)+1)
	reasons = append(reasons, e.Reasons...)
	e.Reasons = append(reasons, ReasonOpenRefundRequest)

	e.MaxRefundable = e.MaxRefundable.Sub(open)
	if !e.MaxRefundable.IsPositive() {
		e.MaxRefundable = decimal.Zero
		e.Eligible = false
	}
	return e
}
