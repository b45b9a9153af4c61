package bookings

import "fmt"

// Status is the lifecycle state of a booking
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCheckedIn Status = "checked_in"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// AllStatuses lists every booking status in lifecycle order
var AllStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusCheckedIn,
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
}

// statusTransitions is the adjacency table for booking statuses.
// Terminal statuses map to an empty set.
var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn: {StatusCompleted},
	StatusNoShow:    {StatusCheckedIn, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// ParseStatus converts a raw string into a Status
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown booking status: %q", s)
	}
	return status, nil
}

// IsValid checks if the booking status is valid
func (s Status) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition may leave this status
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// AllowedNext returns the statuses reachable from s in one step
func (s Status) AllowedNext() []Status {
	next := statusTransitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransitionTo checks the adjacency table for the edge s -> next
func (s Status) CanTransitionTo(next Status) bool {
	for _, candidate := range statusTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// PaymentStatus is the settlement state of a booking
type PaymentStatus string

const (
	PaymentUnpaid            PaymentStatus = "unpaid"
	PaymentPartiallyPaid     PaymentStatus = "partially_paid"
	PaymentPaid              PaymentStatus = "paid"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// AllPaymentStatuses lists every payment status
var AllPaymentStatuses = []PaymentStatus{
	PaymentUnpaid,
	PaymentPartiallyPaid,
	PaymentPaid,
	PaymentPartiallyRefunded,
	PaymentRefunded,
}

// paymentTransitions is the adjacency table for payment statuses.
// Self-edges on the partial states allow a second partial payment or refund.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentUnpaid:            {PaymentPartiallyPaid, PaymentPaid},
	PaymentPartiallyPaid:     {PaymentPartiallyPaid, PaymentPaid, PaymentPartiallyRefunded, PaymentRefunded},
	PaymentPaid:              {PaymentPartiallyRefunded, PaymentRefunded},
	PaymentPartiallyRefunded: {PaymentPartiallyRefunded, PaymentRefunded},
	PaymentRefunded:          {},
}

// ParsePaymentStatus converts a raw string into a PaymentStatus
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown payment status: %q", s)
	}
	return status, nil
}

// IsValid checks if the payment status is valid
func (p PaymentStatus) IsValid() bool {
	_, ok := paymentTransitions[p]
	return ok
}

// String returns the string representation of PaymentStatus
func (p PaymentStatus) String() string {
	return string(p)
}

// CanTransitionTo checks the adjacency table for the edge p -> next
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, candidate := range paymentTransitions[p] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsRefundState reports whether money has been returned to the guest
func (p PaymentStatus) IsRefundState() bool {
	return p == PaymentRefunded || p == PaymentPartiallyRefunded
}

// RequiresRefundIntent reports whether cancelling in this state needs a refund decision
func (p PaymentStatus) RequiresRefundIntent() bool {
	return p == PaymentPaid || p == PaymentPartiallyPaid
}
