package bookings

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrTerminalState          = errors.New("terminal state violation")
	ErrRefundRequired         = errors.New("refund required")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation failed")
	ErrForbidden              = errors.New("forbidden")
	ErrImmutable              = errors.New("record is immutable")
)

// TransitionError describes a rejected edge in one of the state machines.
// Kind is ErrInvalidTransition or ErrTerminalState.
type TransitionError struct {
	Kind   error
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s cannot move from %q to %q", e.Kind, e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return e.Kind
}

func invalidTransition(entity, from, to string) error {
	return &TransitionError{Kind: ErrInvalidTransition, Entity: entity, From: from, To: to}
}

func terminalState(entity, from, to string) error {
	return &TransitionError{Kind: ErrTerminalState, Entity: entity, From: from, To: to}
}

// RefundRequiredError is returned when a paid booking is cancelled without refund intent
type RefundRequiredError struct {
	BookingID     uuid.UUID
	PaymentStatus PaymentStatus
	Reason        string
}

func (e *RefundRequiredError) Error() string {
	return fmt.Sprintf("refund required: booking %s is %s: %s", e.BookingID, e.PaymentStatus, e.Reason)
}

func (e *RefundRequiredError) Unwrap() error {
	return ErrRefundRequired
}

// ConcurrencyError is returned when the stored version no longer matches the one read
type ConcurrencyError struct {
	BookingID       uuid.UUID
	ExpectedVersion int64
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("concurrent modification: booking %s is no longer at version %d", e.BookingID, e.ExpectedVersion)
}

func (e *ConcurrencyError) Unwrap() error {
	return ErrConcurrentModification
}

// NotFoundError names the missing entity
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsRetryable reports whether the caller should re-read and try again
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
