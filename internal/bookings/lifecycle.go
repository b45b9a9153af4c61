package bookings

import (
	"context"
	"errors"
	"time"

	"staydesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NoRefundReason lets staff cancel a paid booking without returning money
const NoRefundReason = "no-refund"

// ManagerConfig holds the lifecycle manager settings
type ManagerConfig struct {
	TransitionTimeout time.Duration
	RefundPolicy      RefundPolicy
}

// TransitionOptions carries the optional inputs of a status transition
type TransitionOptions struct {
	Reason          string
	RefundRequestID *uuid.UUID
}

// PaymentChange carries the evidence and amounts of a payment status transition.
// Amount is the money received for payment targets. Refund targets take their
// amount from the refund request or credit note.
type PaymentChange struct {
	Amount          decimal.Decimal
	RefundRequestID *uuid.UUID
	CreditNote      *CreditNote
	Reason          string
}

// Manager enforces the booking and payment state machines
type Manager struct {
	store   Store
	emitter EventEmitter
	logger  *logger.Logger
	policy  RefundPolicy
	timeout time.Duration
	now     func() time.Time
}

// NewManager creates a lifecycle manager
func NewManager(store Store, emitter EventEmitter, log *logger.Logger, cfg ManagerConfig) *Manager {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Manager{
		store:   store,
		emitter: emitter,
		logger:  log.WithComponent("lifecycle"),
		policy:  cfg.RefundPolicy,
		timeout: cfg.TransitionTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Now returns the manager's current time
func (m *Manager) Now() time.Time {
	return m.now()
}

// Policy returns the refund policy in force
func (m *Manager) Policy() RefundPolicy {
	return m.policy
}

// Eligibility evaluates the refund policy for b at the current time
func (m *Manager) Eligibility(b *Booking) RefundEligibility {
	return ValidateRefundEligibility(*b, m.policy, m.now())
}

// Available evaluates the refund policy for b at `at` and holds back the open
// refund requests of b other than exclude
func (m *Manager) Available(ctx context.Context, store Store, b *Booking, at time.Time, exclude uuid.UUID) (RefundEligibility, error) {
	requests, err := store.ListRefundRequests(ctx, b.ID)
	if err != nil {
		return RefundEligibility{}, err
	}
	open := decimal.Zero
	for _, r := range requests {
		if r.ID != exclude && r.Status.IsOpen() {
			open = open.Add(r.Amount)
		}
	}
	return HoldOpenRefunds(ValidateRefundEligibility(*b, m.policy, at), open), nil
}

// withinCap rejects a refund or credit of amount that exceeds what b may still return
func (m *Manager) withinCap(ctx context.Context, tx Store, b *Booking, amount decimal.Decimal, at time.Time, exclude uuid.UUID) error {
	eligibility, err := m.Available(ctx, tx, b, at, exclude)
	if err != nil {
		return err
	}
	if amount.GreaterThan(eligibility.MaxRefundable) {
		return validationError("amount %s exceeds refundable %s", amount.StringFixed(2), eligibility.MaxRefundable.StringFixed(2))
	}
	return nil
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

// TransitionStatus moves a booking to the requested status.
// Requesting the current status of a terminal booking returns it unchanged.
func (m *Manager) TransitionStatus(ctx context.Context, bookingID uuid.UUID, requested Status, actor Actor, opts TransitionOptions) (*Booking, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var (
		before, after *Booking
		processed     *RefundRequest
		noop          bool
		at            time.Time
	)

	err := m.store.WithinTx(ctx, func(tx Store) error {
		current, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		before = current

		if current.Status.IsTerminal() {
			if requested == current.Status {
				noop = true
				after = current
				return nil
			}
			return terminalState("booking", string(current.Status), string(requested))
		}
		if !requested.IsValid() {
			return invalidTransition("booking", string(current.Status), string(requested))
		}
		if !current.Status.CanTransitionTo(requested) {
			return invalidTransition("booking", string(current.Status), string(requested))
		}
		if opts.RefundRequestID != nil && requested != StatusCancelled {
			return validationError("a refund request can only accompany a cancellation")
		}

		at = m.now()
		update := statusUpdateFrom(current)
		update.Status = requested

		if requested == StatusCancelled {
			update.CancelledAt = &at
			update.CancellationReason = opts.Reason

			if current.PaymentStatus.RequiresRefundIntent() || opts.RefundRequestID != nil {
				processed, err = m.applyRefundIntent(ctx, tx, current, &update, actor, opts, at)
				if err != nil {
					return err
				}
			}
		}

		after, err = tx.UpdateBookingStatus(ctx, bookingID, update, current.Version)
		if err != nil {
			return err
		}

		return tx.RecordTransition(ctx, &StatusTransition{
			BookingID:         bookingID,
			FromStatus:        current.Status,
			ToStatus:          after.Status,
			FromPaymentStatus: current.PaymentStatus,
			ToPaymentStatus:   after.PaymentStatus,
			ActorKind:         actor.Kind,
			ActorID:           actor.ID,
			Reason:            opts.Reason,
			RefundRequestID:   opts.RefundRequestID,
			OccurredAt:        at,
		})
	})
	if err != nil {
		m.logger.LogTransitionRejected(ctx, bookingID.String(), string(requested), actor.String(), err)
		return nil, err
	}
	if noop {
		return after, nil
	}

	m.logger.LogBookingTransition(ctx, bookingID.String(), "status", string(before.Status), string(after.Status), actor.String())
	if before.PaymentStatus != after.PaymentStatus {
		m.logger.LogBookingTransition(ctx, bookingID.String(), "payment_status", string(before.PaymentStatus), string(after.PaymentStatus), actor.String())
	}

	m.Publish(ctx, EventBookingStatusChanged, bookingID,
		newStatusChangedPayload(before, after, actor, opts.Reason, opts.RefundRequestID, at))
	if processed != nil {
		m.Publish(ctx, EventRefundProcessed, bookingID, NewRefundEventPayload(after, processed, actor, at))
	}

	return after, nil
}

// applyRefundIntent checks that a paid booking may be cancelled and folds an
// approved refund into update. It returns the refund request it processed, if any.
func (m *Manager) applyRefundIntent(ctx context.Context, tx Store, current *Booking, update *StatusUpdate, actor Actor, opts TransitionOptions, at time.Time) (*RefundRequest, error) {
	if opts.RefundRequestID == nil {
		if opts.Reason == NoRefundReason {
			if actor.CanOverrideRefund() {
				return nil, nil
			}
			return nil, &RefundRequiredError{
				BookingID:     current.ID,
				PaymentStatus: current.PaymentStatus,
				Reason:        "only staff may cancel a paid booking without a refund",
			}
		}
		return nil, &RefundRequiredError{
			BookingID:     current.ID,
			PaymentStatus: current.PaymentStatus,
			Reason:        "cancelling a paid booking needs an approved refund request or a no-refund decision",
		}
	}

	refund, err := m.refundEvidence(ctx, tx, current, *opts.RefundRequestID)
	if err != nil {
		return nil, err
	}
	if refund.Status == RefundProcessed {
		return nil, nil
	}
	if err := m.withinCap(ctx, tx, current, refund.Amount, refund.CreatedAt, refund.ID); err != nil {
		return nil, err
	}

	if err := addRefund(current, update, refund.Amount); err != nil {
		return nil, err
	}
	return tx.UpdateRefundStatus(ctx, refund.ID, RefundApproved, RefundProcessed, actor, at)
}

// refundEvidence loads a refund request and checks it backs a refund on current
func (m *Manager) refundEvidence(ctx context.Context, tx Store, current *Booking, refundID uuid.UUID) (*RefundRequest, error) {
	refund, err := tx.GetRefundRequest(ctx, refundID)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return nil, &RefundRequiredError{
				BookingID:     current.ID,
				PaymentStatus: current.PaymentStatus,
				Reason:        "refund request " + refundID.String() + " does not exist",
			}
		}
		return nil, err
	}
	if refund.BookingID != current.ID {
		return nil, &RefundRequiredError{
			BookingID:     current.ID,
			PaymentStatus: current.PaymentStatus,
			Reason:        "refund request belongs to another booking",
		}
	}
	if !refund.Status.CoversRefund() {
		return nil, &RefundRequiredError{
			BookingID:     current.ID,
			PaymentStatus: current.PaymentStatus,
			Reason:        "refund request is " + string(refund.Status),
		}
	}
	return refund, nil
}

// TransitionPaymentStatus moves the payment status of a booking to requested.
// Refund statuses need a refund request or credit note as evidence, and the
// amounts in change must produce exactly the requested status.
func (m *Manager) TransitionPaymentStatus(ctx context.Context, bookingID uuid.UUID, requested PaymentStatus, actor Actor, change PaymentChange) (*Booking, error) {
	if !requested.IsValid() {
		return nil, invalidTransition("payment", "", string(requested))
	}
	b, _, _, err := m.changePayment(ctx, bookingID, requested, actor, change)
	return b, err
}

// ApplyPayment records money received and moves the payment status accordingly
func (m *Manager) ApplyPayment(ctx context.Context, bookingID uuid.UUID, amount decimal.Decimal, actor Actor) (*Booking, error) {
	b, _, _, err := m.changePayment(ctx, bookingID, "", actor, PaymentChange{Amount: amount})
	return b, err
}

// ApplyRefund processes an approved refund request against its booking
func (m *Manager) ApplyRefund(ctx context.Context, refundID uuid.UUID, actor Actor) (*Booking, *RefundRequest, error) {
	refund, err := m.store.GetRefundRequest(ctx, refundID)
	if err != nil {
		return nil, nil, err
	}
	b, processed, _, err := m.changePayment(ctx, refund.BookingID, "", actor, PaymentChange{RefundRequestID: &refundID})
	return b, processed, err
}

// IssueCreditNote stores note and adds its amount to the booking's credited total
// in one transaction
func (m *Manager) IssueCreditNote(ctx context.Context, note *CreditNote, actor Actor) (*Booking, *CreditNote, error) {
	b, _, issued, err := m.changePayment(ctx, note.BookingID, "", actor, PaymentChange{CreditNote: note, Reason: note.Reason})
	return b, issued, err
}

// changePayment runs a payment status transition. An empty requested status
// means the target is derived from the amounts.
func (m *Manager) changePayment(ctx context.Context, bookingID uuid.UUID, requested PaymentStatus, actor Actor, change PaymentChange) (*Booking, *RefundRequest, *CreditNote, error) {
	if err := actor.Validate(); err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	var (
		before, after *Booking
		processed     *RefundRequest
		issued        *CreditNote
		at            time.Time
	)

	err := m.store.WithinTx(ctx, func(tx Store) error {
		current, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		before = current

		at = m.now()
		update := statusUpdateFrom(current)
		var refundID, creditID *uuid.UUID

		switch {
		case change.RefundRequestID != nil || change.CreditNote != nil:
			if change.RefundRequestID != nil && change.CreditNote != nil {
				return validationError("a refund request and a credit note cannot be applied together")
			}
			if change.RefundRequestID != nil {
				refund, err := m.refundEvidence(ctx, tx, current, *change.RefundRequestID)
				if err != nil {
					return err
				}
				if refund.Status == RefundProcessed {
					return invalidTransition("refund_request", string(refund.Status), string(RefundProcessed))
				}
				if err := m.withinCap(ctx, tx, current, refund.Amount, refund.CreatedAt, refund.ID); err != nil {
					return err
				}
				if err := addRefund(current, &update, refund.Amount); err != nil {
					return err
				}
				if processed, err = tx.UpdateRefundStatus(ctx, refund.ID, RefundApproved, RefundProcessed, actor, at); err != nil {
					return err
				}
				refundID = &refund.ID
			} else {
				note := change.CreditNote
				if note.BookingID != current.ID {
					return validationError("credit note belongs to another booking")
				}
				if !note.Amount.IsPositive() {
					return validationError("credit note amount must be positive")
				}
				if err := m.withinCap(ctx, tx, current, note.Amount, at, uuid.Nil); err != nil {
					return err
				}
				if err := addCredit(current, &update, note.Amount); err != nil {
					return err
				}
				note.IssuedByKind = actor.Kind
				note.IssuedByID = actor.ID
				note.IssuedAt = at
				if err := tx.CreateCreditNote(ctx, note); err != nil {
					return err
				}
				issued = note
				creditID = &note.ID
			}
		case requested == PaymentUnpaid:
			return invalidTransition("payment", string(current.PaymentStatus), string(requested))
		case requested == "" || requested == PaymentPartiallyPaid || requested == PaymentPaid:
			if current.Status == StatusCancelled {
				return terminalState("booking", string(current.Status), "payment")
			}
			if err := addPayment(current, &update, change.Amount); err != nil {
				return err
			}
		default:
			return &RefundRequiredError{
				BookingID:     current.ID,
				PaymentStatus: current.PaymentStatus,
				Reason:        "moving to " + string(requested) + " needs an approved refund request or a credit note",
			}
		}

		if requested != "" && requested != update.PaymentStatus {
			return validationError("amounts move payment status to %s, not %s", update.PaymentStatus, requested)
		}
		if !current.PaymentStatus.CanTransitionTo(update.PaymentStatus) {
			if current.PaymentStatus == PaymentRefunded {
				return terminalState("payment", string(current.PaymentStatus), string(update.PaymentStatus))
			}
			return invalidTransition("payment", string(current.PaymentStatus), string(update.PaymentStatus))
		}

		after, err = tx.UpdateBookingStatus(ctx, bookingID, update, current.Version)
		if err != nil {
			return err
		}

		return tx.RecordTransition(ctx, &StatusTransition{
			BookingID:         bookingID,
			FromStatus:        current.Status,
			ToStatus:          after.Status,
			FromPaymentStatus: current.PaymentStatus,
			ToPaymentStatus:   after.PaymentStatus,
			ActorKind:         actor.Kind,
			ActorID:           actor.ID,
			Reason:            change.Reason,
			RefundRequestID:   refundID,
			CreditNoteID:      creditID,
			OccurredAt:        at,
		})
	})
	if err != nil {
		target := string(requested)
		if target == "" {
			target = "payment"
		}
		m.logger.LogTransitionRejected(ctx, bookingID.String(), target, actor.String(), err)
		return nil, nil, nil, err
	}

	m.logger.LogBookingTransition(ctx, bookingID.String(), "payment_status", string(before.PaymentStatus), string(after.PaymentStatus), actor.String())

	m.Publish(ctx, EventBookingPaymentStatusChanged, bookingID,
		newStatusChangedPayload(before, after, actor, change.Reason, change.RefundRequestID, at))
	if processed != nil {
		m.Publish(ctx, EventRefundProcessed, bookingID, NewRefundEventPayload(after, processed, actor, at))
	}
	if issued != nil {
		m.Publish(ctx, EventCreditNoteIssued, bookingID, CreditNoteEventPayload{
			BookingID:    after.ID,
			CreditNoteID: issued.ID,
			GuestEmail:   after.GuestEmail,
			GuestName:    after.GuestName,
			InvoiceRef:   issued.InvoiceRef,
			Amount:       issued.Amount,
			Currency:     after.Currency,
			Reason:       issued.Reason,
			Actor:        actor,
			OccurredAt:   issued.IssuedAt,
		})
	}

	return after, processed, issued, nil
}

// Publish hands an event to the emitter. Failures are logged and never returned.
func (m *Manager) Publish(ctx context.Context, eventType string, bookingID uuid.UUID, payload interface{}) {
	if err := m.emitter.Emit(context.WithoutCancel(ctx), eventType, payload); err != nil {
		m.logger.LogEmitFailure(ctx, eventType, bookingID.String(), err)
	}
}

func statusUpdateFrom(b *Booking) StatusUpdate {
	return StatusUpdate{
		Status:             b.Status,
		PaymentStatus:      b.PaymentStatus,
		AmountPaid:         b.AmountPaid,
		AmountRefunded:     b.AmountRefunded,
		AmountCredited:     b.AmountCredited,
		CancelledAt:        b.CancelledAt,
		CancellationReason: b.CancellationReason,
	}
}

func addPayment(current *Booking, update *StatusUpdate, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return validationError("payment amount must be positive")
	}
	paid := update.AmountPaid.Add(amount)
	if paid.GreaterThan(current.TotalAmount) {
		return validationError("payment of %s exceeds outstanding balance %s", amount.StringFixed(2), current.Outstanding().StringFixed(2))
	}
	update.AmountPaid = paid
	if paid.Equal(current.TotalAmount) {
		update.PaymentStatus = PaymentPaid
	} else {
		update.PaymentStatus = PaymentPartiallyPaid
	}
	return nil
}

func addRefund(current *Booking, update *StatusUpdate, amount decimal.Decimal) error {
	update.AmountRefunded = update.AmountRefunded.Add(amount)
	return settleReturned(current, update)
}

func addCredit(current *Booking, update *StatusUpdate, amount decimal.Decimal) error {
	update.AmountCredited = update.AmountCredited.Add(amount)
	return settleReturned(current, update)
}

// settleReturned derives the refund payment status from the running totals.
// Money returned never exceeds money paid, and only returning the full booking
// total makes it refunded.
func settleReturned(current *Booking, update *StatusUpdate) error {
	returned := update.AmountRefunded.Add(update.AmountCredited)
	if returned.GreaterThan(update.AmountPaid) {
		return validationError("refunds and credits of %s exceed amount paid %s", returned.StringFixed(2), update.AmountPaid.StringFixed(2))
	}
	if returned.GreaterThanOrEqual(current.TotalAmount) {
		update.PaymentStatus = PaymentRefunded
	} else {
		update.PaymentStatus = PaymentPartiallyRefunded
	}
	return nil
}
