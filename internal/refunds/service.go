package refunds

import (
	"context"
	"fmt"

	"staydesk/internal/bookings"
	"staydesk/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Service interface defines the contract for the refund workflow
type Service interface {
	RequestRefund(ctx context.Context, actor bookings.Actor, bookingID uuid.UUID, req CreateRefundRequest) (*bookings.RefundRequest, error)
	ListForBooking(ctx context.Context, actor bookings.Actor, bookingID uuid.UUID) ([]bookings.RefundRequest, error)
	Get(ctx context.Context, actor bookings.Actor, refundID uuid.UUID) (*bookings.RefundRequest, error)
	Approve(ctx context.Context, actor bookings.Actor, refundID uuid.UUID) (*bookings.RefundRequest, error)
	Reject(ctx context.Context, actor bookings.Actor, refundID uuid.UUID) (*bookings.RefundRequest, error)
	Process(ctx context.Context, actor bookings.Actor, refundID uuid.UUID) (*bookings.RefundRequest, *bookings.Booking, error)
}

type service struct {
	store     bookings.Store
	manager   *bookings.Manager
	validator *validator.Validate
	logger    *logger.Logger
}

// NewService creates a new refund service instance
func NewService(store bookings.Store, manager *bookings.Manager, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		store:     store,
		manager:   manager,
		validator: validator.New(),
		logger:    log.WithComponent("refunds"),
	}
}

// RequestRefund opens a refund request bounded by the booking's refund eligibility.
// A booking has at most one open request at a time.
func (s *service) RequestRefund(ctx context.Context, actor bookings.Actor, bookingID uuid.UUID, req CreateRefundRequest) (*bookings.RefundRequest, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(&req); err != nil {
		return nil, fmt.Errorf("%w: %s", bookings.ErrValidation, err.Error())
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", bookings.ErrValidation)
	}
	amount := req.Amount.Round(2)

	var (
		created *bookings.RefundRequest
		booking *bookings.Booking
	)
	err := s.store.WithinTx(ctx, func(tx bookings.Store) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if !actor.CanAccess(b) {
			return fmt.Errorf("%w: booking belongs to another guest", bookings.ErrForbidden)
		}

		existing, err := tx.ListRefundRequests(ctx, bookingID)
		if err != nil {
			return err
		}
		for _, r := range existing {
			if r.Status.IsOpen() {
				return fmt.Errorf("%w: refund request %s is still %s", bookings.ErrValidation, r.ID, r.Status)
			}
		}

		eligibility := s.manager.Eligibility(b)
		if !eligibility.Eligible {
			return fmt.Errorf("%w: booking is not eligible for a refund (%v)", bookings.ErrValidation, eligibility.Reasons)
		}
		if amount.GreaterThan(eligibility.MaxRefundable) {
			return fmt.Errorf("%w: amount %s exceeds refundable %s", bookings.ErrValidation,
				amount.StringFixed(2), eligibility.MaxRefundable.StringFixed(2))
		}

		created = &bookings.RefundRequest{
			BookingID:       bookingID,
			Amount:          amount,
			Status:          bookings.RefundRequested,
			Reason:          req.Reason,
			RequestedByKind: actor.Kind,
			RequestedByID:   actor.ID,
			CreatedAt:       s.manager.Now(),
		}
		booking = b
		return tx.CreateRefundRequest(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Refund Requested",
		"booking_id", bookingID.String(),
		"refund_request_id", created.ID.String(),
		"amount", amount.StringFixed(2),
		"actor", actor.String(),
	)
	s.manager.Publish(ctx, bookings.EventRefundRequested, bookingID,
		bookings.NewRefundEventPayload(booking, created, actor, s.manager.Now()))

	return created, nil
}

// ListForBooking returns every refund request of a booking
func (s *service) ListForBooking(ctx context.Context, actor bookings.Actor, bookingID uuid.UUID) ([]bookings.RefundRequest, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(b) {
		return nil, fmt.Errorf("%w: booking belongs to another guest", bookings.ErrForbidden)
	}
	return s.store.ListRefundRequests(ctx, bookingID)
}

// Get returns a single refund request; guests only see requests on their own bookings
func (s *service) Get(ctx context.Context, actor bookings.Actor, refundID uuid.UUID) (*bookings.RefundRequest, error) {
	r, err := s.store.GetRefundRequest(ctx, refundID)
	if err != nil {
		return nil, err
	}
	b, err := s.store.GetBooking(ctx, r.BookingID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(b) {
		return nil, fmt.Errorf("%w: refund belongs to another guest", bookings.ErrForbidden)
	}
	return r, nil
}

// Approve moves a requested refund to approved
func (s *service) Approve(ctx context.Context, actor bookings.Actor, refundID uuid.UUID) (*bookings.RefundRequest, error) {
	return s.decide(ctx, actor, refundID, bookings.RefundApproved, bookings.EventRefundApproved)
}

// Reject moves a requested refund to rejected
func (s *service) Reject(ctx context.Context, actor bookings.Actor, refundID uuid.UUID) (*bookings.RefundRequest, error) {
	return s.decide(ctx, actor, refundID, bookings.RefundRejected, bookings.EventRefundRejected)
}

func (s *service) decide(ctx context.Context, actor bookings.Actor, refundID uuid.UUID, to bookings.RefundStatus, eventType string) (*bookings.RefundRequest, error) {
	if err := s.requireStaff(actor); err != nil {
		return nil, err
	}

	var (
		updated *bookings.RefundRequest
		booking *bookings.Booking
	)
	err := s.store.WithinTx(ctx, func(tx bookings.Store) error {
		current, err := tx.GetRefundRequest(ctx, refundID)
		if err != nil {
			return err
		}
		if updated, err = tx.UpdateRefundStatus(ctx, refundID, current.Status, to, actor, s.manager.Now()); err != nil {
			return err
		}
		booking, err = tx.GetBooking(ctx, updated.BookingID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Refund Decided",
		"refund_request_id", refundID.String(),
		"status", string(to),
		"actor", actor.String(),
	)
	s.manager.Publish(ctx, eventType, updated.BookingID,
		bookings.NewRefundEventPayload(booking, updated, actor, s.manager.Now()))

	return updated, nil
}

// Process applies an approved refund to its booking
func (s *service) Process(ctx context.Context, actor bookings.Actor, refundID uuid.UUID) (*bookings.RefundRequest, *bookings.Booking, error) {
	if err := s.requireStaff(actor); err != nil {
		return nil, nil, err
	}
	booking, refund, err := s.manager.ApplyRefund(ctx, refundID, actor)
	if err != nil {
		return nil, nil, err
	}
	return refund, booking, nil
}

func (s *service) requireStaff(actor bookings.Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if actor.IsGuest() {
		return fmt.Errorf("%w: only staff may decide refunds", bookings.ErrForbidden)
	}
	return nil
}
