package creditnotes

import (
	"context"
	"fmt"

	"staydesk/internal/bookings"
	"staydesk/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Service issues and reads credit notes. Notes are never updated or deleted.
type Service interface {
	Issue(ctx context.Context, actor bookings.Actor, bookingID uuid.UUID, req IssueCreditNoteRequest) (*bookings.CreditNote, *bookings.Booking, error)
	ListForBooking(ctx context.Context, actor bookings.Actor, bookingID uuid.UUID) ([]bookings.CreditNote, error)
	Get(ctx context.Context, actor bookings.Actor, noteID uuid.UUID) (*bookings.CreditNote, error)
}

type service struct {
	store     bookings.Store
	manager   *bookings.Manager
	validator *validator.Validate
	logger    *logger.Logger
}

func NewService(store bookings.Store, manager *bookings.Manager, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		store:     store,
		manager:   manager,
		validator: validator.New(),
		logger:    log.WithComponent("creditnotes"),
	}
}

func (s *service) Issue(ctx context.Context, actor bookings.Actor, bookingID uuid.UUID, req IssueCreditNoteRequest) (*bookings.CreditNote, *bookings.Booking, error) {
	if err := actor.Validate(); err != nil {
		return nil, nil, err
	}
	if actor.IsGuest() {
		return nil, nil, fmt.Errorf("%w: only staff may issue credit notes", bookings.ErrForbidden)
	}
	if err := s.validator.Struct(&req); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", bookings.ErrValidation, err.Error())
	}
	if !req.Amount.IsPositive() {
		return nil, nil, fmt.Errorf("%w: amount must be positive", bookings.ErrValidation)
	}
	amount := req.Amount.Round(2)

	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	eligibility, err := s.manager.Available(ctx, s.store, b, s.manager.Now(), uuid.Nil)
	if err != nil {
		return nil, nil, err
	}
	if amount.GreaterThan(eligibility.MaxRefundable) {
		return nil, nil, fmt.Errorf("%w: amount %s exceeds refundable %s", bookings.ErrValidation,
			amount.StringFixed(2), eligibility.MaxRefundable.StringFixed(2))
	}

	booking, note, err := s.manager.IssueCreditNote(ctx, &bookings.CreditNote{
		BookingID:  bookingID,
		InvoiceRef: req.InvoiceRef,
		Amount:     amount,
		Reason:     req.Reason,
	}, actor)
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "Credit Note Issued",
		"booking_id", bookingID.String(),
		"credit_note_id", note.ID.String(),
		"amount", amount.StringFixed(2),
		"actor", actor.String(),
	)
	return note, booking, nil
}

func (s *service) ListForBooking(ctx context.Context, actor bookings.Actor, bookingID uuid.UUID) ([]bookings.CreditNote, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(b) {
		return nil, fmt.Errorf("%w: booking belongs to another guest", bookings.ErrForbidden)
	}
	return s.store.ListCreditNotes(ctx, bookingID)
}

func (s *service) Get(ctx context.Context, actor bookings.Actor, noteID uuid.UUID) (*bookings.CreditNote, error) {
	note, err := s.store.GetCreditNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	b, err := s.store.GetBooking(ctx, note.BookingID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(b) {
		return nil, fmt.Errorf("%w: credit note belongs to another guest", bookings.ErrForbidden)
	}
	return note, nil
}
