package bookings

import (
	"context"
	"fmt"
	"strings"

	"staydesk/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service interface defines the contract for booking business logic
type Service interface {
	CreateBooking(ctx context.Context, actor Actor, req CreateBookingRequest) (*Booking, error)
	GetBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*Booking, error)
	ListBookings(ctx context.Context, query BookingListQuery) (*PaginatedBookings, error)
	TransitionStatus(ctx context.Context, actor Actor, bookingID uuid.UUID, req TransitionRequest) (*Booking, error)
	RecordPayment(ctx context.Context, actor Actor, bookingID uuid.UUID, amount decimal.Decimal) (*Booking, error)
	GetRefundEligibility(ctx context.Context, actor Actor, bookingID uuid.UUID) (*EligibilityResponse, error)
	GetTransitions(ctx context.Context, actor Actor, bookingID uuid.UUID) ([]StatusTransition, error)
}

// service implements the Service interface
type service struct {
	store     Store
	manager   *Manager
	validator *validator.Validate
	logger    *logger.Logger
}

// NewService creates a new booking service instance
func NewService(store Store, manager *Manager, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		store:     store,
		manager:   manager,
		validator: validator.New(),
		logger:    log,
	}
}

// CreateBooking inserts a new pending, unpaid booking
func (s *service) CreateBooking(ctx context.Context, actor Actor, req CreateBookingRequest) (*Booking, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(&req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	if !req.CheckIn.Before(req.CheckOut) {
		return nil, validationError("check_in must be before check_out")
	}
	if req.TotalAmount.IsNegative() {
		return nil, validationError("total_amount must not be negative")
	}

	propertyID, err := uuid.Parse(req.PropertyID)
	if err != nil {
		return nil, validationError("invalid property_id")
	}

	guestID := actor.ID
	if !actor.IsGuest() {
		if req.GuestID == "" {
			return nil, validationError("guest_id is required when booking on behalf of a guest")
		}
		if guestID, err = uuid.Parse(req.GuestID); err != nil {
			return nil, validationError("invalid guest_id")
		}
	}

	seen := make(map[uuid.UUID]bool, len(req.RoomIDs))
	rooms := make([]BookingRoom, 0, len(req.RoomIDs))
	for _, raw := range req.RoomIDs {
		roomID, err := uuid.Parse(raw)
		if err != nil {
			return nil, validationError("invalid room id %q", raw)
		}
		if seen[roomID] {
			return nil, validationError("room %s listed twice", roomID)
		}
		seen[roomID] = true
		rooms = append(rooms, BookingRoom{RoomID: roomID})
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "USD"
	}

	booking := &Booking{
		PropertyID:     propertyID,
		GuestID:        guestID,
		GuestEmail:     req.GuestEmail,
		GuestName:      req.GuestName,
		CheckIn:        req.CheckIn.UTC(),
		CheckOut:       req.CheckOut.UTC(),
		TotalAmount:    req.TotalAmount.Round(2),
		Currency:       currency,
		Status:         StatusPending,
		PaymentStatus:  PaymentUnpaid,
		AmountPaid:     decimal.Zero,
		AmountRefunded: decimal.Zero,
		AmountCredited: decimal.Zero,
		Version:        1,
		Rooms:          rooms,
	}

	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.LogBookingCreated(ctx, booking.ID.String(), booking.PropertyID.String(), booking.GuestID.String())
	s.manager.Publish(ctx, EventBookingCreated, booking.ID,
		newStatusChangedPayload(nil, booking, actor, "", nil, booking.CreatedAt))

	return booking, nil
}

// GetBooking retrieves a booking the actor is allowed to see
func (s *service) GetBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(booking) {
		return nil, fmt.Errorf("%w: booking belongs to another guest", ErrForbidden)
	}
	return booking, nil
}

// ListBookings returns one page of bookings
func (s *service) ListBookings(ctx context.Context, query BookingListQuery) (*PaginatedBookings, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 10
	}
	if query.Status != "" {
		if _, err := ParseStatus(query.Status); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
		}
	}
	if query.PaymentStatus != "" {
		if _, err := ParsePaymentStatus(query.PaymentStatus); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
		}
	}

	bookings, total, err := s.store.ListBookings(ctx, query)
	if err != nil {
		return nil, err
	}

	return &PaginatedBookings{
		Bookings:   bookings,
		TotalCount: total,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: CalculateTotalPages(total, query.Limit),
	}, nil
}

// TransitionStatus applies a requested status change. Guests may only cancel
// their own bookings.
func (s *service) TransitionStatus(ctx context.Context, actor Actor, bookingID uuid.UUID, req TransitionRequest) (*Booking, error) {
	if err := s.validator.Struct(&req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	requested := Status(req.Status)

	if actor.IsGuest() {
		if requested != StatusCancelled {
			return nil, fmt.Errorf("%w: guests may only cancel bookings", ErrForbidden)
		}
		if _, err := s.GetBooking(ctx, actor, bookingID); err != nil {
			return nil, err
		}
	}

	opts := TransitionOptions{Reason: req.Reason}
	if req.RefundRequestID != "" {
		refundID, err := uuid.Parse(req.RefundRequestID)
		if err != nil {
			return nil, validationError("invalid refund_request_id")
		}
		opts.RefundRequestID = &refundID
	}

	return s.manager.TransitionStatus(ctx, bookingID, requested, actor, opts)
}

// RecordPayment adds a received payment to the booking
func (s *service) RecordPayment(ctx context.Context, actor Actor, bookingID uuid.UUID, amount decimal.Decimal) (*Booking, error) {
	if actor.IsGuest() {
		return nil, fmt.Errorf("%w: guests cannot record payments", ErrForbidden)
	}
	return s.manager.ApplyPayment(ctx, bookingID, amount.Round(2), actor)
}

// GetRefundEligibility evaluates the refund policy for a booking right now
func (s *service) GetRefundEligibility(ctx context.Context, actor Actor, bookingID uuid.UUID) (*EligibilityResponse, error) {
	booking, err := s.GetBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	return &EligibilityResponse{
		BookingID:         booking.ID.String(),
		RefundEligibility: s.manager.Eligibility(booking),
		Currency:          booking.Currency,
	}, nil
}

// GetTransitions returns the audit trail of a booking
func (s *service) GetTransitions(ctx context.Context, actor Actor, bookingID uuid.UUID) ([]StatusTransition, error) {
	if _, err := s.GetBooking(ctx, actor, bookingID); err != nil {
		return nil, err
	}
	return s.store.ListTransitions(ctx, bookingID)
}
