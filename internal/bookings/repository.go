package bookings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository returns the GORM implementation of Store
func NewRepository(db *gorm.DB) Store {
	return &repository{db: db}
}

func (r *repository) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{db: tx})
	})
}

func (r *repository) CreateBooking(ctx context.Context, booking *Booking) error {
	if err := r.db.WithContext(ctx).Create(booking).Error; err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *repository) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := r.db.WithContext(ctx).
		Preload("Rooms").
		Where("id = ?", id).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "booking", ID: id}
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

func (r *repository) ListBookings(ctx context.Context, query BookingListQuery) ([]Booking, int64, error) {
	var bookings []Booking
	var totalCount int64

	// Set defaults
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}

	baseQuery := r.applyFilters(r.db.WithContext(ctx).Model(&Booking{}), query)

	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	offset := (query.Page - 1) * query.Limit
	err := baseQuery.
		Preload("Rooms").
		Order("created_at DESC").
		Offset(offset).
		Limit(query.Limit).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	return bookings, totalCount, nil
}

func (r *repository) ListStaleBookings(ctx context.Context, status Status, field DueField, before time.Time, limit int) ([]Booking, error) {
	if field != DueCheckIn && field != DueCheckOut {
		return nil, fmt.Errorf("unsupported due field %q", field)
	}

	var bookings []Booking
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Where(string(field)+" < ?", before).
		Order(string(field) + " ASC").
		Limit(limit).
		Find(&bookings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale bookings: %w", err)
	}
	return bookings, nil
}

// UpdateBookingStatus writes the new state only if the row is still at expectedVersion
func (r *repository) UpdateBookingStatus(ctx context.Context, id uuid.UUID, update StatusUpdate, expectedVersion int64) (*Booking, error) {
	updates := map[string]interface{}{
		"status":              update.Status,
		"payment_status":      update.PaymentStatus,
		"amount_paid":         update.AmountPaid,
		"amount_refunded":     update.AmountRefunded,
		"amount_credited":     update.AmountCredited,
		"cancelled_at":        update.CancelledAt,
		"cancellation_reason": update.CancellationReason,
		"version":             gorm.Expr("version + 1"),
		"updated_at":          time.Now().UTC(),
	}

	result := r.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&Booking{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check booking existence: %w", err)
		}
		if count == 0 {
			return nil, &NotFoundError{Entity: "booking", ID: id}
		}
		return nil, &ConcurrencyError{BookingID: id, ExpectedVersion: expectedVersion}
	}

	return r.GetBooking(ctx, id)
}

func (r *repository) CreateRefundRequest(ctx context.Context, req *RefundRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create refund request: %w", err)
	}
	return nil
}

func (r *repository) GetRefundRequest(ctx context.Context, id uuid.UUID) (*RefundRequest, error) {
	var req RefundRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "refund_request", ID: id}
		}
		return nil, fmt.Errorf("failed to get refund request: %w", err)
	}
	return &req, nil
}

func (r *repository) ListRefundRequests(ctx context.Context, bookingID uuid.UUID) ([]RefundRequest, error) {
	var requests []RefundRequest
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list refund requests: %w", err)
	}
	return requests, nil
}

// UpdateRefundStatus moves a refund request from one status to the next if it is still at from
func (r *repository) UpdateRefundStatus(ctx context.Context, id uuid.UUID, from, to RefundStatus, actor Actor, at time.Time) (*RefundRequest, error) {
	if !from.CanTransitionTo(to) {
		return nil, invalidTransition("refund_request", string(from), string(to))
	}

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case RefundApproved, RefundRejected:
		actorID := actor.ID
		updates["decided_by_kind"] = actor.Kind
		updates["decided_by_id"] = &actorID
		updates["decided_at"] = at
	case RefundProcessed:
		updates["processed_at"] = at
	}

	result := r.db.WithContext(ctx).
		Model(&RefundRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update refund request: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		current, err := r.GetRefundRequest(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, invalidTransition("refund_request", string(current.Status), string(to))
	}

	return r.GetRefundRequest(ctx, id)
}

func (r *repository) CreateCreditNote(ctx context.Context, note *CreditNote) error {
	if err := r.db.WithContext(ctx).Create(note).Error; err != nil {
		return fmt.Errorf("failed to create credit note: %w", err)
	}
	return nil
}

func (r *repository) GetCreditNote(ctx context.Context, id uuid.UUID) (*CreditNote, error) {
	var note CreditNote
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&note).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "credit_note", ID: id}
		}
		return nil, fmt.Errorf("failed to get credit note: %w", err)
	}
	return &note, nil
}

func (r *repository) ListCreditNotes(ctx context.Context, bookingID uuid.UUID) ([]CreditNote, error) {
	var notes []CreditNote
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("issued_at ASC").
		Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list credit notes: %w", err)
	}
	return notes, nil
}

func (r *repository) RecordTransition(ctx context.Context, transition *StatusTransition) error {
	if err := r.db.WithContext(ctx).Create(transition).Error; err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

func (r *repository) ListTransitions(ctx context.Context, bookingID uuid.UUID) ([]StatusTransition, error) {
	var transitions []StatusTransition
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("occurred_at ASC").
		Find(&transitions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	return transitions, nil
}

// applyFilters applies query filters to the GORM query
func (r *repository) applyFilters(query *gorm.DB, filters BookingListQuery) *gorm.DB {
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}

	if filters.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filters.PaymentStatus)
	}

	if filters.GuestID != "" {
		if guestID, err := uuid.Parse(filters.GuestID); err == nil {
			query = query.Where("guest_id = ?", guestID)
		}
	}

	if filters.PropertyID != "" {
		if propertyID, err := uuid.Parse(filters.PropertyID); err == nil {
			query = query.Where("property_id = ?", propertyID)
		}
	}

	if filters.CheckInFrom != "" {
		if from, err := time.Parse("2006-01-02", filters.CheckInFrom); err == nil {
			query = query.Where("check_in >= ?", from)
		}
	}

	if filters.CheckInTo != "" {
		if to, err := time.Parse("2006-01-02", filters.CheckInTo); err == nil {
			// Include the entire day
			query = query.Where("check_in < ?", to.Add(24*time.Hour))
		}
	}

	return query
}

// CalculateTotalPages returns the page count for a listing
func CalculateTotalPages(totalCount int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(totalCount) / float64(limit)))
}
