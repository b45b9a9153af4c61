package refunds

import (
	"context"
	"net/http"

	"staydesk/internal/bookings"
	"staydesk/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller interface {
	RequestRefund(c *gin.Context)
	ListRefunds(c *gin.Context)
	GetRefund(c *gin.Context)
	ApproveRefund(c *gin.Context)
	RejectRefund(c *gin.Context)
	ProcessRefund(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// RequestRefund handles POST /api/v1/bookings/:id/refunds
func (ctrl *controller) RequestRefund(c *gin.Context) {
	actor, err := bookings.ActorFromContext(c)
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	bookingID, err := bookings.ParseIDParam(c, "id")
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	var req CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	refund, err := ctrl.service.RequestRefund(c.Request.Context(), actor, bookingID, req)
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Refund requested successfully", refund)
}

// ListRefunds handles GET /api/v1/bookings/:id/refunds
func (ctrl *controller) ListRefunds(c *gin.Context) {
	actor, err := bookings.ActorFromContext(c)
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	bookingID, err := bookings.ParseIDParam(c, "id")
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	refunds, err := ctrl.service.ListForBooking(c.Request.Context(), actor, bookingID)
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Refunds retrieved successfully", refunds)
}

// GetRefund handles GET /api/v1/refunds/:id
func (ctrl *controller) GetRefund(c *gin.Context) {
	actor, err := bookings.ActorFromContext(c)
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	refundID, err := bookings.ParseIDParam(c, "id")
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	refund, err := ctrl.service.Get(c.Request.Context(), actor, refundID)
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Refund retrieved successfully", refund)
}

// ApproveRefund handles POST /api/v1/refunds/:id/approve
func (ctrl *controller) ApproveRefund(c *gin.Context) {
	ctrl.decide(c, ctrl.service.Approve, "Refund approved successfully")
}

// RejectRefund handles POST /api/v1/refunds/:id/reject
func (ctrl *controller) RejectRefund(c *gin.Context) {
	ctrl.decide(c, ctrl.service.Reject, "Refund rejected successfully")
}

type decision func(ctx context.Context, actor bookings.Actor, refundID uuid.UUID) (*bookings.RefundRequest, error)

func (ctrl *controller) decide(c *gin.Context, fn decision, message string) {
	actor, err := bookings.ActorFromContext(c)
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	refundID, err := bookings.ParseIDParam(c, "id")
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	refund, err := fn(c.Request.Context(), actor, refundID)
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, message, refund)
}

// ProcessRefund handles POST /api/v1/refunds/:id/process
func (ctrl *controller) ProcessRefund(c *gin.Context) {
	actor, err := bookings.ActorFromContext(c)
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	refundID, err := bookings.ParseIDParam(c, "id")
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	refund, booking, err := ctrl.service.Process(c.Request.Context(), actor, refundID)
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Refund processed successfully", ProcessRefundResponse{
		Refund:  refund,
		Booking: booking,
	})
}
