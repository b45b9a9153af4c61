package bookings

import (
	"net/http"

	"staydesk/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller interface {
	CreateBooking(c *gin.Context)
	GetBooking(c *gin.Context)
	ListBookings(c *gin.Context)
	TransitionStatus(c *gin.Context)
	RecordPayment(c *gin.Context)
	GetRefundEligibility(c *gin.Context)
	GetTransitions(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// CreateBooking handles POST /api/v1/bookings
func (ctrl *controller) CreateBooking(c *gin.Context) {
	actor, err := ActorFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	booking, err := ctrl.service.CreateBooking(c.Request.Context(), actor, req)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Booking created successfully", booking)
}

// GetBooking handles GET /api/v1/bookings/:id
func (ctrl *controller) GetBooking(c *gin.Context) {
	actor, err := ActorFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	bookingID, err := ParseIDParam(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}

	booking, err := ctrl.service.GetBooking(c.Request.Context(), actor, bookingID)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Booking retrieved successfully", booking)
}

// ListBookings handles GET /api/v1/bookings
func (ctrl *controller) ListBookings(c *gin.Context) {
	var query BookingListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	page, err := ctrl.service.ListBookings(c.Request.Context(), query)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Bookings retrieved successfully", page)
}

// TransitionStatus handles POST /api/v1/bookings/:id/transitions
func (ctrl *controller) TransitionStatus(c *gin.Context) {
	actor, err := ActorFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	bookingID, err := ParseIDParam(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	booking, err := ctrl.service.TransitionStatus(c.Request.Context(), actor, bookingID, req)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Booking status updated successfully", booking)
}

// RecordPayment handles POST /api/v1/bookings/:id/payments
func (ctrl *controller) RecordPayment(c *gin.Context) {
	actor, err := ActorFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	bookingID, err := ParseIDParam(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}

	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	booking, err := ctrl.service.RecordPayment(c.Request.Context(), actor, bookingID, req.Amount)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Payment recorded successfully", booking)
}

// GetRefundEligibility handles GET /api/v1/bookings/:id/refund-eligibility
func (ctrl *controller) GetRefundEligibility(c *gin.Context) {
	actor, err := ActorFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	bookingID, err := ParseIDParam(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}

	eligibility, err := ctrl.service.GetRefundEligibility(c.Request.Context(), actor, bookingID)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Refund eligibility retrieved successfully", eligibility)
}

// GetTransitions handles GET /api/v1/bookings/:id/transitions
func (ctrl *controller) GetTransitions(c *gin.Context) {
	actor, err := ActorFromContext(c)
	if err != nil {
		RespondError(c, err)
		return
	}

	bookingID, err := ParseIDParam(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}

	transitions, err := ctrl.service.GetTransitions(c.Request.Context(), actor, bookingID)
	if err != nil {
		RespondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Booking transitions retrieved successfully", transitions)
}
