package bookings

import (
	"staydesk/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures all booking-related routes.
// auth is the authentication middleware, usually middleware.JWTAuthWithConfig(cfg).
func SetupBookingRoutes(rg *gin.RouterGroup, controller Controller, auth gin.HandlerFunc) {
	bookings := rg.Group("/bookings")
	bookings.Use(auth, middleware.RequireAnyRole())
	{
		bookings.POST("", controller.CreateBooking)                                         // POST /api/v1/bookings
		bookings.GET("", middleware.RequireStaff(), controller.ListBookings)                // GET /api/v1/bookings
		bookings.GET("/:id", controller.GetBooking)                                         // GET /api/v1/bookings/:id
		bookings.POST("/:id/transitions", controller.TransitionStatus)                      // POST /api/v1/bookings/:id/transitions
		bookings.GET("/:id/transitions", controller.GetTransitions)                         // GET /api/v1/bookings/:id/transitions
		bookings.POST("/:id/payments", middleware.RequireStaff(), controller.RecordPayment) // POST /api/v1/bookings/:id/payments
		bookings.GET("/:id/refund-eligibility", controller.GetRefundEligibility)            // GET /api/v1/bookings/:id/refund-eligibility
	}
}

// Route definitions for reference:
//
// POST   /api/v1/bookings                          - Create a pending booking
// Request body: { "property_id": "...", "room_ids": ["..."], "check_in": "...", "check_out": "...", "total_amount": "420.00" }
//
// POST   /api/v1/bookings/:id/transitions          - Move a booking to another status
// Request body: { "status": "cancelled", "reason": "no-refund" | "...", "refund_request_id": "..." }
//
// POST   /api/v1/bookings/:id/payments             - Record a received payment (staff)
// Request body: { "amount": "100.00" }
//
// Guests can only see and cancel their own bookings.
