package refunds

import (
	"staydesk/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRefundRoutes configures the refund workflow routes
func SetupRefundRoutes(rg *gin.RouterGroup, controller Controller, auth gin.HandlerFunc) {
	bookingRefunds := rg.Group("/bookings/:id/refunds")
	bookingRefunds.Use(auth, middleware.RequireAnyRole())
	{
		bookingRefunds.POST("", controller.RequestRefund) // POST /api/v1/bookings/:id/refunds
		bookingRefunds.GET("", controller.ListRefunds)    // GET /api/v1/bookings/:id/refunds
	}

	refunds := rg.Group("/refunds")
	refunds.Use(auth, middleware.RequireAnyRole())
	{
		refunds.GET("/:id", controller.GetRefund)                                         // GET /api/v1/refunds/:id
		refunds.POST("/:id/approve", middleware.RequireStaff(), controller.ApproveRefund) // POST /api/v1/refunds/:id/approve
		refunds.POST("/:id/reject", middleware.RequireStaff(), controller.RejectRefund)   // POST /api/v1/refunds/:id/reject
		refunds.POST("/:id/process", middleware.RequireStaff(), controller.ProcessRefund) // POST /api/v1/refunds/:id/process
	}
}

// Route definitions for reference:
//
// POST   /api/v1/bookings/:id/refunds      - Open a refund request
// Request body: { "amount": "150.00", "reason": "plans changed" }
//
// Approve, reject and process are staff actions and take no body.
// Processing applies the refunded amount to the booking's payment status.
