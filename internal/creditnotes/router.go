package creditnotes

import (
	"staydesk/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupCreditNoteRoutes configures credit note routes. There is no update or delete route.
func SetupCreditNoteRoutes(rg *gin.RouterGroup, controller Controller, auth gin.HandlerFunc) {
	bookingNotes := rg.Group("/bookings/:id/credit-notes")
	bookingNotes.Use(auth, middleware.RequireAnyRole())
	{
		bookingNotes.POST("", middleware.RequireStaff(), controller.IssueCreditNote) // POST /api/v1/bookings/:id/credit-notes
		bookingNotes.GET("", controller.ListCreditNotes)                             // GET /api/v1/bookings/:id/credit-notes
	}

	notes := rg.Group("/credit-notes")
	notes.Use(auth, middleware.RequireAnyRole())
	{
		notes.GET("/:id", controller.GetCreditNote) // GET /api/v1/credit-notes/:id
	}
}
