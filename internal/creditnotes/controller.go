package creditnotes

import (
	"net/http"

	"staydesk/internal/bookings"
	"staydesk/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller interface {
	IssueCreditNote(c *gin.Context)
	ListCreditNotes(c *gin.Context)
	GetCreditNote(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// IssueCreditNote handles POST /api/v1/bookings/:id/credit-notes
func (ctrl *controller) IssueCreditNote(c *gin.Context) {
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

	var req IssueCreditNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	note, booking, err := ctrl.service.Issue(c.Request.Context(), actor, bookingID, req)
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Credit note issued successfully", IssueCreditNoteResponse{
		CreditNote: note,
		Booking:    booking,
	})
}

// ListCreditNotes handles GET /api/v1/bookings/:id/credit-notes
func (ctrl *controller) ListCreditNotes(c *gin.Context) {
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

	notes, err := ctrl.service.ListForBooking(c.Request.Context(), actor, bookingID)
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Credit notes retrieved successfully", notes)
}

// GetCreditNote handles GET /api/v1/credit-notes/:id
func (ctrl *controller) GetCreditNote(c *gin.Context) {
	actor, err := bookings.ActorFromContext(c)
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	noteID, err := bookings.ParseIDParam(c, "id")
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	note, err := ctrl.service.Get(c.Request.Context(), actor, noteID)
	if err != nil {
		bookings.RespondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Credit note retrieved successfully", note)
}
