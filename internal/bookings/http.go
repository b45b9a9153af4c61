package bookings

import (
	"errors"
	"net/http"

	"staydesk/internal/shared/middleware"
	"staydesk/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorDetails is the errors field of a failed lifecycle request
type ErrorDetails struct {
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// StatusCode maps a domain error onto an HTTP status
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrTerminalState):
		return http.StatusConflict
	case errors.Is(err, ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, ErrRefundRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, middleware.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func errorDetails(err error) ErrorDetails {
	details := ErrorDetails{Code: "internal_error"}

	var te *TransitionError
	var rr *RefundRequiredError
	switch {
	case errors.As(err, &te):
		details.Code = "invalid_transition"
		if errors.Is(te.Kind, ErrTerminalState) {
			details.Code = "terminal_state_violation"
		}
		details.From = te.From
		details.To = te.To
	case errors.As(err, &rr):
		details.Code = "refund_required"
		details.Reason = rr.Reason
	case errors.Is(err, ErrConcurrentModification):
		details.Code = "concurrent_modification"
		details.Retryable = IsRetryable(err)
	case errors.Is(err, ErrNotFound):
		details.Code = "not_found"
	case errors.Is(err, ErrValidation):
		details.Code = "validation_failed"
	case errors.Is(err, ErrForbidden):
		details.Code = "forbidden"
	case errors.Is(err, middleware.ErrUnauthenticated):
		details.Code = "unauthenticated"
	}
	return details
}

// RespondError writes err in the standard envelope with its mapped status
func RespondError(c *gin.Context, err error) {
	code := StatusCode(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		message = "Internal server error"
		_ = c.Error(err)
	}
	response.Fail(c, code, message, errorDetails(err))
}

// ActorFromContext builds the actor for the authenticated request
func ActorFromContext(c *gin.Context) (Actor, error) {
	userID, role, err := middleware.CurrentUser(c)
	if err != nil {
		return Actor{}, err
	}
	return ActorFromRole(role, userID)
}

// ParseIDParam parses a uuid path parameter
func ParseIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, validationError("invalid %s", name)
	}
	return id, nil
}
