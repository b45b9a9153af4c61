package refunds_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"staydesk/internal/bookings"
	"staydesk/internal/refunds"
	"staydesk/internal/shared/config"
	"staydesk/internal/shared/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func bearer(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"role":    role,
		"type":    "access",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newRouter(service refunds.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	refunds.SetupRefundRoutes(r.Group("/api/v1"), refunds.NewController(service), middleware.JWTAuthWithConfig(cfg))
	return r
}

type envelope struct {
	Status     string                `json:"status"`
	StatusCode int                   `json:"status_code"`
	Data       json.RawMessage       `json:"data"`
	Errors     bookings.ErrorDetails `json:"errors"`
}

func call(t *testing.T, r http.Handler, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestController_RefundWorkflow(t *testing.T) {
	h := newHarness(t)
	r := newRouter(h.service)
	b := paidBooking(t, h.store)
	guest := bearer(t, b.GuestID, middleware.RoleGuest)
	staff := bearer(t, uuid.New(), middleware.RoleStaff)
	base := "/api/v1/bookings/" + b.ID.String() + "/refunds"

	code, env := call(t, r, http.MethodPost, base, guest, gin.H{"amount": "120.00", "reason": "flight cancelled"})
	require.Equal(t, http.StatusCreated, code)
	var created bookings.RefundRequest
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, bookings.RefundRequested, created.Status)

	code, env = call(t, r, http.MethodPost, base, guest, gin.H{"amount": "10.00", "reason": "again please"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_failed", env.Errors.Code)

	refundPath := "/api/v1/refunds/" + created.ID.String()

	code, _ = call(t, r, http.MethodPost, refundPath+"/approve", guest, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = call(t, r, http.MethodPost, refundPath+"/approve", staff, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = call(t, r, http.MethodPost, refundPath+"/reject", staff, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_transition", env.Errors.Code)

	code, env = call(t, r, http.MethodPost, refundPath+"/process", staff, nil)
	require.Equal(t, http.StatusOK, code)
	var processed refunds.ProcessRefundResponse
	require.NoError(t, json.Unmarshal(env.Data, &processed))
	assert.Equal(t, bookings.RefundProcessed, processed.Refund.Status)
	assert.Equal(t, bookings.PaymentPartiallyRefunded, processed.Booking.PaymentStatus)

	code, env = call(t, r, http.MethodGet, base, guest, nil)
	require.Equal(t, http.StatusOK, code)
	var list []bookings.RefundRequest
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	code, _ = call(t, r, http.MethodGet, base, bearer(t, uuid.New(), middleware.RoleGuest), nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestController_ProcessWithoutApproval(t *testing.T) {
	h := newHarness(t)
	r := newRouter(h.service)
	b := paidBooking(t, h.store)
	staff := bearer(t, uuid.New(), middleware.RoleAdmin)

	code, env := call(t, r, http.MethodPost, "/api/v1/bookings/"+b.ID.String()+"/refunds", staff, gin.H{"amount": "50", "reason": "overcharge"})
	require.Equal(t, http.StatusCreated, code)
	var created bookings.RefundRequest
	require.NoError(t, json.Unmarshal(env.Data, &created))

	code, env = call(t, r, http.MethodPost, "/api/v1/refunds/"+created.ID.String()+"/process", staff, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "refund_required", env.Errors.Code)
}
