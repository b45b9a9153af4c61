package creditnotes_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"staydesk/internal/bookings"
	"staydesk/internal/creditnotes"
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

type envelope struct {
	Data   json.RawMessage       `json:"data"`
	Errors bookings.ErrorDetails `json:"errors"`
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

func TestController_CreditNotes(t *testing.T) {
	svc, store, _ := newService(t)
	b := paidBooking(t, store)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	creditnotes.SetupCreditNoteRoutes(r.Group("/api/v1"), creditnotes.NewController(svc), middleware.JWTAuthWithConfig(cfg))

	guest := bearer(t, b.GuestID, middleware.RoleGuest)
	stranger := bearer(t, uuid.New(), middleware.RoleGuest)
	staff := bearer(t, uuid.New(), middleware.RoleStaff)
	base := "/api/v1/bookings/" + b.ID.String() + "/credit-notes"
	body := gin.H{"amount": "75.00", "reason": "noisy room", "invoice_ref": "INV-7"}

	code, _ := call(t, r, http.MethodPost, base, guest, body)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := call(t, r, http.MethodPost, base, staff, body)
	require.Equal(t, http.StatusCreated, code)
	var issued creditnotes.IssueCreditNoteResponse
	require.NoError(t, json.Unmarshal(env.Data, &issued))
	require.NotNil(t, issued.CreditNote)
	assert.Equal(t, "75.00", issued.CreditNote.Amount.StringFixed(2))
	assert.Equal(t, "75.00", issued.Booking.AmountCredited.StringFixed(2))

	code, env = call(t, r, http.MethodPost, base, staff, gin.H{"amount": "5000.00", "reason": "too generous"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_failed", env.Errors.Code)

	code, env = call(t, r, http.MethodGet, base, guest, nil)
	require.Equal(t, http.StatusOK, code)
	var notes []bookings.CreditNote
	require.NoError(t, json.Unmarshal(env.Data, &notes))
	assert.Len(t, notes, 1)

	code, _ = call(t, r, http.MethodGet, base, stranger, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = call(t, r, http.MethodGet, "/api/v1/credit-notes/"+issued.CreditNote.ID.String(), guest, nil)
	require.Equal(t, http.StatusOK, code)
	var got bookings.CreditNote
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "INV-7", got.InvoiceRef)

	code, _ = call(t, r, http.MethodGet, "/api/v1/credit-notes/not-a-uuid", staff, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
