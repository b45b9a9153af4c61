package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"staydesk/internal/shared/config"
	"staydesk/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-secret"

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func protectedEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}
	r.GET("/staff", JWTAuthWithConfig(cfg), RequireStaff(), func(c *gin.Context) {
		id, role, err := CurrentUser(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id.String(), "role": role})
	})
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthWithConfig(t *testing.T) {
	r := protectedEngine()
	staffID := uuid.New()
	exp := time.Now().Add(time.Hour).Unix()

	w := get(r, sign(t, jwt.MapClaims{"user_id": staffID.String(), "role": RoleStaff, "type": "access", "exp": exp}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), staffID.String())

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"refresh token", sign(t, jwt.MapClaims{"user_id": staffID.String(), "role": RoleStaff, "type": "refresh", "exp": exp}), http.StatusUnauthorized},
		{"expired", sign(t, jwt.MapClaims{"user_id": staffID.String(), "role": RoleStaff, "type": "access", "exp": time.Now().Add(-time.Minute).Unix()}), http.StatusUnauthorized},
		{"guest role", sign(t, jwt.MapClaims{"user_id": uuid.NewString(), "role": RoleGuest, "type": "access", "exp": exp}), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, get(r, tt.token).Code)
		})
	}
}

func TestCurrentUser_RejectsBadSubject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, _, err := CurrentUser(c)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	c.Set(ContextUserID, "not-a-uuid")
	c.Set(ContextUserRole, RoleGuest)
	_, _, err = CurrentUser(c)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRequestLogger_PropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(logger.NewWithWriter(&buf, slog.LevelInfo)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
	assert.Contains(t, buf.String(), "req-42")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	_, err := uuid.Parse(w.Header().Get(HeaderRequestID))
	assert.NoError(t, err)
}
