package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"staydesk/internal/shared/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	SetupAuthRoutes(engine.Group("/api/v1"), NewController(newTestService(t)), middleware.JWTAuthWithConfig(testConfig()))
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body interface{}) (int, map[string]interface{}) {
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
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestController_RegisterLoginMe(t *testing.T) {
	engine := newTestRouter(t)

	code, body := doJSON(t, engine, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, code)
	data := body["data"].(map[string]interface{})
	token := data["access_token"].(string)

	code, _ = doJSON(t, engine, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = doJSON(t, engine, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong-horse",
	})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = doJSON(t, engine, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	me := body["data"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", me["email"])
	assert.Equal(t, middleware.RoleGuest, me["role"])

	// guests cannot create staff accounts
	code, _ = doJSON(t, engine, http.MethodPost, "/api/v1/auth/staff", token, map[string]string{
		"first_name": "Desk", "last_name": "Clerk", "email": "desk@example.com", "password": "correct-horse", "role": "STAFF",
	})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestController_BadRequest(t *testing.T) {
	engine := newTestRouter(t)

	code, body := doJSON(t, engine, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", body["status"])

	code, _ = doJSON(t, engine, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
