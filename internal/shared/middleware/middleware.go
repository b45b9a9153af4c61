package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"staydesk/internal/shared/config"
	"staydesk/internal/shared/utils/response"
	"staydesk/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Roles carried in the JWT role claim
const (
	RoleGuest = "GUEST"
	RoleStaff = "STAFF"
	RoleAdmin = "ADMIN"
)

// Context keys set by JWTAuthWithConfig
const (
	ContextUserID    = "user_id"
	ContextUserEmail = "user_email"
	ContextUserRole  = "user_role"
)

const HeaderRequestID = "X-Request-ID"

var ErrUnauthenticated = errors.New("user not authenticated")

// JWTAuthWithConfig creates a JWT authentication middleware with config
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := parseBearer(c, cfg.JWT.Secret)
		if err != nil {
			logger.GetDefault().LogAuthFailure(c.Request.Context(), err.Error(), c.ClientIP())
			response.RespondJSON(c, "error", http.StatusUnauthorized, err.Error(), nil, nil)
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

func parseBearer(c *gin.Context, secret string) (jwt.MapClaims, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, errors.New("Authorization header is required")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, errors.New("authorization header format must be Bearer {token}")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
		return nil, errors.New("invalid token type")
	}
	return claims, nil
}

func setClaims(c *gin.Context, claims jwt.MapClaims) {
	c.Set(ContextUserID, claims["user_id"])
	c.Set(ContextUserEmail, claims["email"])
	c.Set(ContextUserRole, claims["role"])
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get(ContextUserRole)
		if !exists {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "user role not found in context", nil, nil)
			c.Abort()
			return
		}

		role, _ := userRole.(string)
		for _, required := range requiredRoles {
			if role == required {
				c.Next()
				return
			}
		}

		response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
		c.Abort()
	}
}

// RequireStaff allows staff and admins
func RequireStaff() gin.HandlerFunc {
	return RequireRoles(RoleStaff, RoleAdmin)
}

// RequireAnyRole allows every authenticated role
func RequireAnyRole() gin.HandlerFunc {
	return RequireRoles(RoleGuest, RoleStaff, RoleAdmin)
}

// CurrentUser returns the authenticated user's id and role
func CurrentUser(c *gin.Context) (uuid.UUID, string, error) {
	rawID, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, "", ErrUnauthenticated
	}
	idStr, ok := rawID.(string)
	if !ok {
		return uuid.Nil, "", ErrUnauthenticated
	}
	userID, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, "", ErrUnauthenticated
	}

	role, _ := c.Get(ContextUserRole)
	roleStr, _ := role.(string)
	return userID, roleStr, nil
}

// RequestLogger tags each request with an X-Request-ID and logs it through the structured logger
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		c.Next()

		reqLog := log.WithRequestID(requestID)
		if c.Writer.Status() >= http.StatusInternalServerError && len(c.Errors) > 0 {
			reqLog.LogHTTPError(c, c.Errors.Last(), c.Writer.Status())
		}
		reqLog.LogHTTPRequest(c, time.Since(start))
	}
}
