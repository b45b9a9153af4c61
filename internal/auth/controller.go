package auth

import (
	"errors"
	"net/http"

	"staydesk/internal/shared/middleware"
	"staydesk/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{
		service: service,
	}
}

func (c *Controller) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Fail(ctx, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	resp, err := c.service.Register(ctx.Request.Context(), &req)
	if err != nil {
		c.respondError(ctx, err, "Failed to register account")
		return
	}

	response.Success(ctx, http.StatusCreated, "Account registered successfully", resp)
}

func (c *Controller) CreateStaff(ctx *gin.Context) {
	_, role, err := middleware.CurrentUser(ctx)
	if err != nil {
		response.Fail(ctx, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	var req CreateStaffRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Fail(ctx, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	resp, err := c.service.CreateStaff(ctx.Request.Context(), role, &req)
	if err != nil {
		c.respondError(ctx, err, "Failed to create staff account")
		return
	}

	response.Success(ctx, http.StatusCreated, "Staff account created successfully", resp)
}

func (c *Controller) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Fail(ctx, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	resp, err := c.service.Login(ctx.Request.Context(), &req)
	if err != nil {
		c.respondError(ctx, err, "Failed to login")
		return
	}

	response.Success(ctx, http.StatusOK, "Login successful", resp)
}

func (c *Controller) RefreshToken(ctx *gin.Context) {
	var req RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Fail(ctx, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	tokenPair, err := c.service.RefreshToken(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		c.respondError(ctx, err, "Failed to refresh token")
		return
	}

	response.Success(ctx, http.StatusOK, "Token refreshed successfully", tokenPair)
}

func (c *Controller) ChangePassword(ctx *gin.Context) {
	accountID, _, err := middleware.CurrentUser(ctx)
	if err != nil {
		response.Fail(ctx, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	var req ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.Fail(ctx, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	if err := c.service.ChangePassword(ctx.Request.Context(), accountID, &req); err != nil {
		c.respondError(ctx, err, "Failed to change password")
		return
	}

	response.Success(ctx, http.StatusOK, "Password changed successfully", nil)
}

func (c *Controller) GetMe(ctx *gin.Context) {
	accountID, _, err := middleware.CurrentUser(ctx)
	if err != nil {
		response.Fail(ctx, http.StatusUnauthorized, "User not authenticated", nil)
		return
	}

	account, err := c.service.GetAccount(ctx.Request.Context(), accountID)
	if err != nil {
		c.respondError(ctx, err, "Failed to load account")
		return
	}

	response.Success(ctx, http.StatusOK, "Account retrieved successfully", account)
}

func (c *Controller) respondError(ctx *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrAccountExists):
		response.Fail(ctx, http.StatusConflict, "An account with this email already exists", nil)
	case errors.Is(err, ErrInvalidCredentials):
		response.Fail(ctx, http.StatusUnauthorized, "Invalid email or password", nil)
	case errors.Is(err, ErrInvalidToken):
		response.Fail(ctx, http.StatusUnauthorized, "Invalid or expired refresh token", nil)
	case errors.Is(err, ErrAccountNotFound):
		response.Fail(ctx, http.StatusNotFound, "Account not found", nil)
	case errors.Is(err, ErrForbidden):
		response.Fail(ctx, http.StatusForbidden, "Insufficient permissions", nil)
	default:
		response.Fail(ctx, http.StatusInternalServerError, fallback, nil)
	}
}
