package auth

import (
	"staydesk/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes registers the account routes.
// auth is the authentication middleware, usually middleware.JWTAuthWithConfig(cfg).
func SetupAuthRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	group := rg.Group("/auth")
	{
		group.POST("/register", controller.Register)    // POST /api/v1/auth/register
		group.POST("/login", controller.Login)          // POST /api/v1/auth/login
		group.POST("/refresh", controller.RefreshToken) // POST /api/v1/auth/refresh

		protected := group.Group("")
		protected.Use(auth)
		{
			protected.GET("/me", controller.GetMe)                                                          // GET /api/v1/auth/me
			protected.PUT("/change-password", controller.ChangePassword)                                    // PUT /api/v1/auth/change-password
			protected.POST("/staff", middleware.RequireRoles(middleware.RoleAdmin), controller.CreateStaff) // POST /api/v1/auth/staff
		}
	}
}
