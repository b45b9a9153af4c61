// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"staydesk/internal/auth"
	"staydesk/internal/bookings"
	"staydesk/internal/creditnotes"
	"staydesk/internal/refunds"
	"staydesk/internal/shared/config"
	"staydesk/internal/shared/database"
	"staydesk/internal/shared/middleware"
	"staydesk/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config  *config.Config
	db      *database.DB
	store   bookings.Store
	manager *bookings.Manager
	logger  *logger.Logger
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, store bookings.Store, manager *bookings.Manager, log *logger.Logger) *Router {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Router{
		config:  cfg,
		db:      db,
		store:   store,
		manager: manager,
		logger:  log,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	requireAuth := middleware.JWTAuthWithConfig(r.config)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupAuthRoutes(api, requireAuth)
		r.setupBookingRoutes(api, requireAuth)
		r.setupRefundRoutes(api, requireAuth)
		r.setupCreditNoteRoutes(api, requireAuth)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if r.db != nil {
			if err := r.db.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "unhealthy",
					"error":     err.Error(),
					"timestamp": time.Now(),
					"service":   "staydesk",
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "staydesk",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// setupAuthRoutes configures account and token routes
func (r *Router) setupAuthRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	authRepo := auth.NewRepository(r.db.GetPostgreSQL())
	authService := auth.NewService(authRepo, r.config, r.logger)
	authController := auth.NewController(authService)

	auth.SetupAuthRoutes(rg, authController, requireAuth)
}

// setupBookingRoutes configures booking lifecycle routes
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	bookingService := bookings.NewService(r.store, r.manager, r.logger)
	bookingController := bookings.NewController(bookingService)

	bookings.SetupBookingRoutes(rg, bookingController, requireAuth)
}

// setupRefundRoutes configures refund request routes
func (r *Router) setupRefundRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	refundService := refunds.NewService(r.store, r.manager, r.logger)
	refundController := refunds.NewController(refundService)

	refunds.SetupRefundRoutes(rg, refundController, requireAuth)
}

// setupCreditNoteRoutes configures credit note routes
func (r *Router) setupCreditNoteRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	creditNoteService := creditnotes.NewService(r.store, r.manager, r.logger)
	creditNoteController := creditnotes.NewController(creditNoteService)

	creditnotes.SetupCreditNoteRoutes(rg, creditNoteController, requireAuth)
}
