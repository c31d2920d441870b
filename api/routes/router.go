// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"courtly/internal/availability"
	"courtly/internal/bookings"
	"courtly/internal/clubs"
	"courtly/internal/notifications"
	"courtly/internal/payments"
	"courtly/internal/shared/config"
	"courtly/internal/shared/database"
	"courtly/internal/users"
	"courtly/internal/waitlist"
	"courtly/pkg/cache"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router holds all route dependencies. Services are built once in
// SetupServices and exposed so main can start the background processors
// against the same instances the HTTP layer uses.
type Router struct {
	config     *config.Config
	db         *database.DB
	dispatcher notifications.Dispatcher
	gateway    payments.Gateway

	bookingService      bookings.Service
	waitlistService     waitlist.Service
	paymentService      payments.Service
	clubService         clubs.Service
	availabilityService availability.Service
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, dispatcher notifications.Dispatcher, gateway payments.Gateway) *Router {
	return &Router{
		config:     cfg,
		db:         db,
		dispatcher: dispatcher,
		gateway:    gateway,
	}
}

// SetupServices builds repositories and services and wires the cross-domain
// collaborators. Setter injection keeps the package graph acyclic: bookings
// and payments reference each other only through local interfaces.
func (r *Router) SetupServices() {
	pg := r.db.GetPostgreSQL()

	userRepo := users.NewRepository(pg)
	bookingRepo := bookings.NewRepository(pg)

	clubRepo := clubs.NewRepository(pg)
	r.clubService = clubs.NewService(clubRepo, bookingRepo)
	if cache.IsInitialized() {
		r.clubService.SetCacheService(cache.NewService(cache.Client()))
	}

	availabilityService := availability.NewService(r.clubService, bookingRepo)

	r.bookingService = bookings.NewService(bookingRepo, r.clubService, userRepo,
		availabilityService, r.dispatcher)

	waitlistRepo := waitlist.NewRepository(pg, r.db.GetRedisClient())
	r.waitlistService = waitlist.NewService(waitlistRepo, r.dispatcher,
		r.config.Scheduler.WaitlistGracePeriod)

	paymentRepo := payments.NewRepository(pg)
	r.paymentService = payments.NewService(paymentRepo, r.gateway, r.dispatcher)

	// Cross-domain wiring.
	r.bookingService.SetWaitlistService(r.waitlistService)
	r.bookingService.SetSettlementService(r.paymentService)
	r.paymentService.SetBookingService(r.bookingService)

	r.availabilityService = availabilityService
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	if r.bookingService == nil {
		r.SetupServices()
	}

	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// Swagger UI
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		clubs.SetupClubRoutes(api, clubs.NewController(r.clubService))
		availability.SetupAvailabilityRoutes(api, availability.NewController(r.availabilityService))
		bookings.SetupBookingRoutes(api, bookings.NewController(r.bookingService))
		waitlist.SetupWaitlistRoutes(api, waitlist.NewController(r.waitlistService))
		payments.SetupPaymentRoutes(api, payments.NewController(r.paymentService))
	}
}

// BookingService returns the wired booking service.
func (r *Router) BookingService() bookings.Service { return r.bookingService }

// WaitlistService returns the wired waitlist service.
func (r *Router) WaitlistService() waitlist.Service { return r.waitlistService }

// PaymentService returns the wired payment service.
func (r *Router) PaymentService() payments.Service { return r.paymentService }

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		// Perform health checks
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "courtly-engine",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "courtly-engine",
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
