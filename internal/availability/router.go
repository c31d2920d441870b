package availability

import (
	"courtly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupAvailabilityRoutes configures the availability query routes
func SetupAvailabilityRoutes(rg *gin.RouterGroup, controller *Controller) {
	courts := rg.Group("/courts")
	courts.Use(middleware.OptionalAuth())
	{
		courts.GET("/:id/availability", controller.GetAvailability) // GET /api/v1/courts/:id/availability?date=YYYY-MM-DD
		courts.GET("/:id/conflicts", controller.CheckConflict)      // GET /api/v1/courts/:id/conflicts?start=...&end=...
	}
}
