package clubs

import (
	"courtly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupClubRoutes configures the club configuration routes
func SetupClubRoutes(rg *gin.RouterGroup, controller *Controller) {
	clubs := rg.Group("/clubs")
	clubs.Use(middleware.OptionalAuth())
	{
		clubs.GET("/:clubId/settings", controller.GetSettings) // GET /api/v1/clubs/:clubId/settings
		clubs.GET("/:clubId/courts", controller.GetCourts)     // GET /api/v1/clubs/:clubId/courts
	}

	staff := rg.Group("/staff")
	staff.Use(middleware.JWTAuth(), middleware.RequireStaff())
	{
		staff.PUT("/clubs/:clubId/settings", controller.UpdateSettings)     // PUT /api/v1/staff/clubs/:clubId/settings
		staff.PUT("/clubs/:clubId/hours", controller.ReplaceOperatingHours) // PUT /api/v1/staff/clubs/:clubId/hours
		staff.PUT("/clubs/:clubId/pricing", controller.ReplacePricingRules) // PUT /api/v1/staff/clubs/:clubId/pricing
		staff.GET("/courts/:id/blackouts", controller.GetBlackouts)         // GET /api/v1/staff/courts/:id/blackouts
		staff.POST("/courts/:id/blackouts", controller.CreateBlackout)      // POST /api/v1/staff/courts/:id/blackouts
	}
}
