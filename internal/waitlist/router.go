package waitlist

import (
	"courtly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupWaitlistRoutes configures the waitlist routes
func SetupWaitlistRoutes(rg *gin.RouterGroup, controller *Controller) {
	waitlist := rg.Group("/waitlist")
	waitlist.Use(middleware.JWTAuth())
	{
		waitlist.GET("/mine", controller.GetMyEntries) // GET /api/v1/waitlist/mine
		waitlist.POST("/leave", controller.Leave)      // POST /api/v1/waitlist/leave
	}
}
