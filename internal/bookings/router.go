package bookings

import (
	"courtly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures all booking-related routes
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller) {
	bookings := rg.Group("/bookings")
	bookings.Use(middleware.JWTAuth())
	{
		bookings.POST("", controller.CreateBooking)             // POST /api/v1/bookings
		bookings.GET("/:id", controller.GetBooking)             // GET /api/v1/bookings/:id
		bookings.POST("/:id/join", controller.JoinOpenGame)     // POST /api/v1/bookings/:id/join
		bookings.POST("/:id/invites", controller.InvitePlayer)  // POST /api/v1/bookings/:id/invites
		bookings.POST("/:id/waitlist", controller.JoinWaitlist) // POST /api/v1/bookings/:id/waitlist
		bookings.POST("/:id/cancel", controller.CancelBooking)  // POST /api/v1/bookings/:id/cancel
	}

	invites := rg.Group("/invites")
	invites.Use(middleware.JWTAuth())
	{
		invites.POST("/:id/accept", controller.AcceptInvite)   // POST /api/v1/invites/:id/accept
		invites.POST("/:id/decline", controller.DeclineInvite) // POST /api/v1/invites/:id/decline
	}

	users := rg.Group("/users")
	users.Use(middleware.JWTAuth())
	{
		users.GET("/bookings", controller.GetUserBookings) // GET /api/v1/users/bookings?upcoming=true
	}

	clubs := rg.Group("/clubs")
	clubs.Use(middleware.JWTAuth())
	{
		clubs.GET("/:clubId/open-games", controller.ListOpenGames) // GET /api/v1/clubs/:clubId/open-games
	}

	staff := rg.Group("/staff")
	staff.Use(middleware.JWTAuth(), middleware.RequireStaff())
	{
		staff.POST("/bookings/:id/discount", controller.ApplyDiscount) // POST /api/v1/staff/bookings/:id/discount
	}
}
