package bookings

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"courtly/internal/pricing"
	"courtly/internal/shared/middleware"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// statusForError maps domain sentinels onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotAuthorised):
		return http.StatusForbidden
	case errors.Is(err, ErrSlotConflict),
		errors.Is(err, ErrAlreadyJoined),
		errors.Is(err, ErrGameFull),
		errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrPolicyViolation),
		errors.Is(err, ErrSkillMismatch),
		errors.Is(err, ErrNotOpenGame),
		errors.Is(err, ErrWaitlistDisabled),
		errors.Is(err, pricing.ErrConfiguration):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// CreateBooking handles POST /api/v1/bookings
func (c *Controller) CreateBooking(ctx *gin.Context) {
	userID, ok := middleware.ActorID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	booking, err := c.service.Create(ctx.Request.Context(), &req, userID)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to create booking",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Booking created successfully",
		"data":    booking,
	})
}

// GetBooking handles GET /api/v1/bookings/:id
func (c *Controller) GetBooking(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	userID, ok := middleware.ActorID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	booking, err := c.service.GetBooking(ctx.Request.Context(), bookingID, userID, middleware.IsStaff(ctx))
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to get booking",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Booking retrieved successfully",
		"data":    booking,
	})
}

// GetUserBookings handles GET /api/v1/users/bookings
func (c *Controller) GetUserBookings(ctx *gin.Context) {
	userID, ok := middleware.ActorID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	upcomingOnly := ctx.DefaultQuery("upcoming", "false") == "true"

	bookings, err := c.service.ListUserBookings(ctx.Request.Context(), userID, upcomingOnly)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get user bookings",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Bookings retrieved successfully",
		"data": gin.H{
			"bookings": bookings,
			"count":    len(bookings),
		},
	})
}

// ListOpenGames handles GET /api/v1/clubs/:clubId/open-games
func (c *Controller) ListOpenGames(ctx *gin.Context) {
	clubID, err := uuid.Parse(ctx.Param("clubId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}

	var query OpenGameQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	games, err := c.service.ListOpenGames(ctx.Request.Context(), clubID, &query)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to list open games",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Open games retrieved successfully",
		"data": gin.H{
			"open_games": games,
			"count":      len(games),
		},
	})
}

// JoinOpenGame handles POST /api/v1/bookings/:id/join
func (c *Controller) JoinOpenGame(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	userID, ok := middleware.ActorID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	booking, err := c.service.JoinOpenGame(ctx.Request.Context(), bookingID, userID)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to join open game",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Joined open game successfully",
		"data":    booking,
	})
}

// InvitePlayer handles POST /api/v1/bookings/:id/invites
func (c *Controller) InvitePlayer(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	userID, ok := middleware.ActorID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req InviteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	invite, err := c.service.Invite(ctx.Request.Context(), bookingID, userID, &req)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to create invite",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Invite created successfully",
		"data":    invite,
	})
}

// AcceptInvite handles POST /api/v1/invites/:id/accept
func (c *Controller) AcceptInvite(ctx *gin.Context) {
	c.respondToInvite(ctx, true)
}

// DeclineInvite handles POST /api/v1/invites/:id/decline
func (c *Controller) DeclineInvite(ctx *gin.Context) {
	c.respondToInvite(ctx, false)
}

func (c *Controller) respondToInvite(ctx *gin.Context, accept bool) {
	inviteID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invite ID"})
		return
	}

	userID, ok := middleware.ActorID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	booking, err := c.service.RespondToInvite(ctx.Request.Context(), inviteID, userID, accept)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to respond to invite",
			"details": err.Error(),
		})
		return
	}

	message := "Invite declined"
	if accept {
		message = "Invite accepted"
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    booking,
	})
}

// JoinWaitlist handles POST /api/v1/bookings/:id/waitlist
func (c *Controller) JoinWaitlist(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	userID, ok := middleware.ActorID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	position, err := c.service.JoinWaitlist(ctx.Request.Context(), bookingID, userID)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to join waitlist",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Joined waitlist successfully",
		"data": gin.H{
			"position": position,
		},
	})
}

// ApplyDiscount handles POST /api/v1/staff/bookings/:id/discount
func (c *Controller) ApplyDiscount(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	staffID, ok := middleware.ActorID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req DiscountRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	booking, err := c.service.ApplyDiscount(ctx.Request.Context(), bookingID, staffID, &req)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to apply discount",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Discount applied successfully",
		"data":    booking,
	})
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (c *Controller) CancelBooking(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	userID, ok := middleware.ActorID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	// Reason is optional; an empty body is a plain cancellation.
	var req CancelRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request body",
				"details": err.Error(),
			})
			return
		}
	}

	booking, err := c.service.Cancel(ctx.Request.Context(), bookingID, userID, middleware.IsStaff(ctx), req.Reason)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to cancel booking",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Booking cancelled successfully",
		"data":    booking,
	})
}
