package waitlist

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"courtly/internal/shared/middleware"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// LeaveRequest identifies the queue window to leave.
type LeaveRequest struct {
	CourtID     string    `json:"court_id" binding:"required,uuid"`
	WindowStart time.Time `json:"window_start" binding:"required"`
	WindowEnd   time.Time `json:"window_end" binding:"required"`
}

// GetMyEntries handles GET /api/v1/waitlist/mine
func (c *Controller) GetMyEntries(ctx *gin.Context) {
	userID, ok := middleware.ActorID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	entries, err := c.service.ListUserEntries(ctx.Request.Context(), userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list waitlist entries",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Waitlist entries retrieved successfully",
		"data": gin.H{
			"entries": entries,
			"count":   len(entries),
		},
	})
}

// Leave handles POST /api/v1/waitlist/leave
func (c *Controller) Leave(ctx *gin.Context) {
	userID, ok := middleware.ActorID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req LeaveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	courtID, err := uuid.Parse(req.CourtID)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid court ID"})
		return
	}

	if err := c.service.Leave(ctx.Request.Context(), courtID, req.WindowStart, req.WindowEnd, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrNotFound) {
			status = http.StatusNotFound
		}
		ctx.JSON(status, gin.H{
			"error":   "Failed to leave waitlist",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Left waitlist successfully",
	})
}
