package availability

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// GetAvailability handles GET /api/v1/courts/:id/availability?date=2026-09-01
func (c *Controller) GetAvailability(ctx *gin.Context) {
	courtID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid court ID"})
		return
	}

	dateStr := ctx.Query("date")
	if dateStr == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "date query parameter is required"})
		return
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "date must be in YYYY-MM-DD format"})
		return
	}

	slots, err := c.service.ListAvailable(ctx.Request.Context(), courtID, date)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list availability",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Availability retrieved successfully",
		"data": gin.H{
			"court_id": courtID,
			"date":     dateStr,
			"slots":    slots,
			"count":    len(slots),
		},
	})
}

// CheckConflict handles GET /api/v1/courts/:id/conflicts?start=...&end=...
func (c *Controller) CheckConflict(ctx *gin.Context) {
	courtID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid court ID"})
		return
	}

	start, err := time.Parse(time.RFC3339, ctx.Query("start"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "start must be RFC3339"})
		return
	}
	end, err := time.Parse(time.RFC3339, ctx.Query("end"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "end must be RFC3339"})
		return
	}
	if !end.After(start) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "end must be after start"})
		return
	}

	report, err := c.service.CheckConflict(ctx.Request.Context(), courtID, start, end)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to check conflicts",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Conflict check completed",
		"data":    report,
	})
}
