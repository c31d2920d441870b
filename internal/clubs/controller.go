package clubs

import (
	"errors"
	"net/http"
	"time"

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

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoOperatingHours):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidSettings),
		errors.Is(err, ErrInvalidHours),
		errors.Is(err, pricing.ErrConfiguration):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// HoursEntry is one weekday window in a replace-hours request.
type HoursEntry struct {
	DayOfWeek int    `json:"day_of_week" binding:"min=0,max=6"`
	OpenTime  string `json:"open_time" binding:"required,len=5"`
	CloseTime string `json:"close_time" binding:"required,len=5"`
}

// ReplaceHoursRequest replaces a club's full weekly schedule.
type ReplaceHoursRequest struct {
	Hours []HoursEntry `json:"hours" binding:"required,dive"`
}

// PricingRuleEntry is one pricing window in a replace-pricing request.
type PricingRuleEntry struct {
	Label        string  `json:"label" binding:"required,max=50"`
	DayOfWeek    int     `json:"day_of_week" binding:"min=0,max=6"`
	StartTime    string  `json:"start_time" binding:"required,len=5"`
	EndTime      string  `json:"end_time" binding:"required,len=5"`
	PricePerSlot float64 `json:"price_per_slot" binding:"min=0"`
}

// ReplacePricingRequest replaces a club's pricing rules.
type ReplacePricingRequest struct {
	Rules []PricingRuleEntry `json:"rules" binding:"required,dive"`
}

// CreateBlackoutRequest blocks a court window.
type CreateBlackoutRequest struct {
	StartDatetime time.Time `json:"start_datetime" binding:"required"`
	EndDatetime   time.Time `json:"end_datetime" binding:"required"`
	Reason        string    `json:"reason" binding:"max=500"`
}

// GetSettings handles GET /api/v1/clubs/:clubId/settings
func (c *Controller) GetSettings(ctx *gin.Context) {
	clubID, err := uuid.Parse(ctx.Param("clubId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}

	settings, err := c.service.GetSettings(ctx.Request.Context(), clubID)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to get club settings",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Club settings retrieved successfully",
		"data":    settings,
	})
}

// GetCourts handles GET /api/v1/clubs/:clubId/courts
func (c *Controller) GetCourts(ctx *gin.Context) {
	clubID, err := uuid.Parse(ctx.Param("clubId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}

	courts, err := c.service.GetCourtsByClub(ctx.Request.Context(), clubID)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to get courts",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Courts retrieved successfully",
		"data": gin.H{
			"courts": courts,
			"count":  len(courts),
		},
	})
}

// UpdateSettings handles PUT /api/v1/staff/clubs/:clubId/settings
func (c *Controller) UpdateSettings(ctx *gin.Context) {
	clubID, err := uuid.Parse(ctx.Param("clubId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}

	var settings ClubSettings
	if err := ctx.ShouldBindJSON(&settings); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	settings.ClubID = clubID

	if err := c.service.UpdateSettings(ctx.Request.Context(), &settings); err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to update club settings",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Club settings updated successfully",
		"data":    settings,
	})
}

// ReplaceOperatingHours handles PUT /api/v1/staff/clubs/:clubId/hours
func (c *Controller) ReplaceOperatingHours(ctx *gin.Context) {
	clubID, err := uuid.Parse(ctx.Param("clubId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}

	var req ReplaceHoursRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	hours := make([]OperatingHours, 0, len(req.Hours))
	for _, entry := range req.Hours {
		hours = append(hours, OperatingHours{
			ClubID:    clubID,
			DayOfWeek: entry.DayOfWeek,
			OpenTime:  entry.OpenTime,
			CloseTime: entry.CloseTime,
		})
	}

	if err := c.service.ReplaceOperatingHours(ctx.Request.Context(), clubID, hours); err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to replace operating hours",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Operating hours replaced successfully",
	})
}

// ReplacePricingRules handles PUT /api/v1/staff/clubs/:clubId/pricing
func (c *Controller) ReplacePricingRules(ctx *gin.Context) {
	clubID, err := uuid.Parse(ctx.Param("clubId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid club ID"})
		return
	}

	var req ReplacePricingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	rules := make([]PricingRule, 0, len(req.Rules))
	for _, entry := range req.Rules {
		rules = append(rules, PricingRule{
			ClubID:       clubID,
			Label:        entry.Label,
			DayOfWeek:    entry.DayOfWeek,
			StartTime:    entry.StartTime,
			EndTime:      entry.EndTime,
			PricePerSlot: entry.PricePerSlot,
		})
	}

	if err := c.service.ReplacePricingRules(ctx.Request.Context(), clubID, rules); err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to replace pricing rules",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Pricing rules replaced successfully",
	})
}

// GetBlackouts handles GET /api/v1/staff/courts/:id/blackouts
func (c *Controller) GetBlackouts(ctx *gin.Context) {
	courtID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid court ID"})
		return
	}

	blackouts, err := c.service.GetBlackouts(ctx.Request.Context(), courtID)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to get blackouts",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Blackouts retrieved successfully",
		"data": gin.H{
			"blackouts": blackouts,
			"count":     len(blackouts),
		},
	})
}

// CreateBlackout handles POST /api/v1/staff/courts/:id/blackouts
func (c *Controller) CreateBlackout(ctx *gin.Context) {
	courtID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid court ID"})
		return
	}

	actorID, ok := middleware.ActorID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateBlackoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	if !req.EndDatetime.After(req.StartDatetime) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "end_datetime must be after start_datetime"})
		return
	}

	result, err := c.service.CreateBlackout(ctx.Request.Context(), &CourtBlackout{
		CourtID:       courtID,
		StartDatetime: req.StartDatetime,
		EndDatetime:   req.EndDatetime,
		Reason:        req.Reason,
		CreatedBy:     actorID,
	})
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to create blackout",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Blackout created successfully",
		"data":    result,
	})
}
