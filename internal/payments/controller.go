package payments

import (
	"errors"
	"net/http"
	"strconv"

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

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// TopUpRequest is the payload for a confirmed wallet top-up.
type TopUpRequest struct {
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Reference string  `json:"reference" binding:"required,max=128"`
}

// PayShareRequest settles a booking share.
type PayShareRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// CardPaymentRequest registers a pending card payment intent.
type CardPaymentRequest struct {
	Amount           float64 `json:"amount" binding:"required,gt=0"`
	GatewayReference string  `json:"gateway_reference" binding:"required,max=128"`
}

// AdjustRequest is the staff wallet correction payload. Amount is signed.
type AdjustRequest struct {
	Amount    float64 `json:"amount" binding:"required"`
	Reference string  `json:"reference" binding:"required,max=128"`
}

// GetWallet handles GET /api/v1/wallet
func (c *Controller) GetWallet(ctx *gin.Context) {
	userID, ok := middleware.ActorID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	wallet, err := c.service.GetWallet(ctx.Request.Context(), userID)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to get wallet",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Wallet retrieved successfully",
		"data":    wallet,
	})
}

// GetWalletTransactions handles GET /api/v1/wallet/transactions
func (c *Controller) GetWalletTransactions(ctx *gin.Context) {
	userID, ok := middleware.ActorID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		limit = 50
	}

	transactions, err := c.service.ListWalletTransactions(ctx.Request.Context(), userID, limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list wallet transactions",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Wallet transactions retrieved successfully",
		"data": gin.H{
			"transactions": transactions,
			"count":        len(transactions),
		},
	})
}

// TopUpWallet handles POST /api/v1/wallet/top-up
func (c *Controller) TopUpWallet(ctx *gin.Context) {
	userID, ok := middleware.ActorID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req TopUpRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	entry, err := c.service.TopUpConfirmed(ctx.Request.Context(), userID, req.Amount, req.Reference)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to top up wallet",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Wallet topped up successfully",
		"data":    entry,
	})
}

// PayShareFromWallet handles POST /api/v1/bookings/:id/pay/wallet
func (c *Controller) PayShareFromWallet(ctx *gin.Context) {
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

	var req PayShareRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	payment, err := c.service.PayShareFromWallet(ctx.Request.Context(), bookingID, userID, req.Amount)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to pay from wallet",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Share paid from wallet",
		"data":    payment,
	})
}

// CreateCardPayment handles POST /api/v1/bookings/:id/pay/card
func (c *Controller) CreateCardPayment(ctx *gin.Context) {
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

	var req CardPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	payment, err := c.service.CreateCardPayment(ctx.Request.Context(), bookingID, userID, req.Amount, req.GatewayReference)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to create card payment",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Card payment created; settlement follows the gateway confirmation",
		"data":    payment,
	})
}

// GetInvoice handles GET /api/v1/payments/:id/invoice
func (c *Controller) GetInvoice(ctx *gin.Context) {
	paymentID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment ID"})
		return
	}

	invoice, err := c.service.GetInvoiceByPayment(ctx.Request.Context(), paymentID)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to get invoice",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Invoice retrieved successfully",
		"data":    invoice,
	})
}

// AdjustWallet handles POST /api/v1/staff/wallets/:userId/adjust
func (c *Controller) AdjustWallet(ctx *gin.Context) {
	targetID, err := uuid.Parse(ctx.Param("userId"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req AdjustRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	entry, err := c.service.AdjustWallet(ctx.Request.Context(), targetID, req.Amount, req.Reference)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{
			"error":   "Failed to adjust wallet",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Wallet adjusted successfully",
		"data":    entry,
	})
}
