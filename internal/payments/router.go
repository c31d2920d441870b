package payments

import (
	"courtly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupPaymentRoutes configures the wallet and settlement routes
func SetupPaymentRoutes(rg *gin.RouterGroup, controller *Controller) {
	wallet := rg.Group("/wallet")
	wallet.Use(middleware.JWTAuth())
	{
		wallet.GET("", controller.GetWallet)                          // GET /api/v1/wallet
		wallet.GET("/transactions", controller.GetWalletTransactions) // GET /api/v1/wallet/transactions?limit=50
		wallet.POST("/top-up", controller.TopUpWallet)                // POST /api/v1/wallet/top-up
	}

	bookings := rg.Group("/bookings")
	bookings.Use(middleware.JWTAuth())
	{
		bookings.POST("/:id/pay/wallet", controller.PayShareFromWallet) // POST /api/v1/bookings/:id/pay/wallet
		bookings.POST("/:id/pay/card", controller.CreateCardPayment)    // POST /api/v1/bookings/:id/pay/card
	}

	payments := rg.Group("/payments")
	payments.Use(middleware.JWTAuth())
	{
		payments.GET("/:id/invoice", controller.GetInvoice) // GET /api/v1/payments/:id/invoice
	}

	staff := rg.Group("/staff")
	staff.Use(middleware.JWTAuth(), middleware.RequireStaff())
	{
		staff.POST("/wallets/:userId/adjust", controller.AdjustWallet) // POST /api/v1/staff/wallets/:userId/adjust
	}
}
