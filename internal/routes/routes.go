package routes

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tobi-ade/storefront-golang/internal/handlers"
	"github.com/tobi-ade/storefront-golang/internal/middleware"
)

// SetupRouter wires every endpoint.
func SetupRouter(h *handlers.Handlers, db *sql.DB) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "https://storefront.example.com"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	v1 := router.Group("/v1")
	{
		// --- Public routes ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong"})
		})

		v1.POST("/register", h.Register)
		v1.POST("/login", h.Login)

		v1.GET("/products", h.ListProducts)
		v1.GET("/products/:slug", h.GetProductBySlug)

		// Guest cart, keyed by a client-generated guest_id.
		guest := v1.Group("/guest/cart")
		{
			guest.GET("", h.GetGuestCart)
			guest.GET("/summary", h.GetGuestCartSummary)
			guest.POST("/items", h.AddGuestCartItem)
			guest.PUT("/items/:id", h.UpdateGuestCartItem)
			guest.DELETE("/items/:id", h.RemoveGuestCartItem)
			guest.DELETE("", h.ClearGuestCart)
		}

		// Provider callbacks authenticate with a signature, not a JWT.
		v1.POST("/webhooks/paystack", h.PaystackWebhook)

		// --- Authenticated routes ---
		authed := v1.Group("/")
		authed.Use(middleware.AuthMiddleware())
		{
			authed.GET("/cart", h.GetMyCart)
			authed.POST("/cart/items", h.AddCartItem)
			authed.PUT("/cart/items/:id", h.UpdateCartItem)
			authed.DELETE("/cart/items/:id", h.RemoveCartItem)
			authed.DELETE("/cart", h.ClearCart)
			authed.POST("/cart/merge", h.MergeGuestCart)

			authed.GET("/wallet", h.GetMyWallet)
			authed.POST("/wallet/fund", h.FundWallet)

			authed.POST("/checkout", h.Checkout)
			authed.GET("/orders", h.GetMyOrders)
			authed.GET("/orders/:id", h.GetOrderDetails)

			authed.GET("/notifications", h.GetMyNotifications)
			authed.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)

			authed.POST("/me/fcm-token", h.RegisterFCMToken)
			authed.DELETE("/me/fcm-token", h.DeleteFCMToken)
		}

		// --- Admin routes ---
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware(db))
		{
			admin.POST("/products/import", h.ImportPriceSheet)
		}
	}

	return router
}
