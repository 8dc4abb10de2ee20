package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"digistore-backend/internal/shared/middleware"
	"digistore-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
		middleware.ClientIPMiddleware(),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupCatalogRoutes(v1, c)
		setupOrderRoutes(v1, c)
		setupWalletRoutes(v1, c)
		setupDiscountRoutes(v1, c)
		setupAdminRoutes(v1, c)
	}

	return router
}

// ========================================
// CATALOG ROUTES (public storefront)
// ========================================
func setupCatalogRoutes(v1 *gin.RouterGroup, c *container.Container) {
	products := v1.Group("/products")
	{
		products.GET("", c.CatalogHandler.ListProducts)
		products.GET("/:slug", c.CatalogHandler.GetProduct)
	}
}

// ========================================
// ORDER ROUTES (authenticated customers)
// ========================================
func setupOrderRoutes(v1 *gin.RouterGroup, c *container.Container) {
	orders := v1.Group("/orders")
	orders.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		orders.POST("", c.OrderHandler.CreateOrder)
		orders.GET("", c.OrderHandler.ListOrders)
		orders.GET("/:id", c.OrderHandler.GetOrder)
		orders.POST("/:id/reveal", c.OrderHandler.RevealCodes)
		orders.POST("/:id/dispute", c.OrderHandler.OpenDispute)
	}
}

// ========================================
// WALLET ROUTES (authenticated customers)
// ========================================
func setupWalletRoutes(v1 *gin.RouterGroup, c *container.Container) {
	wallet := v1.Group("/wallet")
	wallet.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		wallet.GET("/balance", c.WalletHandler.GetBalance)
		wallet.GET("/transactions", c.WalletHandler.ListTransactions)
	}
}

// ========================================
// DISCOUNT ROUTES (authenticated customers)
// ========================================
func setupDiscountRoutes(v1 *gin.RouterGroup, c *container.Container) {
	discounts := v1.Group("/discounts")
	discounts.Use(middleware.AuthMiddleware(c.JWTManager))
	{
		discounts.POST("/preview", c.DiscountHandler.Preview)
	}
}

// ========================================
// ADMIN ROUTES
// ========================================
func setupAdminRoutes(v1 *gin.RouterGroup, c *container.Container) {
	admin := v1.Group("/admin")
	admin.Use(middleware.AuthMiddleware(c.JWTManager), middleware.AdminMiddleware())
	{
		admin.POST("/products", c.CatalogHandler.CreateProduct)
		admin.PATCH("/products/:id", c.CatalogHandler.UpdateProduct)
		admin.POST("/products/:id/variants", c.CatalogHandler.CreateVariant)
		admin.POST("/products/:id/codes", c.CatalogHandler.AddCodes)
		admin.POST("/catalog/reconcile-stock", c.CatalogHandler.ReconcileStock)

		admin.GET("/orders", c.OrderHandler.SearchOrders)
		admin.GET("/orders/:id", c.OrderHandler.GetOrder)
		admin.PATCH("/orders/:id/status", c.OrderHandler.UpdateStatus)
		admin.POST("/orders/:id/deliver", c.OrderHandler.Deliver)
		admin.POST("/orders/:id/resolve", c.OrderHandler.ResolveDispute)

		admin.POST("/coupons", c.DiscountHandler.CreateCoupon)
		admin.PATCH("/coupons/:id", c.DiscountHandler.UpdateCoupon)
		admin.GET("/coupons", c.DiscountHandler.ListCoupons)

		admin.POST("/affiliates", c.AffiliateHandler.Create)
		admin.GET("/affiliates", c.AffiliateHandler.List)
		admin.GET("/affiliates/:id", c.AffiliateHandler.Get)
		admin.PATCH("/affiliates/:id", c.AffiliateHandler.Update)
		admin.POST("/affiliates/:id/recompute", c.AffiliateHandler.Recompute)

		admin.POST("/wallet/:userId/credit", c.WalletHandler.AdminCredit)

		admin.GET("/audit", c.AuditHandler.List)
	}
}

func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if err := c.HealthCheck(ctx.Request.Context()); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": c.Config.App.Version,
		})
	}
}
