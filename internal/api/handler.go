package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/feed"
	"storefront-service/internal/service"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config carries the HTTP-level settings
type Config struct {
	JWTSecret   string
	CORSOrigins []string
	// UploadsDir is served at /uploads when images are stored on local disk
	UploadsDir string
}

// Services are the application services behind the routes
type Services struct {
	Catalog  *service.CatalogService
	Filters  *service.FilterService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Admin    *service.AdminService
	Feed     *feed.Hub
}

// Handler contains HTTP handlers
type Handler struct {
	catalog  *service.CatalogService
	filters  *service.FilterService
	cart     *service.CartService
	checkout *service.CheckoutService
	admin    *service.AdminService
	hub      *feed.Hub
	cfg      Config
	checks   map[string]Pinger
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler. checks are pinged by /ready.
func NewHandler(svc Services, cfg Config, checks map[string]Pinger) *Handler {
	return &Handler{
		catalog:  svc.Catalog,
		filters:  svc.Filters,
		cart:     svc.Cart,
		checkout: svc.Checkout,
		admin:    svc.Admin,
		hub:      svc.Feed,
		cfg:      cfg,
		checks:   checks,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))
	router.Use(corsMiddleware(h.cfg.CORSOrigins))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/sitemap.xml", requireService(h.catalog != nil), h.sitemap)

	if h.cfg.UploadsDir != "" {
		router.Static("/uploads", h.cfg.UploadsDir)
	}

	api := router.Group("/api")
	api.Use(authenticate([]byte(h.cfg.JWTSecret)))
	api.GET("/filters", h.filterOptions)

	shop := api.Group("")
	shop.Use(requireService(h.catalog != nil))
	{
		shop.GET("/products", h.listProducts)
		shop.GET("/products/:slug", h.getProduct)
		shop.GET("/home", h.home)
		shop.GET("/categories/:slug/products", h.landing(service.LandingCategory))
		shop.GET("/brands/:slug/products", h.landing(service.LandingBrand))
		shop.GET("/straps/:slug/products", h.landing(service.LandingStrap))
	}

	user := api.Group("")
	user.Use(requireUser(), requireService(h.cart != nil && h.checkout != nil))
	{
		user.GET("/cart", h.getCart)
		user.POST("/cart/items", h.addCartItem)
		user.PATCH("/cart/items/:id", h.updateCartItem)
		user.DELETE("/cart/items/:id", h.removeCartItem)

		user.GET("/checkout", h.checkoutInfo)
		user.POST("/checkout", h.submitCheckout)
		user.GET("/orders", h.listOrders)
		user.GET("/orders/:id", h.getOrder)
	}

	admin := user.Group("/admin")
	admin.Use(requireService(h.admin != nil), h.requireAdmin())
	{
		admin.GET("/products", h.adminListProducts)
		admin.GET("/products/:id", h.adminGetProduct)
		admin.POST("/products", h.adminCreateProduct)
		admin.PUT("/products/:id", h.adminUpdateProduct)
		admin.DELETE("/products/:id", h.adminDeleteProduct)
		admin.POST("/products/:id/images", h.adminUploadImage)
		admin.DELETE("/images/:id", h.adminDeleteImage)

		admin.GET("/categories", h.adminListCategories)
		admin.POST("/categories", h.adminSaveCategory)
		admin.PUT("/categories/:id", h.adminSaveCategory)
		admin.DELETE("/categories/:id", h.adminDeleteCategory)

		admin.GET("/brands", h.adminListBrands)
		admin.POST("/brands", h.adminSaveBrand)
		admin.PUT("/brands/:id", h.adminSaveBrand)
		admin.DELETE("/brands/:id", h.adminDeleteBrand)

		admin.GET("/transactions", h.adminListTransactions)
		admin.GET("/transactions/export", h.adminExportTransactions)
		admin.GET("/transactions/:id", h.adminGetTransaction)
		admin.PATCH("/transactions/:id/status", h.adminUpdateTransactionStatus)

		admin.GET("/feed", h.adminFeed)
	}
}

// requireService answers 503 on routes whose backing service is not configured,
// which happens when the process runs without a database.
func requireService(available bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !available {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Service unavailable",
				"details": "database is not configured",
			})
			return
		}
		c.Next()
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": failed,
			"time":    time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
