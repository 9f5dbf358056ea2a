package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"inventory-service/internal/models"
	"inventory-service/internal/service"
	"inventory-service/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// LedgerService is the ledger engine as seen by the HTTP layer
type LedgerService interface {
	CreateWithKey(ctx context.Context, key, sku string, qty int64) (*models.Adjustment, bool, error)
	Update(ctx context.Context, id int64, patch service.AdjustmentPatch) (*models.Adjustment, error)
	Delete(ctx context.Context, id int64) (bool, error)
	CurrentStock(ctx context.Context, sku string, excludeID int64) (int64, error)
	Get(ctx context.Context, id int64) (*models.AdjustmentView, error)
	List(ctx context.Context, page, limit int, sku string) (models.Page[models.AdjustmentView], error)
}

// ProductService is the catalog as seen by the HTTP layer
type ProductService interface {
	List(ctx context.Context, page, limit int, search string) (models.Page[models.ProductWithStock], error)
	Get(ctx context.Context, sku string) (*models.ProductWithStock, error)
	Create(ctx context.Context, req *service.CreateProductRequest) (*models.Product, error)
	Update(ctx context.Context, sku string, patch service.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, sku string) (bool, error)
	Import(ctx context.Context) (*service.ImportResult, error)
}

// ReadinessCheck reports whether a dependency is usable
type ReadinessCheck func(ctx context.Context) error

// Handler contains HTTP handlers
type Handler struct {
	ledger   LedgerService
	products ProductService
	checks   map[string]ReadinessCheck
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(ledger LedgerService, products ProductService) *Handler {
	return &Handler{
		ledger:   ledger,
		products: products,
		checks:   make(map[string]ReadinessCheck),
		logger:   util.GetLogger(),
	}
}

// AddReadinessCheck registers a dependency probed by /ready
func (h *Handler) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Idempotency-Key"},
		ExposeHeaders:   []string{"Content-Length", "Idempotent-Replayed"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/ping", h.ping)
	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/products", h.listProducts)
		api.POST("/products", h.createProduct)
		api.POST("/products/import", h.importProducts)
		api.GET("/products/:sku", h.getProduct)
		api.PUT("/products/:sku", h.updateProduct)
		api.DELETE("/products/:sku", h.deleteProduct)
		api.GET("/products/:sku/stock", h.getStock)

		api.GET("/adjustments", h.listAdjustments)
		api.POST("/adjustments", h.createAdjustment)
		api.GET("/adjustments/:id", h.getAdjustment)
		api.PUT("/adjustments/:id", h.updateAdjustment)
		api.DELETE("/adjustments/:id", h.deleteAdjustment)
	}
}

func (h *Handler) ping(c *gin.Context) {
	c.String(http.StatusOK, "pong\n")
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck runs every registered dependency check
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// pageParams reads page and limit from the query string. Missing or
// malformed values become 0 and are defaulted by the services.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return page, limit
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		util.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// requestLogger writes one structured line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
