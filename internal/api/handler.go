package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orderService       *service.OrderService
	catalogService     *service.CatalogService
	aggregationService *service.AggregationService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orderService *service.OrderService,
	catalogService *service.CatalogService,
	aggregationService *service.AggregationService,
) *Handler {
	return &Handler{
		orderService:       orderService,
		catalogService:     catalogService,
		aggregationService: aggregationService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/catalog", h.getCatalog)
		v1.GET("/catalog/categories", h.getCategories)

		v1.POST("/orders", h.submitOrder)
		v1.GET("/shops/:shopId/orders", h.getShopOrders)
		v1.GET("/shops/:shopId/orders/:orderId", h.getOrder)

		admin := v1.Group("/admin")
		{
			admin.GET("/dashboard", h.getDashboard)
			admin.GET("/orders", h.getOrdersByShopType)
			admin.GET("/orders/:shopId/:orderId", h.getOrderDetails)
			admin.POST("/procurement-sessions", h.createProcurementSession)
			admin.GET("/procurement-sessions", h.listProcurementSessions)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// getCatalog returns the product list; ?refresh=1 forces a source reload
func (h *Handler) getCatalog(c *gin.Context) {
	force := c.Query("refresh") == "1"

	if term := c.Query("q"); term != "" && !force {
		products, err := h.catalogService.SearchProducts(c.Request.Context(), term)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Catalog unavailable",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
		return
	}

	products, err := h.catalogService.GetProducts(c.Request.Context(), force)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Catalog unavailable",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// getCategories returns the two-level category index
func (h *Handler) getCategories(c *gin.Context) {
	categories, err := h.catalogService.GetCategories(c.Request.Context(), false)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Catalog unavailable",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// submitOrder handles order submission
func (h *Handler) submitOrder(c *gin.Context) {
	var req service.SubmitOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	result, err := h.orderService.SubmitOrder(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCart), errors.Is(err, service.ErrMissingShopType):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to submit order",
				"details": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

// getShopOrders returns a shop's recent orders
func (h *Handler) getShopOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	orders, err := h.orderService.GetShopOrders(c.Request.Context(), c.Param("shopId"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load orders",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// getOrder returns one order with its items
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("shopId"), c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Order not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, order)
}

// getDashboard returns the aggregated admin dashboard. Aggregation failures
// degrade to a disconnected snapshot rather than an error status.
func (h *Handler) getDashboard(c *gin.Context) {
	snapshot := h.aggregationService.GetDashboardData(c.Request.Context())
	c.JSON(http.StatusOK, snapshot)
}

// getOrdersByShopType returns orders bucketed by shop type with an optional
// date window (RFC 3339 or YYYY-MM-DD)
func (h *Handler) getOrdersByShopType(c *gin.Context) {
	start, ok := parseTimeParam(c, "startDate")
	if !ok {
		return
	}
	end, ok := parseTimeParam(c, "endDate")
	if !ok {
		return
	}

	result, err := h.aggregationService.GetOrdersByShopType(c.Request.Context(), start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load orders",
			"details": err.Error(),
		})
		return
	}

	switch c.Query("shopType") {
	case "":
	case models.ShopTypeRegular:
		result.Premium = []models.Order{}
		result.TotalOrders = len(result.Regular)
	case models.ShopTypePremium:
		result.Regular = []models.Order{}
		result.TotalOrders = len(result.Premium)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shopType"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// getOrderDetails returns one order with its owning shop
func (h *Handler) getOrderDetails(c *gin.Context) {
	details, err := h.aggregationService.GetOrderDetails(c.Request.Context(), c.Param("shopId"), c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Order not found",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, details)
}

// createProcurementSession closes out all pending orders into a new session
func (h *Handler) createProcurementSession(c *gin.Context) {
	result, err := h.aggregationService.CreateProcurementSession(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoPendingOrders):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrSessionInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to create procurement session",
				"details": err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

// listProcurementSessions returns the most recent sessions
func (h *Handler) listProcurementSessions(c *gin.Context) {
	sessions, err := h.aggregationService.ListProcurementSessions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load sessions",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

func parseTimeParam(c *gin.Context, name string) (time.Time, bool) {
	value := c.Query(name)
	if value == "" {
		return time.Time{}, true
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
	return time.Time{}, false
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
