package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hqv2016/invorder/internal/core/domain"
	"github.com/hqv2016/invorder/internal/core/service"
	"github.com/hqv2016/invorder/internal/port"
)

const userIDKey = "user_id"

type Server struct {
	engine      *gin.Engine
	coordinator *service.Coordinator
	catalog     *service.Catalog
	orders      port.OrderRepository
	gate        port.IdentityGate
}

func NewServer(coordinator *service.Coordinator, catalog *service.Catalog, orders port.OrderRepository, gate port.IdentityGate) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:      engine,
		coordinator: coordinator,
		catalog:     catalog,
		orders:      orders,
		gate:        gate,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	v1.Use(s.authenticate)
	{
		orders := v1.Group("/orders")
		orders.POST("", s.submitOrder)
		orders.GET(":id", s.getOrder)

		items := v1.Group("/items")
		items.POST("", s.createItem)
		items.GET("", s.listItems)
		items.GET(":id", s.getItem)
		items.DELETE(":id", s.deleteItem)

		reports := v1.Group("/reports")
		reports.GET("/categories", s.categoryReport)
		reports.GET("/stats", s.stats)
	}
}

// authenticate resolves the bearer token through the identity gate and
// attaches the caller identity to the request context.
func (s *Server) authenticate(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unauthenticated", "error": "missing bearer token"})
		return
	}
	userID, err := s.gate.Authenticate(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "unauthenticated", "error": "invalid credentials"})
		return
	}
	c.Set(userIDKey, userID)
	c.Next()
}

type orderLineReq struct {
	ItemID   string  `json:"item_id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type submitOrderReq struct {
	RequestID   string         `json:"request_id"`
	Lines       []orderLineReq `json:"lines"`
	TotalAmount float64        `json:"total_amount"`
}

func (s *Server) submitOrder(c *gin.Context) {
	var req submitOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "error": "invalid json"})
		return
	}

	lines := make([]domain.OrderLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, domain.OrderLine{ItemID: l.ItemID, Quantity: l.Quantity, Price: l.Price})
	}

	order, err := s.coordinator.SubmitOrder(c.Request.Context(), domain.OrderRequest{
		RequestID:   req.RequestID,
		UserID:      c.GetString(userIDKey),
		Lines:       lines,
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

func (s *Server) getOrder(c *gin.Context) {
	order, err := s.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type createItemReq struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Unit     string  `json:"unit"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

func (s *Server) createItem(c *gin.Context) {
	var req createItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "error": "invalid json"})
		return
	}

	item, err := s.catalog.CreateItem(c.Request.Context(), domain.Item{
		SKU:      req.SKU,
		Name:     req.Name,
		Category: req.Category,
		Unit:     req.Unit,
		Price:    req.Price,
	}, req.Quantity)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (s *Server) getItem(c *gin.Context) {
	item, err := s.catalog.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) listItems(c *gin.Context) {
	items, err := s.catalog.ListItems(c.Request.Context(), port.ItemFilter{
		Category:      c.Query("category"),
		NameSubstring: c.Query("q"),
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) deleteItem(c *gin.Context) {
	if err := s.catalog.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) categoryReport(c *gin.Context) {
	report, err := s.catalog.CategoryReport(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.catalog.Stats(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// writeError maps the error taxonomy onto HTTP statuses. The code field is
// stable for clients; the message is informational.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": err.Error()})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"code": "invalid_request", "error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"code": "insufficient_stock", "error": err.Error()})
	case errors.Is(err, service.ErrDuplicateRequest):
		c.JSON(http.StatusConflict, gin.H{"code": "duplicate_request", "error": err.Error()})
	case errors.Is(err, service.ErrContention):
		c.JSON(http.StatusServiceUnavailable, gin.H{"code": "contention", "error": err.Error()})
	case errors.Is(err, service.ErrPartiallyCompensated):
		c.JSON(http.StatusInternalServerError, gin.H{"code": "partially_compensated", "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "error": "internal error"})
	}
}
