package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"frontdesk-service/internal/apperr"
	"frontdesk-service/internal/service"
	"frontdesk-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ReadinessCheck is a dependency probed by /ready
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	reservations *service.ReservationService
	invoices     *service.InvoiceService
	rooms        *service.RoomService
	auth         *Authenticator
	checks       []ReadinessCheck
	debug        bool
	logger       *zap.Logger
}

// NewHandler creates a new HTTP handler. debug exposes the detail of
// internal errors in responses.
func NewHandler(
	reservations *service.ReservationService,
	invoices *service.InvoiceService,
	rooms *service.RoomService,
	auth *Authenticator,
	debug bool,
	checks ...ReadinessCheck,
) *Handler {
	return &Handler{
		reservations: reservations,
		invoices:     invoices,
		rooms:        rooms,
		auth:         auth,
		checks:       checks,
		debug:        debug,
		logger:       util.GetLogger(),
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

	v1 := router.Group("/api/v1", h.auth.Middleware())
	{
		v1.POST("/reservations", h.createReservation)
		v1.GET("/reservations", h.listReservations)
		v1.GET("/reservations/:id", h.getReservation)
		v1.PATCH("/reservations/:id", h.updateReservation)
		v1.POST("/reservations/:id/status", h.changeReservationStatus)
		v1.POST("/reservations/:id/room", h.assignRoom)
		v1.DELETE("/reservations/:id", h.deleteReservation)
		v1.GET("/reservations/:id/logs", h.reservationLogs)
		v1.GET("/reservations/:id/invoice", h.getReservationInvoice)

		v1.POST("/invoices", h.createInvoice)
		v1.GET("/invoices/:id", h.getInvoice)
		v1.PATCH("/invoices/:id", h.updateInvoice)
		v1.DELETE("/invoices/:id", h.deleteInvoice)
		v1.POST("/invoices/:id/payments", h.recordPayment)
		v1.GET("/invoices/:id/logs", h.invoiceLogs)

		v1.GET("/rooms", h.listRooms)
		v1.GET("/rooms/board", h.roomBoard)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when every dependency answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", check.Name), zap.Error(err))
			deps[check.Name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[check.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	c.JSON(status, gin.H{
		"status":       state,
		"dependencies": deps,
		"time":         time.Now().Unix(),
	})
}

// listRooms handles room listing
func (h *Handler) listRooms(c *gin.Context) {
	rooms, err := h.rooms.ListRooms(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// roomBoard serves the room status board
func (h *Handler) roomBoard(c *gin.Context) {
	board, err := h.rooms.Board(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"board": board})
}

// respondError writes the error envelope. Internal failures are logged and
// their detail is only returned in debug mode.
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	body := gin.H{
		"code":    kind,
		"message": err.Error(),
	}

	if apperr.IsInternal(err) {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		body["message"] = "internal server error"
		if h.debug {
			body["details"] = err.Error()
		}
	}

	c.AbortWithStatusJSON(apperr.HTTPStatus(err), gin.H{"error": body})
}

// bindJSON decodes the request body, answering 400 on failure.
func (h *Handler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    apperr.KindValidation,
				"message": "invalid request body",
				"details": err.Error(),
			},
		})
		return false
	}
	return true
}

// pathID parses the :id route parameter
func (h *Handler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(c, fmt.Errorf("%w: invalid id %q", apperr.ErrValidation, c.Param("id")))
		return 0, false
	}
	return id, true
}

func queryInt64(c *gin.Context, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", apperr.ErrValidation, name)
	}
	return &v, nil
}

func queryDate(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a YYYY-MM-DD date", apperr.ErrValidation, name)
	}
	return &t, nil
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
