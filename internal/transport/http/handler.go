package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kaiyuanwei/chatgate/internal/config"
	"github.com/kaiyuanwei/chatgate/internal/ratelimit"
	"github.com/kaiyuanwei/chatgate/internal/service"
)

const (
	serviceName = "chatgate"
	version     = "0.1.0"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	limiter *ratelimit.Limiter
	cfg     *config.Config
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, limiter *ratelimit.Limiter, cfg *config.Config) *Handler {
	return &Handler{
		service: svc,
		limiter: limiter,
		cfg:     cfg,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/chat", h.Chat, h.rateLimit)

	// Read-only session views
	e.GET("/v1/sessions/:session_id/history", h.GetSessionHistory)
	e.GET("/v1/sessions/:session_id/exchanges", h.GetSessionExchanges)

	e.GET("/", h.Root)
	e.GET("/healthz", h.Health)
}

// Root returns a static running indicator.
// GET /
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Chatbot API is running",
	})
}

// Health returns service name and version.
// GET /healthz
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
		"version": version,
	})
}
