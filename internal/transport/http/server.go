// Package http provides the HTTP server implementation for the gateway.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kaiyuanwei/chatgate/internal/config"
	"github.com/kaiyuanwei/chatgate/internal/ratelimit"
	"github.com/kaiyuanwei/chatgate/internal/service"
)

// NewServer creates and configures the gateway HTTP server.
func NewServer(svc *service.Service, limiter *ratelimit.Limiter, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(correlate)
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	h := NewHandler(svc, limiter, cfg)
	h.RegisterRoutes(e)

	return e
}
