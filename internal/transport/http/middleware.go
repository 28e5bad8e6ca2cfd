package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kaiyuanwei/chatgate/internal/observability"
)

// rateLimitedMessage is the fixed text every rejected request receives.
const rateLimitedMessage = "Rate limit exceeded (10 req/min)."

// correlate attaches a correlation id to the request context, echoes it back in
// the X-Request-Id header and logs the request lifecycle.
func correlate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		rid := req.Header.Get(echo.HeaderXRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, rid)

		ctx := observability.WithRequestID(req.Context(), rid)
		c.SetRequest(req.WithContext(ctx))

		start := time.Now()
		err := next(c)
		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else {
				status = http.StatusInternalServerError
			}
		}
		observability.FromContext(ctx).Info("request_done",
			"method", req.Method,
			"path", req.URL.Path,
			"ip", c.RealIP(),
			"status", status,
			"ms", time.Since(start).Milliseconds(),
		)
		return err
	}
}

// rateLimit rejects requests from identities that exhausted their window.
// Rejection happens before the handler runs, so no side effects occur.
func (h *Handler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity := c.RealIP()
		if !h.limiter.Allow(identity) {
			observability.FromContext(c.Request().Context()).Warn("rate_limited", "ip", identity)
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": rateLimitedMessage,
			})
		}
		return next(c)
	}
}
