package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// GetSessionHistory returns the assembled conversation for a session.
// GET /v1/sessions/:session_id/history
func (h *Handler) GetSessionHistory(c echo.Context) error {
	sessionID := c.Param("session_id")
	ctx := c.Request().Context()

	messages := h.service.History(ctx, sessionID)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   messages,
	})
}

// GetSessionExchanges returns recent ledger rows for a session, newest first.
// GET /v1/sessions/:session_id/exchanges
func (h *Handler) GetSessionExchanges(c echo.Context) error {
	sessionID := c.Param("session_id")
	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			limit = val
		}
	}
	ctx := c.Request().Context()

	exchanges, err := h.service.Exchanges(ctx, sessionID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"exchanges":  exchanges,
	})
}
