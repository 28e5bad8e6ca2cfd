package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kaiyuanwei/chatgate/internal/domain"
	"github.com/kaiyuanwei/chatgate/internal/observability"
	"github.com/kaiyuanwei/chatgate/internal/service"
)

// ChatRequest is the request body for POST /chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResponse is the success body for POST /chat.
type ChatResponse struct {
	SessionID  string                  `json:"session_id"`
	Reply      string                  `json:"reply"`
	TokensUsed int                     `json:"tokens_used"`
	Source     domain.CompletionSource `json:"source"`
}

// Chat runs one chat exchange under the overall request deadline.
// POST /chat
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id is required"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is empty"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.cfg.RequestTimeout)
	defer cancel()

	// The exchange runs in its own goroutine so the deadline can cut the
	// request off; a late result is discarded, not cancelled mid-write.
	results := make(chan *service.ChatResult, 1)
	go func() {
		results <- h.service.Chat(ctx, req.SessionID, req.Message)
	}()

	select {
	case res := <-results:
		return c.JSON(http.StatusOK, ChatResponse{
			SessionID:  res.SessionID,
			Reply:      res.Reply,
			TokensUsed: res.TokensUsed,
			Source:     res.Source,
		})
	case <-ctx.Done():
		observability.FromContext(ctx).Warn("request_timeout", "session_id", req.SessionID)
		return c.JSON(http.StatusGatewayTimeout, map[string]string{"error": "request timed out"})
	}
}
