// Package completion calls the language-completion backend and degrades to a
// deterministic local reply when the backend is unavailable.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kaiyuanwei/chatgate/internal/domain"
	"github.com/kaiyuanwei/chatgate/internal/observability"
)

const apiVersion = "2024-05-01-preview"

// Result is the outcome of a completion call. There is no error path: backend
// failures are absorbed into the fallback branch.
type Result struct {
	Reply      string
	Source     domain.CompletionSource
	TokensUsed int
}

// Client issues at most one backend call per Complete invocation; it never
// retries. With incomplete configuration it goes straight to the fallback.
type Client struct {
	endpoint   string
	deployment string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a completion client. endpoint, deployment and apiKey may be
// empty; the client then always answers from the fallback path.
func NewClient(endpoint, deployment, apiKey string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		deployment: deployment,
		apiKey:     apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete produces a reply for the conversation. The backend is tried exactly
// once when fully configured; any failure is logged and answered from the
// fallback instead.
func (c *Client) Complete(ctx context.Context, conversation []domain.Message) Result {
	if !c.configured() {
		observability.FromContext(ctx).Debug("backend_not_configured")
		return c.fallback(conversation)
	}

	reply, tokens, err := c.callBackend(ctx, conversation)
	if err != nil {
		observability.FromContext(ctx).Warn("backend_error", "error", err.Error())
		return c.fallback(conversation)
	}
	return Result{Reply: reply, Source: domain.SourceBackend, TokensUsed: tokens}
}

func (c *Client) configured() bool {
	return c.endpoint != "" && c.deployment != "" && c.apiKey != ""
}

func (c *Client) callBackend(ctx context.Context, conversation []domain.Message) (string, int, error) {
	msgs := make([]wireMessage, len(conversation))
	for i, m := range conversation {
		msgs[i] = wireMessage{Role: string(m.Role), Content: m.Content}
	}
	body, err := json.Marshal(chatCompletionRequest{
		Messages:    msgs,
		Temperature: 0.2,
		TopP:        0.9,
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", c.endpoint, c.deployment, apiVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("backend error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", 0, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", 0, fmt.Errorf("backend response has no choices")
	}
	return result.Choices[0].Message.Content, result.Usage.TotalTokens, nil
}

// fallback builds a deterministic local reply around the most recent user
// message, with a synthetic token count of max(20, len/3).
func (c *Client) fallback(conversation []domain.Message) Result {
	lastUser := domain.LastUserContent(conversation)
	reply := fmt.Sprintf(
		"I'm a helpful enterprise chatbot. You said: '%s'. "+
			"Here's a concise response: I understand your request and will handle it step by step. "+
			"If you have specific data or constraints, provide them and I'll adapt the plan.",
		lastUser,
	)
	tokens := len(lastUser) / 3
	if tokens < 20 {
		tokens = 20
	}
	return Result{Reply: reply, Source: domain.SourceFallback, TokensUsed: tokens}
}
