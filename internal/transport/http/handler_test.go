package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaiyuanwei/chatgate/internal/completion"
	"github.com/kaiyuanwei/chatgate/internal/config"
	"github.com/kaiyuanwei/chatgate/internal/domain"
	"github.com/kaiyuanwei/chatgate/internal/history"
	"github.com/kaiyuanwei/chatgate/internal/ratelimit"
	"github.com/kaiyuanwei/chatgate/internal/service"
)

type testEnv struct {
	server  *echo.Echo
	service *service.Service
}

func newTestEnv(t *testing.T, completer service.Completer, cfg *config.Config) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{
			RequestTimeout:  5 * time.Second,
			RateLimitPerMin: 10,
		}
	}
	archive := history.NewArchive(filepath.Join(t.TempDir(), "archive.json"))
	assembler := history.NewAssembler(history.NewFastTier(nil), archive, history.DefaultFastCapacity)
	svc := service.New(assembler, completer, nil)
	return &testEnv{
		server:  NewServer(svc, ratelimit.New(cfg.RateLimitPerMin), cfg),
		service: svc,
	}
}

func unconfiguredCompleter() *completion.Client {
	return completion.NewClient("", "", "", time.Second)
}

func postChat(env *testEnv, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func TestChatFallbackEndToEnd(t *testing.T) {
	env := newTestEnv(t, unconfiguredCompleter(), nil)

	rec := postChat(env, `{"session_id":"s1","message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, domain.SourceFallback, resp.Source)
	assert.NotEmpty(t, resp.Reply)
	assert.Equal(t, 20, resp.TokensUsed)

	hist := env.service.History(context.Background(), "s1")
	require.Len(t, hist, 2)
	assert.Equal(t, domain.RoleUser, hist[0].Role)
	assert.Equal(t, "hi", hist[0].Content)
	assert.Equal(t, domain.RoleAssistant, hist[1].Role)
	assert.Equal(t, resp.Reply, hist[1].Content)
}

func TestChatEmptyMessage(t *testing.T) {
	env := newTestEnv(t, unconfiguredCompleter(), nil)

	rec := postChat(env, `{"session_id":"s1","message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "message is empty")

	// Validation failures leave no trace in the store.
	assert.Empty(t, env.service.History(context.Background(), "s1"))
}

func TestChatMissingSessionID(t *testing.T) {
	env := newTestEnv(t, unconfiguredCompleter(), nil)

	rec := postChat(env, `{"message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatInvalidBody(t *testing.T) {
	env := newTestEnv(t, unconfiguredCompleter(), nil)

	rec := postChat(env, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRateLimited(t *testing.T) {
	env := newTestEnv(t, unconfiguredCompleter(), nil)

	admitted, rejected := 0, 0
	for i := 0; i < 11; i++ {
		rec := postChat(env, `{"session_id":"s1","message":"hi"}`)
		switch rec.Code {
		case http.StatusOK:
			admitted++
		case http.StatusTooManyRequests:
			rejected++
			assert.Contains(t, rec.Body.String(), rateLimitedMessage)
		default:
			t.Fatalf("unexpected status %d", rec.Code)
		}
	}
	assert.Equal(t, 10, admitted)
	assert.Equal(t, 1, rejected)
}

func TestChatRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer backend.Close()
	defer close(release)

	cfg := &config.Config{
		RequestTimeout:  100 * time.Millisecond,
		RateLimitPerMin: 10,
	}
	hanging := completion.NewClient(backend.URL, "gpt-4o", "secret", 10*time.Second)
	env := newTestEnv(t, hanging, cfg)

	start := time.Now()
	rec := postChat(env, `{"session_id":"s1","message":"hi"}`)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Less(t, time.Since(start), 5*time.Second, "timeout must fire before the backend resolves")
}

func TestRequestIDEchoedAndGenerated(t *testing.T) {
	env := newTestEnv(t, unconfiguredCompleter(), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(echo.HeaderXRequestID, "my-correlation-id")
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, "my-correlation-id", rec.Header().Get(echo.HeaderXRequestID))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, unconfiguredCompleter(), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "running")

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var health map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, serviceName, health["service"])
	assert.NotEmpty(t, health["version"])
}

func TestGetSessionHistory(t *testing.T) {
	env := newTestEnv(t, unconfiguredCompleter(), nil)

	postChat(env, `{"session_id":"s1","message":"hi"}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/history", nil)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SessionID string           `json:"session_id"`
		Messages  []domain.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.SessionID)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, domain.RoleUser, resp.Messages[0].Role)
}

func TestGetSessionExchangesWithoutLedger(t *testing.T) {
	env := newTestEnv(t, unconfiguredCompleter(), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/exchanges", nil)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
