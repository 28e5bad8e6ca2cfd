package domain

import "time"

// CompletionSource tags where a reply came from.
type CompletionSource string

const (
	SourceBackend  CompletionSource = "backend"
	SourceFallback CompletionSource = "fallback"
)

// Exchange is one completed chat round trip, recorded in the ledger.
type Exchange struct {
	ExchangeID string           `json:"exchange_id"`
	SessionID  string           `json:"session_id"`
	RequestID  string           `json:"request_id"`
	Source     CompletionSource `json:"source"`
	TokensUsed int              `json:"tokens_used"`
	LatencyMs  int64            `json:"latency_ms"`
	CreatedAt  time.Time        `json:"created_at"`
}
