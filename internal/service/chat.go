package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kaiyuanwei/chatgate/internal/domain"
	"github.com/kaiyuanwei/chatgate/internal/observability"
)

// ChatResult is the terminal outcome of one chat exchange.
type ChatResult struct {
	SessionID  string
	Reply      string
	Source     domain.CompletionSource
	TokensUsed int
}

// Chat runs one exchange: assemble the conversation, persist the user turn,
// complete, persist the assistant turn, record the exchange. Storage and
// backend failures are absorbed downstream; Chat always produces a result.
func (s *Service) Chat(ctx context.Context, sessionID, message string) *ChatResult {
	hist := s.history.Read(ctx, sessionID)

	conversation := make([]domain.Message, 0, len(hist)+2)
	conversation = append(conversation, domain.NewMessage(domain.RoleSystem, systemPrompt))
	conversation = append(conversation, hist...)
	userMsg := domain.NewMessage(domain.RoleUser, message)
	conversation = append(conversation, userMsg)

	s.history.Append(ctx, sessionID, userMsg)

	start := time.Now()
	res := s.completer.Complete(ctx, conversation)
	latency := time.Since(start)

	s.history.Append(ctx, sessionID, domain.NewMessage(domain.RoleAssistant, res.Reply))

	s.recordExchange(ctx, sessionID, res.Source, res.TokensUsed, latency)

	observability.FromContext(ctx).Info("chat_reply",
		"session_id", sessionID,
		"source", string(res.Source),
		"tokens", res.TokensUsed,
	)

	return &ChatResult{
		SessionID:  sessionID,
		Reply:      res.Reply,
		Source:     res.Source,
		TokensUsed: res.TokensUsed,
	}
}

// History returns the session's assembled conversation, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) []domain.Message {
	return s.history.Read(ctx, sessionID)
}

// Exchanges returns recent ledger rows for the session, newest first.
func (s *Service) Exchanges(ctx context.Context, sessionID string, limit int) ([]domain.Exchange, error) {
	if s.ledger == nil {
		return []domain.Exchange{}, nil
	}
	return s.ledger.ListExchanges(ctx, sessionID, limit)
}

// recordExchange writes a ledger row; failures are logged, never surfaced.
func (s *Service) recordExchange(ctx context.Context, sessionID string, source domain.CompletionSource, tokens int, latency time.Duration) {
	if s.ledger == nil {
		return
	}
	ex := &domain.Exchange{
		ExchangeID: uuid.NewString(),
		SessionID:  sessionID,
		RequestID:  observability.RequestID(ctx),
		Source:     source,
		TokensUsed: tokens,
		LatencyMs:  latency.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.ledger.RecordExchange(ctx, ex); err != nil {
		observability.FromContext(ctx).Warn("ledger_error", "session_id", sessionID, "error", err.Error())
	}
}
