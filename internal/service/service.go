// Package service orchestrates a chat request: history assembly, completion,
// persistence and the exchange ledger.
package service

import (
	"context"

	"github.com/kaiyuanwei/chatgate/internal/completion"
	"github.com/kaiyuanwei/chatgate/internal/domain"
	"github.com/kaiyuanwei/chatgate/internal/history"
	"github.com/kaiyuanwei/chatgate/internal/repository"
)

// systemPrompt is the fixed instruction prepended to every conversation.
const systemPrompt = "You are a helpful enterprise chatbot. Be concise, factual, and professional. " +
	"Use clear English. If information is missing, ask for the minimal clarification."

// Completer produces a reply for a conversation. Implementations never fail;
// backend trouble surfaces as a fallback-tagged result.
type Completer interface {
	Complete(ctx context.Context, conversation []domain.Message) completion.Result
}

// Service wires the history assembler, the completion client and the ledger.
type Service struct {
	history   *history.Assembler
	completer Completer
	ledger    *repository.Ledger // nil disables the ledger
}

// New creates the service. ledger may be nil.
func New(assembler *history.Assembler, completer Completer, ledger *repository.Ledger) *Service {
	return &Service{
		history:   assembler,
		completer: completer,
		ledger:    ledger,
	}
}
