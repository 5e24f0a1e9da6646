// Package port defines the interfaces the chat engine depends on. Concrete
// clients live in chat/infra and chat/knowledge; tests use fakes.
package port

import (
	"context"

	chatdomain "github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
)

// Completer sends an ordered message list to the hosted chat model.
//
// It never returns an error: upstream failures come back as text starting
// with chatdomain.SentinelPrefix and the caller decides what to do.
type Completer interface {
	Complete(ctx context.Context, messages []chatdomain.Message) string
}

// DomainHandler answers one chat request for a domain (investment,
// transaction, education) or routes it (home).
type DomainHandler interface {
	Name() string
	Handle(ctx context.Context, req *chatdomain.ChatRequest) (*chatdomain.ChatResponse, error)
}

// KnowledgeSource returns the knowledge-base excerpt relevant to a query.
type KnowledgeSource interface {
	Excerpt(ctx context.Context, query string) (string, error)
}
