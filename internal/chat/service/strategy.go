package service

import (
	"context"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
)

// ============================================================
// ContextStrategy
// ============================================================

// AssembleInput is what a strategy may look at to build its block.
type AssembleInput struct {
	Label     domain.Label
	Utterance string
	UserID    string
}

// ContextStrategy contributes one system-context block for the labels it
// handles. An empty block is skipped. An error is logged and the block is
// skipped: context assembly never aborts a request.
type ContextStrategy interface {
	Name() string
	CanHandle(label domain.Label) bool
	Assemble(ctx context.Context, in *AssembleInput) (string, error)
}

// labelSet answers CanHandle for strategies bound to a fixed set of labels.
// A nil set matches every label.
type labelSet map[domain.Label]bool

func labels(ls ...domain.Label) labelSet {
	if len(ls) == 0 {
		return nil
	}
	s := make(labelSet, len(ls))
	for _, l := range ls {
		s[l] = true
	}
	return s
}

func (s labelSet) CanHandle(label domain.Label) bool {
	return s == nil || s[label]
}
