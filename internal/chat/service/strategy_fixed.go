package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/port"
	maindomain "github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	mainport "github.com/boddenberg/crypto-companion-bfa-go/internal/port"

	"go.uber.org/zap"
)

// recentTrades is how many historical trades the fixed context shows.
const recentTrades = 3

// ============================================================
// PortfolioStrategy (investment, every label)
// ============================================================

// PortfolioStrategy renders the user's profile, portfolio snapshot and
// last trades. It applies to every label.
type PortfolioStrategy struct {
	store  mainport.PortfolioStore
	logger *zap.Logger
}

// NewPortfolioStrategy creates a PortfolioStrategy. A nil store always
// renders maindomain.DefaultPortfolio.
func NewPortfolioStrategy(store mainport.PortfolioStore, logger *zap.Logger) *PortfolioStrategy {
	return &PortfolioStrategy{store: store, logger: logger}
}

func (s *PortfolioStrategy) Name() string { return "portfolio" }

func (s *PortfolioStrategy) CanHandle(_ domain.Label) bool { return true }

func (s *PortfolioStrategy) Assemble(ctx context.Context, in *AssembleInput) (string, error) {
	ctx, span := tracer.Start(ctx, "PortfolioStrategy.Assemble")
	defer span.End()

	return RenderPortfolio(s.Load(ctx, in.UserID)), nil
}

// Load returns the stored snapshot for userID or the default one.
func (s *PortfolioStrategy) Load(ctx context.Context, userID string) *maindomain.PortfolioSnapshot {
	if s.store == nil {
		return maindomain.DefaultPortfolio()
	}
	p, err := s.store.GetPortfolio(ctx, userID)
	if err != nil {
		var nf *maindomain.ErrNotFound
		if !errors.As(err, &nf) {
			s.logger.Warn("portfolio snapshot unavailable, using default",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
		return maindomain.DefaultPortfolio()
	}
	return p
}

// RenderPortfolio formats the fixed investment context block.
func RenderPortfolio(p *maindomain.PortfolioSnapshot) string {
	var sb strings.Builder
	sb.WriteString("--- CONTEXTO FIJO DEL USUARIO ---\n")
	sb.WriteString("Perfil del usuario:\n")
	fmt.Fprintf(&sb, "- Nombre: %s\n", p.OwnerName)
	fmt.Fprintf(&sb, "- Perfil de riesgo: %s\n", p.RiskProfile)
	fmt.Fprintf(&sb, "- Objetivo: %s\n\n", p.Goal)

	sb.WriteString("Portafolio actual:\n")
	fmt.Fprintf(&sb, "- Valor total: $%.2f\n", p.TotalValue)
	fmt.Fprintf(&sb, "- Rentabilidad 24h: %.2f%%\n", p.Performance24h)
	if len(p.Distribution) > 0 {
		parts := make([]string, 0, len(p.Distribution))
		for _, a := range p.Distribution {
			parts = append(parts, fmt.Sprintf("%s %.0f%%", a.Name, a.Value))
		}
		fmt.Fprintf(&sb, "- Distribución: %s\n", strings.Join(parts, ", "))
	}
	if len(p.Holdings) > 0 {
		names := make([]string, 0, len(p.Holdings))
		for name := range p.Holdings {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString("- Composición:\n")
		for _, name := range names {
			h := p.Holdings[name]
			fmt.Fprintf(&sb, "  - %s: %g unidades a $%.2f\n", name, h.Quantity, h.PriceUSD)
		}
	}

	trades := p.RecentTrades
	if len(trades) > recentTrades {
		trades = trades[len(trades)-recentTrades:]
	}
	if len(trades) > 0 {
		sb.WriteString("\nHistórico de transacciones (recientes):\n")
		for _, t := range trades {
			fmt.Fprintf(&sb, "- %s: %s %g %s a $%.2f\n", t.Date, t.Type, t.Quantity, t.Asset, t.PriceUSD)
		}
	}
	sb.WriteString("--- FIN CONTEXTO FIJO ---")
	return sb.String()
}

// ============================================================
// KnowledgeStrategy (education, every label)
// ============================================================

// KnowledgeStrategy renders the knowledge-base excerpt for the utterance.
type KnowledgeStrategy struct {
	source port.KnowledgeSource
}

// NewKnowledgeStrategy creates a KnowledgeStrategy.
func NewKnowledgeStrategy(source port.KnowledgeSource) *KnowledgeStrategy {
	return &KnowledgeStrategy{source: source}
}

func (s *KnowledgeStrategy) Name() string { return "knowledge" }

func (s *KnowledgeStrategy) CanHandle(_ domain.Label) bool { return true }

func (s *KnowledgeStrategy) Assemble(ctx context.Context, in *AssembleInput) (string, error) {
	out, err := s.source.Excerpt(ctx, in.Utterance)
	if err != nil {
		return "", fmt.Errorf("knowledge excerpt: %w", err)
	}
	return out, nil
}
