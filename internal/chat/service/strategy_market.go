package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	maindomain "github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/observability"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/port"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MarketAsset is one line of the market block. The first currency is the
// primary one: without it the whole line is omitted.
type MarketAsset struct {
	AssetID    string
	Name       string
	Symbol     string
	Currencies []string
	Decimals   int
	Note       string
}

// MarketStrategy renders live quotes for a fixed list of assets. All quotes
// are fetched concurrently and every failed one is simply left out.
type MarketStrategy struct {
	labelSet
	oracle  port.PriceOracle
	assets  []MarketAsset
	fxRate  bool
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewMarketStrategy creates a MarketStrategy for the given labels. With
// fxRate set, a USD→MXN reference line derived from the tether/mxn quote
// is appended when available.
func NewMarketStrategy(
	oracle port.PriceOracle,
	assets []MarketAsset,
	fxRate bool,
	metrics *observability.Metrics,
	logger *zap.Logger,
	ls ...domain.Label,
) *MarketStrategy {
	return &MarketStrategy{
		labelSet: labels(ls...),
		oracle:   oracle,
		assets:   assets,
		fxRate:   fxRate,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *MarketStrategy) Name() string { return "market" }

type quoteKey struct{ asset, currency string }

func (s *MarketStrategy) Assemble(ctx context.Context, _ *AssembleInput) (string, error) {
	ctx, span := tracer.Start(ctx, "MarketStrategy.Assemble")
	defer span.End()

	var keys []quoteKey
	for _, a := range s.assets {
		for _, c := range a.Currencies {
			keys = append(keys, quoteKey{a.AssetID, c})
		}
	}
	fx := quoteKey{maindomain.AssetTether, "mxn"}
	if s.fxRate {
		keys = append(keys, fx)
	}

	quotes := make([]*maindomain.PriceQuote, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, k := range keys {
		g.Go(func() error {
			q, err := s.oracle.Quote(gctx, k.asset, k.currency)
			if err != nil {
				s.metrics.IncrPriceQuote(k.asset, "unavailable")
				s.logger.Warn("price quote unavailable",
					zap.String("asset_id", k.asset),
					zap.String("currency", k.currency),
					zap.Error(err),
				)
				return nil
			}
			s.metrics.IncrPriceQuote(k.asset, "ok")
			quotes[i] = q
			return nil
		})
	}
	_ = g.Wait()

	got := make(map[quoteKey]*maindomain.PriceQuote, len(keys))
	for i, k := range keys {
		if quotes[i] != nil {
			got[k] = quotes[i]
		}
	}

	var sb strings.Builder
	sb.WriteString("Contexto de mercado actual (información en tiempo real):\n")
	lines := 0
	for _, a := range s.assets {
		if line := renderAsset(a, got); line != "" {
			sb.WriteString(line + "\n")
			lines++
		}
	}
	if q, ok := got[fx]; ok && s.fxRate {
		fmt.Fprintf(&sb, "Tasa de cambio de referencia: 1 USD ≈ %.2f MXN\n", q.SpotPrice)
		lines++
	}
	if lines == 0 {
		sb.WriteString("No hay precios disponibles en este momento; no inventes cifras.\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func renderAsset(a MarketAsset, got map[quoteKey]*maindomain.PriceQuote) string {
	if len(a.Currencies) == 0 {
		return ""
	}
	primary, ok := got[quoteKey{a.AssetID, a.Currencies[0]}]
	if !ok {
		return ""
	}

	parts := []string{formatPrice(primary, a.Decimals)}
	for _, c := range a.Currencies[1:] {
		if q, ok := got[quoteKey{a.AssetID, c}]; ok {
			parts = append(parts, formatPrice(q, a.Decimals))
		}
	}
	if primary.Change24hPc != nil {
		parts = append(parts, fmt.Sprintf("cambio 24h: %.2f%%", *primary.Change24hPc))
	}

	line := fmt.Sprintf("- %s (%s): %s", a.Name, a.Symbol, strings.Join(parts, " | "))
	if a.Note != "" {
		line += " (" + a.Note + ")"
	}
	return line
}

func formatPrice(q *maindomain.PriceQuote, decimals int) string {
	if decimals <= 0 {
		decimals = 2
	}
	return fmt.Sprintf("$%.*f %s", decimals, q.SpotPrice, strings.ToUpper(q.Currency))
}
