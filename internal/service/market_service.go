package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/observability"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/port"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// fiatCurrencies are the vs-currencies accepted on the fiat side of a
// conversion.
var fiatCurrencies = map[string]bool{
	"usd": true, "mxn": true, "eur": true, "brl": true, "cop": true, "ars": true,
}

// MaxQuoteIDs bounds GET /v1/market/quotes.
const MaxQuoteIDs = 10

// MarketService answers price and conversion queries from the price oracle.
type MarketService struct {
	oracle  port.PriceOracle
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewMarketService creates a MarketService.
func NewMarketService(oracle port.PriceOracle, metrics *observability.Metrics, logger *zap.Logger) *MarketService {
	return &MarketService{oracle: oracle, metrics: metrics, logger: logger}
}

// Convert converts amount between a crypto asset and a fiat currency, in
// either direction ("0.5 btc → mxn" or "1000 mxn → eth").
func (s *MarketService) Convert(ctx context.Context, amount float64, from, to string) (*domain.Conversion, error) {
	ctx, span := tracer.Start(ctx, "MarketService.Convert")
	defer span.End()

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be a finite number"}
	}
	if amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be greater than zero"}
	}
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	if from == "" || to == "" {
		return nil, &domain.ErrValidation{Field: "from/to", Message: "both currencies are required"}
	}

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("market.convert", time.Since(start)) }()

	conv := &domain.Conversion{Amount: amount, From: from, To: to}
	switch {
	case fiatCurrencies[from] && !fiatCurrencies[to]:
		conv.AssetID = domain.ResolveAssetID(to)
		q, err := s.quote(ctx, conv.AssetID, from)
		if err != nil {
			return nil, err
		}
		if q.SpotPrice <= 0 {
			return nil, &domain.ErrNotFound{Resource: "price", ID: conv.AssetID + "/" + from}
		}
		conv.Rate = 1 / q.SpotPrice
	case !fiatCurrencies[from] && fiatCurrencies[to]:
		conv.AssetID = domain.ResolveAssetID(from)
		q, err := s.quote(ctx, conv.AssetID, to)
		if err != nil {
			return nil, err
		}
		conv.Rate = q.SpotPrice
	default:
		return nil, &domain.ErrValidation{
			Field:   "from/to",
			Message: fmt.Sprintf("conversion needs one crypto asset and one of %s", strings.Join(fiatList(), ", ")),
		}
	}

	conv.Converted = amount * conv.Rate
	return conv, nil
}

// Quotes returns the quotes that could be fetched for ids in currency.
// Unavailable assets are left out; an empty result is not an error.
func (s *MarketService) Quotes(ctx context.Context, ids []string, currency string) ([]domain.PriceQuote, error) {
	ctx, span := tracer.Start(ctx, "MarketService.Quotes")
	defer span.End()

	if len(ids) == 0 {
		return nil, &domain.ErrValidation{Field: "ids", Message: "at least one asset is required"}
	}
	if len(ids) > MaxQuoteIDs {
		return nil, &domain.ErrValidation{Field: "ids", Message: fmt.Sprintf("at most %d assets", MaxQuoteIDs)}
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = "usd"
	}

	quotes := make([]*domain.PriceQuote, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		assetID := domain.ResolveAssetID(id)
		g.Go(func() error {
			q, err := s.quote(gctx, assetID, currency)
			if err != nil {
				s.logger.Warn("quote unavailable", zap.String("asset_id", assetID), zap.Error(err))
				return nil
			}
			quotes[i] = q
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.PriceQuote, 0, len(ids))
	for _, q := range quotes {
		if q != nil {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (s *MarketService) quote(ctx context.Context, assetID, currency string) (*domain.PriceQuote, error) {
	q, err := s.oracle.Quote(ctx, assetID, currency)
	if err != nil {
		s.metrics.IncrPriceQuote(assetID, "unavailable")
		return nil, err
	}
	s.metrics.IncrPriceQuote(assetID, "ok")
	return q, nil
}

func fiatList() []string {
	out := make([]string, 0, len(fiatCurrencies))
	for c := range fiatCurrencies {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
