// Package client holds the outbound HTTP clients of the BFA that are not
// part of the chat engine.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// PriceClient fetches spot prices from a CoinGecko-compatible simple/price API.
//
// Quotes are never cached and never retried: a failed lookup is reported to
// the caller, which omits that asset from whatever it is rendering.
type PriceClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
}

// NewPriceClient creates a new PriceClient. The http client should carry the
// price timeout (5s by default).
func NewPriceClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker) *PriceClient {
	return &PriceClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
	}
}

// simplePrice is keyed by asset id, then by currency code and
// "<currency>_24h_change".
type simplePrice map[string]map[string]*float64

// Quote returns the spot price and 24h change of assetID in currency.
func (c *PriceClient) Quote(ctx context.Context, assetID, currency string) (*domain.PriceQuote, error) {
	ctx, span := tracer.Start(ctx, "PriceClient.Quote")
	defer span.End()

	currency = strings.ToLower(currency)
	span.SetAttributes(
		attribute.String("asset.id", assetID),
		attribute.String("asset.currency", currency),
	)

	result, err := c.cb.Execute(func() (any, error) {
		q := url.Values{}
		q.Set("ids", assetID)
		q.Set("vs_currencies", currency)
		q.Set("include_24hr_change", "true")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("price API returned status %d", resp.StatusCode)
		}

		var body simplePrice
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode price response: %w", err)
		}
		return body, nil
	})
	if err != nil {
		if resilience.IsOpen(err) {
			return nil, &domain.ErrCircuitOpen{Service: "price-oracle"}
		}
		return nil, &domain.ErrExternalService{Service: "price-oracle", Err: err}
	}

	fields, ok := result.(simplePrice)[assetID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "price", ID: assetID}
	}
	spot := fields[currency]
	if spot == nil {
		return nil, &domain.ErrNotFound{Resource: "price", ID: assetID + "/" + currency}
	}

	return &domain.PriceQuote{
		AssetID:     assetID,
		Currency:    currency,
		SpotPrice:   *spot,
		Change24hPc: fields[currency+"_24h_change"],
	}, nil
}
