package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/client"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPriceClient(t *testing.T, h http.HandlerFunc, timeout time.Duration) *client.PriceClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return client.NewPriceClient(&http.Client{Timeout: timeout}, srv.URL, resilience.NewCircuitBreaker("price-oracle", zap.NewNop()))
}

func TestPriceClient_Quote(t *testing.T) {
	c := newPriceClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "mxn", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "true", r.URL.Query().Get("include_24hr_change"))
		w.Write([]byte(`{"bitcoin":{"mxn":1850000.5,"mxn_24h_change":-2.75}}`))
	}, time.Second)

	q, err := c.Quote(context.Background(), "bitcoin", "MXN")
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", q.AssetID)
	assert.Equal(t, "mxn", q.Currency)
	assert.Equal(t, 1850000.5, q.SpotPrice)
	require.NotNil(t, q.Change24hPc)
	assert.Equal(t, -2.75, *q.Change24hPc)
}

func TestPriceClient_QuoteWithoutChange(t *testing.T) {
	c := newPriceClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tether":{"usd":1.0}}`))
	}, time.Second)

	q, err := c.Quote(context.Background(), "tether", "usd")
	require.NoError(t, err)
	assert.Nil(t, q.Change24hPc)
}

func TestPriceClient_UnknownAsset(t *testing.T) {
	c := newPriceClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}, time.Second)

	_, err := c.Quote(context.Background(), "dogecoin-classic", "usd")
	var nf *domain.ErrNotFound
	require.True(t, errors.As(err, &nf))
}

func TestPriceClient_UpstreamError(t *testing.T) {
	c := newPriceClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, time.Second)

	_, err := c.Quote(context.Background(), "bitcoin", "usd")
	var ext *domain.ErrExternalService
	require.True(t, errors.As(err, &ext))
	assert.Equal(t, "price-oracle", ext.Service)
}

func TestPriceClient_Timeout(t *testing.T) {
	c := newPriceClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"bitcoin":{"usd":1}}`))
	}, 20*time.Millisecond)

	_, err := c.Quote(context.Background(), "bitcoin", "usd")
	require.Error(t, err)
}
