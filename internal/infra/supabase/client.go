// Package supabase implements port.RowStore on top of the Supabase
// PostgREST API (the managed backend the UI also talks to).
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// serviceName is the name used in errors, metrics and the breaker.
const serviceName = "supabase"

var _ port.RowStore = (*Client)(nil)

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client. serviceRoleKey falls back to apiKey
// when empty (row level security then applies to every call).
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	if serviceRoleKey == "" {
		serviceRoleKey = apiKey
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// Ping issues the cheapest possible read. Used by /healthz.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	var rows []struct {
		ID string `json:"id"`
	}
	return c.get(ctx, "ping", "contacts?select=id&limit=1", &rows)
}

// get reads path through the breaker, retrying transient failures, and
// decodes the JSON body into out. A 4xx is never retried.
func (c *Client) get(ctx context.Context, op, path string, out any) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				var se *statusError
				if errors.As(err, &se) && se.clientError() {
					return resilience.Permanent(err)
				}
				return err
			}
			if len(body) == 0 {
				body = []byte("[]")
			}
			if err := json.Unmarshal(body, out); err != nil {
				return resilience.Permanent(fmt.Errorf("decode %s: %w", op, err))
			}
			return nil
		})
	})
	return c.wrap(op, err)
}

// post inserts a row through the breaker. Writes are never retried.
func (c *Client) post(ctx context.Context, op, path string, data any, prefer string) ([]byte, error) {
	body, err := c.cb.Execute(func() (any, error) {
		return c.doPost(ctx, path, data, prefer)
	})
	if err != nil {
		return nil, c.wrap(op, err)
	}
	return body.([]byte), nil
}

func (c *Client) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if resilience.IsOpen(err) {
		return &domain.ErrCircuitOpen{Service: serviceName}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: serviceName + "/" + op}
	}
	return &domain.ErrExternalService{Service: serviceName + "/" + op, Err: err}
}
