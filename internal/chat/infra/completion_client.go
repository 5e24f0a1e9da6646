// Package infra holds the chat engine's outbound adapters.
package infra

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/observability"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/resilience"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("chat/infra")

// ============================================================
// CompletionClient
// ============================================================
//
// Talks to the OpenAI-compatible gateway at {BaseURL}/chat/completions and
// returns choices[0].message.content. It never returns an error: failures
// come back as text starting with "[ERROR]" so each caller decides whether
// to degrade (classification) or abort (the main completion).
//
// One outbound call per Complete. No retry.

// CompletionConfig configures the gateway connection.
type CompletionConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// CompletionClient implements port.Completer.
type CompletionClient struct {
	client   *openai.Client
	model    string
	cb       *gobreaker.CircuitBreaker
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// apiKeyTransport adds the gateway's api-key header to every request.
type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("api-key", t.key)
	return t.base.RoundTrip(r)
}

// NewCompletionClient creates the client. The breaker and bulkhead are
// shared by every model variant derived with WithModel.
func NewCompletionClient(
	cfg CompletionConfig,
	cb *gobreaker.CircuitBreaker,
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CompletionClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	withKey := *httpClient
	withKey.Transport = &apiKeyTransport{key: cfg.APIKey, base: base}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = &withKey

	return &CompletionClient{
		client:   openai.NewClientWithConfig(oc),
		model:    cfg.Model,
		cb:       cb,
		bulkhead: bulkhead,
		metrics:  metrics,
		logger:   logger,
	}
}

// WithModel returns a copy of the client that requests a different model.
func (c *CompletionClient) WithModel(model string) *CompletionClient {
	cp := *c
	cp.model = model
	return &cp
}

// Model is the model name sent with every request.
func (c *CompletionClient) Model() string { return c.model }

// Complete sends messages and returns the first choice's text, or a
// "[ERROR] ..." sentinel.
func (c *CompletionClient) Complete(ctx context.Context, messages []domain.Message) string {
	ctx, span := tracer.Start(ctx, "CompletionClient.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", c.model),
		attribute.Int("llm.messages", len(messages)),
	)

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return c.sentinel(err)
	}
	defer c.bulkhead.Release()

	start := time.Now()
	result, err := c.cb.Execute(func() (any, error) {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    c.model,
			Messages: toOpenAI(messages),
		})
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	c.metrics.RecordRequestDuration("llm.complete", time.Since(start))
	if err != nil {
		return c.sentinel(err)
	}

	resp := result.(openai.ChatCompletionResponse)
	c.metrics.RecordTokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	span.SetAttributes(attribute.Int("llm.tokens.total", resp.Usage.TotalTokens))

	if len(resp.Choices) == 0 {
		return domain.NoCompletionText
	}
	return resp.Choices[0].Message.Content
}

func (c *CompletionClient) sentinel(err error) string {
	c.metrics.IncrExternalError("completion")

	var text string
	switch status := statusCode(err); {
	case status > 0:
		text = fmt.Sprintf("%s Error al llamar a la API: %d", domain.SentinelPrefix, status)
	case resilience.IsOpen(err):
		text = domain.SentinelPrefix + " circuit breaker open for completion"
	default:
		text = domain.SentinelPrefix + " " + err.Error()
	}

	c.logger.Error("completion call failed",
		zap.String("model", c.model),
		zap.String("sentinel", text),
		zap.Error(err),
	)
	return text
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func toOpenAI(messages []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}
