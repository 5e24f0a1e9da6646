package observability

import (
	"time"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Extraction outcomes recorded per fence token.
const (
	ExtractionFound     = "found"
	ExtractionAbsent    = "absent"
	ExtractionMalformed = "malformed"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	classifications *prometheus.CounterVec
	extractions     *prometheus.CounterVec
	priceQuotes     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bfa_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_requests_total",
				Help: "Total chat requests processed.",
			},
			[]string{"status"},
		),
		classifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_intent_classifications_total",
				Help: "Intent classifications by domain and resolved label.",
			},
			[]string{"domain", "label"},
		),
		extractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_fence_extractions_total",
				Help: "Fenced payload extractions by fence token and outcome.",
			},
			[]string{"fence", "outcome"},
		),
		priceQuotes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bfa_price_quotes_total",
				Help: "Price oracle lookups by asset and outcome.",
			},
			[]string{"asset", "outcome"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// IncrClassification counts one resolved intent label.
func (m *Metrics) IncrClassification(domainName, label string) {
	m.classifications.WithLabelValues(domainName, label).Inc()
}

// IncrExtraction counts one fence extraction attempt.
func (m *Metrics) IncrExtraction(fence, outcome string) {
	m.extractions.WithLabelValues(fence, outcome).Inc()
}

// IncrPriceQuote counts one price lookup; outcome is "ok" or "unavailable".
func (m *Metrics) IncrPriceQuote(asset, outcome string) {
	m.priceQuotes.WithLabelValues(asset, outcome).Inc()
}

// GetChatSnapshot returns a snapshot of chat metrics suitable for the
// GET /v1/metrics/chat endpoint.
func (m *Metrics) GetChatSnapshot() *domain.ChatMetrics {
	// Prometheus counters expose cumulative values.
	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	successCount := getCounterValue(m.requestsTotal, "success")
	errorCount := getCounterValue(m.requestsTotal, "error")
	totalRequests := successCount + errorCount
	kbHits := getCounterValue(m.cacheHits, "knowledge")
	kbMisses := getCounterValue(m.cacheMisses, "knowledge")

	avgTokens := float64(0)
	errorRate := float64(0)
	kbHitRate := float64(0)

	if totalRequests > 0 {
		avgTokens = (promptTokens + completionTokens) / totalRequests
		errorRate = errorCount / totalRequests
	}
	if kbHits+kbMisses > 0 {
		kbHitRate = kbHits / (kbHits + kbMisses)
	}

	classifications := make(map[string]float64)
	for _, s := range collectCounters(m.classifications) {
		classifications[s.labels["domain"]+"/"+s.labels["label"]] += s.value
	}

	malformed := float64(0)
	for _, s := range collectCounters(m.extractions) {
		if s.labels["outcome"] == ExtractionMalformed {
			malformed += s.value
		}
	}

	return &domain.ChatMetrics{
		TotalRequests:       int64(totalRequests),
		ErrorRate:           errorRate,
		AvgTokensPerRequest: avgTokens,
		PromptTokens:        int64(promptTokens),
		CompletionTokens:    int64(completionTokens),
		KnowledgeHitRate:    kbHitRate,
		MalformedPayloads:   int64(malformed),
		Classifications:     classifications,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

type counterSample struct {
	labels map[string]string
	value  float64
}

// collectCounters reads every child of a multi-label CounterVec.
func collectCounters(cv *prometheus.CounterVec) []counterSample {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var out []counterSample
	for metric := range ch {
		pb := &dto.Metric{}
		if err := metric.Write(pb); err != nil || pb.Counter == nil {
			continue
		}
		labels := make(map[string]string, len(pb.Label))
		for _, lp := range pb.Label {
			labels[lp.GetName()] = lp.GetValue()
		}
		out = append(out, counterSample{labels: labels, value: pb.Counter.GetValue()})
	}
	return out
}
