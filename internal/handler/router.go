// Package handler wires the HTTP surface of the BFA: the chat endpoints,
// the approval flow, market and history reads, and operational endpoints.
package handler

import (
	"context"
	"net/http"
	"time"

	chathandler "github.com/boddenberg/crypto-companion-bfa-go/internal/chat/handler"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/knowledge"
	chatport "github.com/boddenberg/crypto-companion-bfa-go/internal/chat/port"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/observability"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// KnowledgeReloader drops and reloads the knowledge base.
type KnowledgeReloader interface {
	Reload(ctx context.Context) (*knowledge.Corpus, error)
}

// Services are the use cases served over HTTP. Nil services leave their
// routes answering 503.
type Services struct {
	// Chat handlers are mounted at /v1/{Name()}.
	Chat      []chatport.DomainHandler
	Actions   *service.ActionService
	Market    *service.MarketService
	History   *service.HistoryService
	Knowledge KnowledgeReloader
}

// Options configures authentication and CORS.
type Options struct {
	// JWTSecret verifies access tokens. Empty disables verification.
	JWTSecret      string
	AllowedOrigins []string
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	if svcs.History == nil {
		svcs.History = service.NewHistoryService(nil)
	}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(opts.AllowedOrigins))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.History))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. Chat
		// POST /v1/ai-chat, /v1/transaction-chat,
		//      /v1/education-chat, /v1/home-chat
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(opts.JWTSecret, false, logger))
			for _, h := range svcs.Chat {
				r.Post("/"+h.Name(), chathandler.ChatHandler(h, metrics, logger))
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(opts.JWTSecret, true, logger))

			// =============================================
			// 2. Approval flow
			// =============================================
			r.Post("/actions/approve", approveActionHandler(svcs.Actions, logger))
			r.Post("/actions/{actionId}/reject", rejectHandler(svcs.Actions, "actionId", logger))
			r.Post("/tasks/approve", approveTaskHandler(svcs.Actions, logger))
			r.Post("/tasks/{taskId}/cancel", rejectHandler(svcs.Actions, "taskId", logger))

			// =============================================
			// 3. History
			// =============================================
			r.Get("/movements", listMovementsHandler(svcs.History, logger))
			r.Get("/contacts", listContactsHandler(svcs.History, logger))
			r.Get("/services", listServicesHandler(svcs.History, logger))
		})

		// =============================================
		// 4. Market
		// =============================================
		r.Get("/market/convert", convertHandler(svcs.Market, logger))
		r.Get("/market/quotes", quotesHandler(svcs.Market, logger))

		// =============================================
		// 5. Metrics & admin
		// =============================================
		r.Get("/metrics/chat", chatMetricsHandler(metrics))
		r.With(JWTAuthMiddleware(opts.JWTSecret, true, logger)).
			Post("/admin/knowledge/reload", reloadKnowledgeHandler(svcs.Knowledge, logger))
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(history *service.HistoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LastChecked: now},
		}

		if history != nil && history.Configured() {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			start := time.Now()
			err := history.Ping(ctx)
			cancel()

			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name:        "row-store",
				Status:      status,
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func chatMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetChatSnapshot())
	}
}

type reloadResponse struct {
	Entries int `json:"entries"`
	Tips    int `json:"tips"`
}

func reloadKnowledgeHandler(kb KnowledgeReloader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if kb == nil {
			handleServiceError(w, &domain.ErrUnavailable{Feature: "knowledge base"}, logger)
			return
		}
		corpus, err := kb.Reload(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		logger.Info("knowledge base reloaded", zap.Int("entries", corpus.Entries()))
		writeJSON(w, http.StatusOK, reloadResponse{Entries: corpus.Entries(), Tips: len(corpus.Tips)})
	}
}
