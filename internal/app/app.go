// Package app wires configuration into a ready-to-serve http.Handler.
// Both the long-running server and the serverless entrypoint build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	chatdomain "github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	chatinfra "github.com/boddenberg/crypto-companion-bfa-go/internal/chat/infra"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/knowledge"
	chatport "github.com/boddenberg/crypto-companion-bfa-go/internal/chat/port"
	chatservice "github.com/boddenberg/crypto-companion-bfa-go/internal/chat/service"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/config"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/handler"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/client"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/observability"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/postgres"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/port"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ServiceName identifies the process in traces.
const ServiceName = "crypto-companion-bfa"

// App owns the router and every resource that must be released on shutdown.
type App struct {
	Handler http.Handler
	Metrics *observability.Metrics

	logger  *zap.Logger
	closers []func(context.Context) error
}

// New builds the application: tracer → metrics → clients → store →
// services → router.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, ServiceName)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.closers = append(a.closers, shutdownTracer)

	// --- Metrics ---
	a.Metrics = observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// --- Clients ---
	if cfg.LLMAPIKey == "" {
		logger.Warn("LLM_API_KEY not set: completions will fail with an [ERROR] sentinel")
	}
	completion := chatinfra.NewCompletionClient(
		chatinfra.CompletionConfig{
			BaseURL:    cfg.LLMBaseURL,
			APIKey:     cfg.LLMAPIKey,
			Model:      cfg.LLMModelDefault,
			HTTPClient: &http.Client{Timeout: cfg.LLMTimeout},
		},
		resilience.NewCircuitBreaker("completion", logger),
		resilience.NewBulkhead(cfg.MaxConcurrency),
		a.Metrics,
		logger,
	)
	oracle := client.NewPriceClient(
		&http.Client{Timeout: cfg.PriceTimeout},
		cfg.PriceAPIURL,
		resilience.NewCircuitBreaker("price-oracle", logger),
	)

	store, err := a.openStore(ctx, cfg, resilienceCfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	kb := knowledge.New(cfg.KnowledgeBasePath, cfg.CacheTTL, a.Metrics, logger)
	a.closers = append(a.closers, func(context.Context) error {
		kb.Close()
		return nil
	})

	// --- Chat handlers ---
	deps := chatservice.Deps{
		Completer:           completion,
		InvestmentCompleter: completion.WithModel(cfg.LLMModelInvestment),
		Oracle:              oracle,
		Knowledge:           kb,
		Metrics:             a.Metrics,
		Logger:              logger,
	}
	if store != nil {
		deps.Store = store
	}
	investment := chatservice.NewInvestmentHandler(deps)
	transaction := chatservice.NewTransactionHandler(deps)
	education := chatservice.NewEducationHandler(deps)
	home := chatservice.NewRouter(completion, map[chatdomain.Label]chatport.DomainHandler{
		chatdomain.LabelInvestments:  investment,
		chatdomain.LabelTransactions: transaction,
		chatdomain.LabelEducation:    education,
	}, a.Metrics, logger)

	// --- Services ---
	svcs := handler.Services{
		Chat:      []chatport.DomainHandler{investment, transaction, education, home},
		Market:    service.NewMarketService(oracle, a.Metrics, logger),
		History:   service.NewHistoryService(nil),
		Knowledge: kb,
	}
	if store != nil {
		svcs.Actions = service.NewActionService(store, a.Metrics, logger)
		svcs.History = service.NewHistoryService(store)
	} else {
		logger.Warn("no row store configured: approvals and history routes answer 503")
	}
	if cfg.JWTSecret == "" {
		logger.Warn("SUPABASE_JWT_SECRET not set: access tokens are not verified")
	}

	a.Handler = handler.NewRouter(svcs, handler.Options{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, a.Metrics, logger)
	return a, nil
}

// openStore returns the configured row store, or nil for STORE_BACKEND=none.
func (a *App) openStore(ctx context.Context, cfg *config.Config, resilienceCfg resilience.Config) (port.RowStore, error) {
	switch cfg.StoreBackend {
	case config.BackendSupabase:
		if cfg.SupabaseURL == "" {
			return nil, errors.New("STORE_BACKEND=supabase requires SUPABASE_URL")
		}
		a.logger.Info("using Supabase as row store", zap.String("supabase_url", cfg.SupabaseURL))
		return supabase.NewClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceRoleKey,
			resilience.NewCircuitBreaker("supabase", a.logger),
			resilienceCfg,
			a.logger,
		), nil

	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("STORE_BACKEND=postgres requires DATABASE_URL")
		}
		if cfg.RunMigrations {
			if err := postgres.Migrate(cfg.DatabaseURL, a.logger); err != nil {
				return nil, err
			}
		}
		pg, err := postgres.Connect(ctx, cfg.DatabaseURL, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error {
			pg.Close()
			return nil
		})
		return pg, nil

	case config.BackendNone, "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown step failed", zap.Error(err))
		}
	}
	a.closers = nil
}
