package service

import (
	"context"
	"errors"
	"strings"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/port"
	maindomain "github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// HomeGreeting is returned by the router on the opening request.
const HomeGreeting = "¡Hola! Soy Bloky, tu asistente financiero inteligente. Puedo ayudarte con:\n\n💼 Análisis de inversiones y portafolio\n💸 Transacciones y pagos\n📚 Educación financiera\n\n¿En qué puedo ayudarte hoy?"

// BotTypeHome is the botType of the router's own greeting.
const BotTypeHome = "home"

// ============================================================
// Router (home-chat)
// ============================================================

// Router classifies with the home taxonomy and hands the request to the
// matching domain handler. It owns the greeting; sub-handlers always see
// isFirstMessage=false. A failed sub-call is not retried and never falls
// back to another handler.
type Router struct {
	classifier *Classifier
	handlers   map[domain.Label]port.DomainHandler
	logger     *zap.Logger
}

// NewRouter creates a Router. handlers is keyed by home label.
func NewRouter(
	completer port.Completer,
	handlers map[domain.Label]port.DomainHandler,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Router {
	logger = logger.With(zap.String("domain", HandlerHome))
	return &Router{
		classifier: NewClassifier(completer, metrics, logger),
		handlers:   handlers,
		logger:     logger,
	}
}

// Name returns "home-chat".
func (r *Router) Name() string { return HandlerHome }

// Handle greets on the opening request (isFirstMessage, or no message at
// all), otherwise delegates and merges {botType, delegatedTo} into the
// sub-handler's response.
func (r *Router) Handle(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "Router.Handle")
	defer span.End()

	history, utterance := req.Conversation()
	if req.IsFirstMessage || utterance == "" {
		return &domain.ChatResponse{Response: HomeGreeting, BotType: BotTypeHome}, nil
	}

	label := r.classifier.Classify(ctx, utterance, domain.HomeTaxonomy)
	h, ok := r.handlers[label]
	if !ok {
		return nil, &maindomain.ErrDelegation{
			Handler: strings.ToLower(string(label)),
			Err:     errors.New("no handler registered"),
		}
	}
	span.SetAttributes(
		attribute.String("chat.intent", string(label)),
		attribute.String("chat.delegated_to", h.Name()),
	)
	r.logger.Info("delegating", zap.String("label", string(label)), zap.String("handler", h.Name()))

	resp, err := h.Handle(ctx, &domain.ChatRequest{
		Message:        utterance,
		History:        history,
		IsFirstMessage: false,
		UserID:         req.UserID,
	})
	if err != nil {
		return nil, &maindomain.ErrDelegation{Handler: h.Name(), Err: err}
	}

	merged := *resp
	merged.BotType = strings.ToLower(string(label))
	merged.DelegatedTo = h.Name()
	return &merged, nil
}
