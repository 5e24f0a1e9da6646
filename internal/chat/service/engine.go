package service

import (
	"context"
	"errors"
	"time"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/fence"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/port"
	maindomain "github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Engine: one domain handler
// ============================================================
//
// Flow for a non-greeting request:
//  1. split the request into history + utterance
//  2. classify the utterance against the domain taxonomy
//  3. run every strategy that handles the label, in order
//  4. persona, context blocks, history, utterance → completion
//  5. a sentinel completion aborts the request (ErrCompletion)
//  6. extract fenced payloads in the domain's fence order

// DomainSpec is everything that makes one domain handler different.
type DomainSpec struct {
	Name       string
	Taxonomy   domain.Taxonomy
	Persona    string
	Greeting   func(ctx context.Context, req *domain.ChatRequest) string
	Strategies []ContextStrategy
	Fences     []string
}

// Engine implements port.DomainHandler for one DomainSpec.
type Engine struct {
	spec       DomainSpec
	completer  port.Completer
	classifier *Classifier
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewEngine creates an Engine. Classification and the main completion share
// the given completer.
func NewEngine(spec DomainSpec, completer port.Completer, metrics *observability.Metrics, logger *zap.Logger) *Engine {
	logger = logger.With(zap.String("domain", spec.Name))
	return &Engine{
		spec:       spec,
		completer:  completer,
		classifier: NewClassifier(completer, metrics, logger),
		metrics:    metrics,
		logger:     logger,
	}
}

// Name is the handler name ("ai-chat", "transaction-chat", ...).
func (e *Engine) Name() string { return e.spec.Name }

// Handle answers one chat request.
func (e *Engine) Handle(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := tracer.Start(ctx, "Engine.Handle")
	defer span.End()
	span.SetAttributes(attribute.String("chat.domain", e.spec.Name))

	start := time.Now()
	defer func() { e.metrics.RecordRequestDuration(e.spec.Name, time.Since(start)) }()

	if req.WantsGreeting() {
		return &domain.ChatResponse{Response: e.greeting(ctx, req)}, nil
	}

	history, utterance := req.Conversation()
	if utterance == "" {
		return nil, &maindomain.ErrValidation{Field: "messages", Message: "no user message to answer"}
	}

	label := e.classifier.Classify(ctx, utterance, e.spec.Taxonomy)
	span.SetAttributes(attribute.String("chat.intent", string(label)))

	msgs := make([]domain.Message, 0, len(history)+len(e.spec.Strategies)+2)
	msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: e.spec.Persona})
	for _, block := range e.assemble(ctx, &AssembleInput{Label: label, Utterance: utterance, UserID: req.UserID}) {
		msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: block})
	}
	msgs = append(msgs, history...)
	msgs = append(msgs, domain.Message{Role: domain.RoleUser, Content: utterance})

	text := e.completer.Complete(ctx, msgs)
	if domain.IsSentinel(text) {
		return nil, &maindomain.ErrCompletion{Domain: e.spec.Name, Sentinel: text}
	}

	resp := &domain.ChatResponse{Intent: label}
	resp.Response = e.extract(text, resp)
	return resp, nil
}

func (e *Engine) greeting(ctx context.Context, req *domain.ChatRequest) string {
	if e.spec.Greeting == nil {
		return ""
	}
	return e.spec.Greeting(ctx, req)
}

// assemble returns the non-empty blocks of every strategy handling in.Label.
func (e *Engine) assemble(ctx context.Context, in *AssembleInput) []string {
	var blocks []string
	for _, s := range e.spec.Strategies {
		if !s.CanHandle(in.Label) {
			continue
		}
		block, err := s.Assemble(ctx, in)
		if err != nil {
			e.logger.Warn("context strategy failed, block skipped",
				zap.String("strategy", s.Name()),
				zap.String("label", string(in.Label)),
				zap.Error(err),
			)
			continue
		}
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// extract runs every fence of the domain over text and attaches the decoded
// payloads to resp. It returns the text left visible to the user.
func (e *Engine) extract(text string, resp *domain.ChatResponse) string {
	for _, token := range e.spec.Fences {
		var err error
		var found bool

		switch token {
		case domain.FenceTask:
			var task *domain.ProposedTask
			text, task, err = fence.Decode[domain.ProposedTask](text, token)
			if task != nil {
				if task.ID == "" {
					task.ID = domain.Text("task-" + uuid.NewString())
				}
				resp.Task, found = task, true
			}
		case domain.FenceAction:
			var action *domain.ProposedAction
			text, action, err = fence.Decode[domain.ProposedAction](text, token)
			if action != nil {
				if action.ID == "" {
					action.ID = domain.Text("action-" + uuid.NewString())
				}
				resp.Action, found = action, true
			}
		case domain.FenceInsight:
			var insight *domain.ProposedInsight
			text, insight, err = fence.Decode[domain.ProposedInsight](text, token)
			if insight != nil {
				if insight.ID == "" {
					insight.ID = domain.Text("insight-" + uuid.NewString())
				}
				resp.Insight, found = insight, true
			}
		}

		switch {
		case errors.Is(err, fence.ErrMalformed):
			e.metrics.IncrExtraction(token, observability.ExtractionMalformed)
			e.logger.Warn("fenced payload is not valid JSON, left visible",
				zap.String("fence", token),
				zap.Error(err),
			)
		case found:
			e.metrics.IncrExtraction(token, observability.ExtractionFound)
		default:
			e.metrics.IncrExtraction(token, observability.ExtractionAbsent)
		}
	}
	return text
}
