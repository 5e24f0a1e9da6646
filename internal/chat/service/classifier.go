// Package service is the chat engine: intent classification, context
// assembly, completion and payload extraction, parameterized per domain.
//
// The three domain handlers (investment, transaction, education) are the
// same Engine with different DomainSpecs. The home Router classifies only
// and delegates to one of them.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/port"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("chat/service")

// ============================================================
// Classifier
// ============================================================

// Classifier maps one utterance to exactly one label of a taxonomy with a
// single completion call. It never fails: a sentinel or an unrecognized
// reply resolves to the taxonomy's default label.
type Classifier struct {
	completer port.Completer
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewClassifier creates a Classifier.
func NewClassifier(completer port.Completer, metrics *observability.Metrics, logger *zap.Logger) *Classifier {
	return &Classifier{completer: completer, metrics: metrics, logger: logger}
}

// Classify sends the taxonomy prompt and the raw utterance, then normalizes
// the reply with NormalizeLabel.
func (c *Classifier) Classify(ctx context.Context, utterance string, tax domain.Taxonomy) domain.Label {
	ctx, span := tracer.Start(ctx, "Classifier.Classify")
	defer span.End()

	raw := c.completer.Complete(ctx, []domain.Message{
		{Role: domain.RoleSystem, Content: ClassifierPrompt(tax)},
		{Role: domain.RoleUser, Content: utterance},
	})
	label := NormalizeLabel(raw, tax)

	span.SetAttributes(
		attribute.String("intent.taxonomy", tax.Name),
		attribute.String("intent.label", string(label)),
	)
	c.metrics.IncrClassification(tax.Name, string(label))
	c.logger.Info("intent classified",
		zap.String("taxonomy", tax.Name),
		zap.String("label", string(label)),
		zap.Bool("fallback", domain.IsSentinel(raw)),
	)
	return label
}

// ClassifierPrompt renders the taxonomy as a numbered list followed by the
// single-label answer instruction.
func ClassifierPrompt(tax domain.Taxonomy) string {
	var sb strings.Builder
	sb.WriteString("Eres un sistema de clasificación de intenciones. Clasifica la consulta del usuario en UNA de estas categorías:\n\n")

	names := make([]string, 0, len(tax.Labels))
	for i, spec := range tax.Labels {
		fmt.Fprintf(&sb, "%d. %s → %s\n", i+1, spec.Label, spec.Description)
		names = append(names, string(spec.Label))
	}

	sb.WriteString("\nResponde con exactamente una etiqueta, en mayúsculas, sin nada más: ")
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString(".")
	return sb.String()
}

// NormalizeLabel resolves a raw classifier reply to a label of tax.
//
// The reply is trimmed, uppercased and stripped of accents. Each label name
// and alias is then tried as a prefix in taxonomy order, then as a substring
// in the same order; the first hit wins. Sentinels, empty replies and
// replies matching nothing resolve to tax.Default.
func NormalizeLabel(raw string, tax domain.Taxonomy) domain.Label {
	if domain.IsSentinel(raw) {
		return tax.Default
	}
	s := strings.ToUpper(domain.Fold(raw))
	s = strings.Trim(s, " \t\r\n.,;:!?\"'`*#-")
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	if s == "" {
		return tax.Default
	}

	for _, spec := range tax.Labels {
		for _, name := range labelNames(spec) {
			if strings.HasPrefix(s, name) {
				return spec.Label
			}
		}
	}
	for _, spec := range tax.Labels {
		for _, name := range labelNames(spec) {
			if strings.Contains(s, name) {
				return spec.Label
			}
		}
	}
	return tax.Default
}

func labelNames(spec domain.LabelSpec) []string {
	return append([]string{string(spec.Label)}, spec.Aliases...)
}
