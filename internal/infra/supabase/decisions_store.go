package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// RecordDecision inserts the decision for d.ActionID. action_id is unique:
// PostgREST ignores the conflicting insert and answers an empty array,
// which is reported as *domain.ErrDuplicate.
func (c *Client) RecordDecision(ctx context.Context, d *domain.ActionDecision) error {
	ctx, span := tracer.Start(ctx, "Supabase.RecordDecision")
	defer span.End()
	span.SetAttributes(
		attribute.String("action.id", d.ActionID),
		attribute.String("action.decision", d.Decision),
	)

	if d.DecidedAt.IsZero() {
		d.DecidedAt = time.Now().UTC()
	}
	data := map[string]any{
		"action_id":   d.ActionID,
		"action_type": d.ActionType,
		"decision":    d.Decision,
		"decided_at":  d.DecidedAt.Format(time.RFC3339Nano),
	}
	if d.UserID != "" {
		data["user_id"] = d.UserID
	}

	body, err := c.post(ctx, "action_decisions", "action_decisions?on_conflict=action_id", data,
		"resolution=ignore-duplicates,return=representation")
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Status == http.StatusConflict {
			return &domain.ErrDuplicate{Key: d.ActionID}
		}
		return err
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return fmt.Errorf("decode action_decisions: %w", err)
	}
	if len(rows) == 0 {
		return &domain.ErrDuplicate{Key: d.ActionID}
	}
	return nil
}
