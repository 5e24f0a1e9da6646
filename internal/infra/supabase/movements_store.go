package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Movements store: transaction history
// ============================================================

// CreateMovement inserts m, generating its id when missing.
func (c *Client) CreateMovement(ctx context.Context, m *domain.Movement) (*domain.Movement, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateMovement")
	defer span.End()
	span.SetAttributes(
		attribute.String("movement.type", m.Type),
		attribute.String("action.id", m.ActionID),
	)

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = domain.MovementStatusCompleted
	}
	data := map[string]any{
		"id":              m.ID,
		"type":            m.Type,
		"amount":          m.Amount,
		"token":           m.Token,
		"network":         nullable(m.Network),
		"recipient_name":  nullable(m.RecipientName),
		"recipient_email": nullable(m.RecipientEmail),
		"service_name":    nullable(m.ServiceName),
		"description":     nullable(m.Description),
		"status":          m.Status,
	}
	if m.UserID != "" {
		data["user_id"] = m.UserID
	}
	if m.ActionID != "" {
		data["action_id"] = m.ActionID
	}

	body, err := c.post(ctx, "movements", "movements", data, "")
	if err != nil {
		return nil, err
	}

	var rows []domain.Movement
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode movements: %w", err)
	}
	if len(rows) == 0 {
		return m, nil
	}
	return &rows[0], nil
}

// ListMovements returns the newest limit movements, scoped to userID when
// it is set.
func (c *Client) ListMovements(ctx context.Context, userID string, limit int) ([]domain.Movement, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListMovements")
	defer span.End()

	params := url.Values{}
	params.Set("select", "*")
	params.Set("order", "created_at.desc")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if userID != "" {
		params.Set("user_id", "eq."+userID)
	}

	var rows []domain.Movement
	if err := c.get(ctx, "movements", "movements?"+params.Encode(), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
