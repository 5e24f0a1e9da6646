package supabase

import (
	"context"
	"net/url"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

type portfolioRow struct {
	Snapshot domain.PortfolioSnapshot `json:"snapshot"`
}

// GetPortfolio returns the latest portfolio_snapshots row of userID.
func (c *Client) GetPortfolio(ctx context.Context, userID string) (*domain.PortfolioSnapshot, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetPortfolio")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if userID == "" {
		return nil, &domain.ErrNotFound{Resource: "portfolio", ID: "anonymous"}
	}

	params := url.Values{}
	params.Set("select", "snapshot")
	params.Set("user_id", "eq."+userID)
	params.Set("order", "created_at.desc")
	params.Set("limit", "1")

	var rows []portfolioRow
	if err := c.get(ctx, "portfolio", "portfolio_snapshots?"+params.Encode(), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "portfolio", ID: userID}
	}
	return &rows[0].Snapshot, nil
}
