package supabase

import (
	"context"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
)

// ListSavedServices returns every saved service ordered by name.
func (c *Client) ListSavedServices(ctx context.Context) ([]domain.SavedService, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListSavedServices")
	defer span.End()

	var rows []domain.SavedService
	if err := c.get(ctx, "saved_services", "saved_services?select=*&order=name.asc", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
