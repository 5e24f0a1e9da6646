package service

import (
	"context"
	"strings"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/port"
)

// Limits for the history endpoints.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// HistoryService reads the user's movements, contacts and saved services.
type HistoryService struct {
	store port.RowStore
}

// NewHistoryService creates a HistoryService. store may be nil.
func NewHistoryService(store port.RowStore) *HistoryService {
	return &HistoryService{store: store}
}

// Movements returns the newest movements first. limit is clamped to
// [1, MaxHistoryLimit]; 0 means DefaultHistoryLimit.
func (s *HistoryService) Movements(ctx context.Context, userID string, limit int) ([]domain.Movement, error) {
	ctx, span := tracer.Start(ctx, "HistoryService.Movements")
	defer span.End()

	if s.store == nil {
		return nil, &domain.ErrUnavailable{Feature: "movements"}
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	movements, err := s.store.ListMovements(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if movements == nil {
		movements = []domain.Movement{}
	}
	return movements, nil
}

// Contacts searches saved contacts by name, email or phone.
func (s *HistoryService) Contacts(ctx context.Context, query string) ([]domain.Contact, error) {
	ctx, span := tracer.Start(ctx, "HistoryService.Contacts")
	defer span.End()

	if s.store == nil {
		return nil, &domain.ErrUnavailable{Feature: "contacts"}
	}
	contacts, err := s.store.SearchContacts(ctx, strings.TrimSpace(query), MaxHistoryLimit)
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	return contacts, nil
}

// Services lists the saved services.
func (s *HistoryService) Services(ctx context.Context) ([]domain.SavedService, error) {
	ctx, span := tracer.Start(ctx, "HistoryService.Services")
	defer span.End()

	if s.store == nil {
		return nil, &domain.ErrUnavailable{Feature: "services"}
	}
	services, err := s.store.ListSavedServices(ctx)
	if err != nil {
		return nil, err
	}
	if services == nil {
		services = []domain.SavedService{}
	}
	return services, nil
}

// Ping checks the row store. It returns nil when no store is configured.
func (s *HistoryService) Ping(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	return s.store.Ping(ctx)
}

// Configured reports whether a row store backs the service.
func (s *HistoryService) Configured() bool { return s.store != nil }
