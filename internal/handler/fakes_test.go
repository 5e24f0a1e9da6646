package handler_test

import (
	"context"
	"strings"
	"sync"

	chatdomain "github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
)

// scriptedCompleter answers classification prompts with label and every
// other prompt with reply.
type scriptedCompleter struct {
	mu    sync.Mutex
	label string
	reply string
	calls int
}

func (c *scriptedCompleter) Complete(_ context.Context, msgs []chatdomain.Message) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if len(msgs) == 2 && strings.HasPrefix(msgs[0].Content, "Eres un sistema de clasificación") {
		return c.label
	}
	return c.reply
}

type priceTable map[string]float64

func (p priceTable) Quote(_ context.Context, assetID, currency string) (*domain.PriceQuote, error) {
	v, ok := p[assetID+"/"+currency]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "price", ID: assetID}
	}
	return &domain.PriceQuote{AssetID: assetID, Currency: currency, SpotPrice: v}, nil
}

// rowStore is an in-memory port.RowStore.
type rowStore struct {
	mu        sync.Mutex
	contacts  []domain.Contact
	movements []domain.Movement
	decisions map[string]string
	pingErr   error
}

func newRowStore() *rowStore {
	return &rowStore{decisions: make(map[string]string)}
}

func (s *rowStore) SearchContacts(_ context.Context, q string, _ int) ([]domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Contact
	for _, c := range s.contacts {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(q)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *rowStore) CreateContact(_ context.Context, c *domain.Contact) (*domain.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = append(s.contacts, *c)
	return c, nil
}

func (s *rowStore) ListSavedServices(context.Context) ([]domain.SavedService, error) {
	return nil, nil
}

func (s *rowStore) CreateMovement(_ context.Context, m *domain.Movement) (*domain.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = "mv-1"
	s.movements = append(s.movements, *m)
	return m, nil
}

func (s *rowStore) ListMovements(context.Context, string, int) ([]domain.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Movement(nil), s.movements...), nil
}

func (s *rowStore) RecordDecision(_ context.Context, d *domain.ActionDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.decisions[d.ActionID]; ok {
		return &domain.ErrDuplicate{Key: d.ActionID}
	}
	s.decisions[d.ActionID] = d.Decision
	return nil
}

func (s *rowStore) GetPortfolio(_ context.Context, userID string) (*domain.PortfolioSnapshot, error) {
	return nil, &domain.ErrNotFound{Resource: "portfolio", ID: userID}
}

func (s *rowStore) Ping(context.Context) error { return s.pingErr }
