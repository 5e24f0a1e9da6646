package service_test

import (
	"context"
	"maps"
	"strings"
	"sync"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/port"
)

// memStore is an in-memory port.RowStore.
type memStore struct {
	mu        sync.Mutex
	contacts  []domain.Contact
	services  []domain.SavedService
	movements []domain.Movement
	decisions map[string]domain.ActionDecision
	writeErr  error
	lastLimit int
}

func newMemStore() *memStore {
	return &memStore{decisions: make(map[string]domain.ActionDecision)}
}

func (m *memStore) SearchContacts(_ context.Context, q string, limit int) ([]domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	var out []domain.Contact
	for _, c := range m.contacts {
		if q == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(q)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) CreateContact(_ context.Context, c *domain.Contact) (*domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return nil, m.writeErr
	}
	c.ID = "contact-1"
	m.contacts = append(m.contacts, *c)
	return c, nil
}

func (m *memStore) ListSavedServices(context.Context) ([]domain.SavedService, error) {
	return m.services, nil
}

func (m *memStore) CreateMovement(_ context.Context, mv *domain.Movement) (*domain.Movement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return nil, m.writeErr
	}
	mv.ID = "movement-1"
	m.movements = append(m.movements, *mv)
	return mv, nil
}

func (m *memStore) ListMovements(_ context.Context, _ string, limit int) ([]domain.Movement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	return m.movements, nil
}

func (m *memStore) RecordDecision(_ context.Context, d *domain.ActionDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.decisions[d.ActionID]; ok {
		return &domain.ErrDuplicate{Key: d.ActionID}
	}
	m.decisions[d.ActionID] = *d
	return nil
}

func (m *memStore) GetPortfolio(_ context.Context, userID string) (*domain.PortfolioSnapshot, error) {
	return nil, &domain.ErrNotFound{Resource: "portfolio", ID: userID}
}

func (m *memStore) Ping(context.Context) error { return nil }

// txStore is a memStore that undoes every write of fn when fn fails.
type txStore struct {
	*memStore
	txs int
}

func (s *txStore) InTx(ctx context.Context, fn func(context.Context, port.RowStore) error) error {
	s.mu.Lock()
	s.txs++
	decisions := maps.Clone(s.decisions)
	contacts, movements := len(s.contacts), len(s.movements)
	s.mu.Unlock()

	err := fn(ctx, s.memStore)
	if err != nil {
		s.mu.Lock()
		s.decisions = decisions
		s.contacts = s.contacts[:contacts]
		s.movements = s.movements[:movements]
		s.mu.Unlock()
	}
	return err
}

type fakeOracle struct {
	prices map[string]float64 // "asset/currency"
}

func (f *fakeOracle) Quote(_ context.Context, assetID, currency string) (*domain.PriceQuote, error) {
	p, ok := f.prices[assetID+"/"+currency]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "price", ID: assetID}
	}
	return &domain.PriceQuote{AssetID: assetID, Currency: currency, SpotPrice: p}, nil
}
