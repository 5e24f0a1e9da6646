package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	maindomain "github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
)

// fakeCompleter answers classification prompts with label and everything
// else with reply. Every call is recorded.
type fakeCompleter struct {
	mu    sync.Mutex
	label string
	reply string
	calls [][]domain.Message
}

func (f *fakeCompleter) Complete(_ context.Context, msgs []domain.Message) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msgs)
	if isClassification(msgs) {
		return f.label
	}
	return f.reply
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// mainCall returns the last non-classification call.
func (f *fakeCompleter) mainCall() []domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if !isClassification(f.calls[i]) {
			return f.calls[i]
		}
	}
	return nil
}

func isClassification(msgs []domain.Message) bool {
	return len(msgs) == 2 && strings.HasPrefix(msgs[0].Content, "Eres un sistema de clasificación")
}

type fakeOracle struct {
	quotes map[string]float64 // "asset/currency" → price
	change map[string]float64 // asset → 24h change
	fail   map[string]bool    // asset → error
}

func (f *fakeOracle) Quote(_ context.Context, assetID, currency string) (*maindomain.PriceQuote, error) {
	if f.fail[assetID] {
		return nil, &maindomain.ErrTimeout{Operation: "price " + assetID}
	}
	p, ok := f.quotes[assetID+"/"+currency]
	if !ok {
		return nil, &maindomain.ErrNotFound{Resource: "price", ID: assetID}
	}
	q := &maindomain.PriceQuote{AssetID: assetID, Currency: currency, SpotPrice: p}
	if c, ok := f.change[assetID]; ok {
		q.Change24hPc = &c
	}
	return q, nil
}

type fakeStore struct {
	contacts  []maindomain.Contact
	services  []maindomain.SavedService
	movements []maindomain.Movement
	portfolio *maindomain.PortfolioSnapshot
	err       error

	lastQuery string
	lastLimit int
}

func (f *fakeStore) SearchContacts(_ context.Context, q string, limit int) ([]maindomain.Contact, error) {
	f.lastQuery, f.lastLimit = q, limit
	if f.err != nil {
		return nil, f.err
	}
	var out []maindomain.Contact
	for _, c := range f.contacts {
		if strings.Contains(strings.ToLower(c.Name), q) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateContact(_ context.Context, c *maindomain.Contact) (*maindomain.Contact, error) {
	return c, f.err
}

func (f *fakeStore) ListSavedServices(context.Context) ([]maindomain.SavedService, error) {
	return f.services, f.err
}

func (f *fakeStore) CreateMovement(_ context.Context, m *maindomain.Movement) (*maindomain.Movement, error) {
	return m, f.err
}

func (f *fakeStore) ListMovements(_ context.Context, _ string, limit int) ([]maindomain.Movement, error) {
	f.lastLimit = limit
	return f.movements, f.err
}

func (f *fakeStore) RecordDecision(context.Context, *maindomain.ActionDecision) error {
	return f.err
}

func (f *fakeStore) GetPortfolio(_ context.Context, userID string) (*maindomain.PortfolioSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.portfolio == nil {
		return nil, &maindomain.ErrNotFound{Resource: "portfolio", ID: userID}
	}
	return f.portfolio, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.err }

type fakeHandler struct {
	name string
	resp *domain.ChatResponse
	err  error
	got  *domain.ChatRequest
}

func (f *fakeHandler) Name() string { return f.name }

func (f *fakeHandler) Handle(_ context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

var errStoreDown = errors.New("store down")
