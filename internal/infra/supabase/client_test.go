package supabase_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/supabase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fastRetry = resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

func newClient(t *testing.T, h http.HandlerFunc) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return supabase.NewClient(srv.Client(), srv.URL, "anon-key", "service-key",
		resilience.NewCircuitBreaker("supabase-test", zap.NewNop()), fastRetry, zap.NewNop())
}

func TestSearchContacts(t *testing.T) {
	var got *http.Request
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"id": "c1", "name": "Maria Gómez", "email": "maria@correo.com", "created_at": "2025-10-01T10:00:00Z"}]`)
	})

	contacts, err := c.SearchContacts(context.Background(), "maria", 5)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Maria Gómez", contacts[0].Name)

	assert.Equal(t, "/rest/v1/contacts", got.URL.Path)
	assert.Equal(t, `(name.ilike."*maria*",email.ilike."*maria*",phone.ilike."*maria*")`, got.URL.Query().Get("or"))
	assert.Equal(t, "5", got.URL.Query().Get("limit"))
	assert.Equal(t, "anon-key", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer service-key", got.Header.Get("Authorization"))
}

func TestSearchContacts_QuotesFilter(t *testing.T) {
	var or string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		or = r.URL.Query().Get("or")
		io.WriteString(w, `[]`)
	})

	contacts, err := c.SearchContacts(context.Background(), "ana),id.eq.(1", 5)
	require.NoError(t, err)
	assert.Empty(t, contacts)
	assert.Equal(t, `(name.ilike."*ana),id.eq.(1*",email.ilike."*ana),id.eq.(1*",phone.ilike."*ana),id.eq.(1*")`, or)

	_, err = c.SearchContacts(context.Background(), `say "hi"\ *`, 5)
	require.NoError(t, err)
	assert.Equal(t, `(name.ilike."*say \"hi\"\\*",email.ilike."*say \"hi\"\\*",phone.ilike."*say \"hi\"\\*")`, or)
}

func TestSearchContacts_ByEmail(t *testing.T) {
	var or string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		or = r.URL.Query().Get("or")
		io.WriteString(w, `[{"id": "c1", "name": "Juan Pérez", "email": "juan.perez@mail.com"}]`)
	})

	contacts, err := c.SearchContacts(context.Background(), "juan.perez@mail.com", 5)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "juan.perez@mail.com", contacts[0].Email)
	assert.Contains(t, or, `email.ilike."*juan.perez@mail.com*"`)
}

func TestGet_RetriesServerErrorsOnly(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `[{"id": "s1", "name": "CFE", "category": "luz"}]`)
	})

	services, err := c.ListSavedServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, int32(3), calls.Load())

	var badCalls atomic.Int32
	bad := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		badCalls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"message": "bad filter"}`)
	})
	_, err = bad.ListSavedServices(context.Background())
	var ext *domain.ErrExternalService
	require.True(t, errors.As(err, &ext))
	assert.Equal(t, "supabase/saved_services", ext.Service)
	assert.Equal(t, int32(1), badCalls.Load(), "4xx is not retried")
}

func TestListMovements(t *testing.T) {
	var got *http.Request
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		io.WriteString(w, `[{"id": "m1", "type": "transfer", "amount": "20", "token": "ETH", "status": "completed", "created_at": "2025-10-01T10:00:00Z"}]`)
	})

	movements, err := c.ListMovements(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, "20", movements[0].Amount)

	q := got.URL.Query()
	assert.Equal(t, "created_at.desc", q.Get("order"))
	assert.Equal(t, "10", q.Get("limit"))
	assert.Equal(t, "eq.user-1", q.Get("user_id"))
}

func TestCreateMovement(t *testing.T) {
	var sent map[string]any
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `[]`)
	})

	m, err := c.CreateMovement(context.Background(), &domain.Movement{
		Type: domain.MovementTransfer, Amount: "20", Token: "ETH", RecipientName: "Maria", ActionID: "action-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "completed", sent["status"])
	assert.Equal(t, "Maria", sent["recipient_name"])
	assert.Equal(t, "action-1", sent["action_id"])
	assert.Nil(t, sent["service_name"])
}

func TestRecordDecision_Duplicate(t *testing.T) {
	var inserted atomic.Bool
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "action_id", r.URL.Query().Get("on_conflict"))
		assert.Contains(t, r.Header.Get("Prefer"), "resolution=ignore-duplicates")
		w.WriteHeader(http.StatusCreated)
		if inserted.CompareAndSwap(false, true) {
			io.WriteString(w, `[{"action_id": "action-1"}]`)
			return
		}
		io.WriteString(w, `[]`)
	})

	d := &domain.ActionDecision{ActionID: "action-1", ActionType: "transfer", Decision: domain.DecisionApproved}
	require.NoError(t, c.RecordDecision(context.Background(), d))

	err := c.RecordDecision(context.Background(), d)
	var dup *domain.ErrDuplicate
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "action-1", dup.Key)
}

func TestRecordDecision_ConflictStatus(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"code": "23505"}`)
	})

	err := c.RecordDecision(context.Background(), &domain.ActionDecision{ActionID: "task-9", Decision: domain.DecisionRejected})
	var dup *domain.ErrDuplicate
	assert.True(t, errors.As(err, &dup))
}

func TestGetPortfolio(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user_id") == "eq.user-1" {
			io.WriteString(w, `[{"snapshot": {"owner_name": "Ana", "total_value": 1000, "holdings": {"bitcoin": {"cantidad": 0.1, "precio_usd": 60000}}}}]`)
			return
		}
		io.WriteString(w, `[]`)
	})

	p, err := c.GetPortfolio(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.OwnerName)
	assert.InDelta(t, 0.1, p.Holdings["bitcoin"].Quantity, 1e-9)

	_, err = c.GetPortfolio(context.Background(), "user-2")
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))
}

func TestPing_BreakerOpens(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		require.Error(t, c.Ping(context.Background()))
	}
	err := c.Ping(context.Background())
	var open *domain.ErrCircuitOpen
	assert.True(t, errors.As(err, &open))
}
