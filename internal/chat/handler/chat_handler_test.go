package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/handler"
	maindomain "github.com/boddenberg/crypto-companion-bfa-go/internal/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubHandler struct {
	resp *domain.ChatResponse
	err  error
	got  *domain.ChatRequest
}

func (s *stubHandler) Name() string { return "transaction-chat" }

func (s *stubHandler) Handle(_ context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	s.got = req
	return s.resp, s.err
}

func serve(t *testing.T, h *stubHandler, body string, ctx context.Context) (*httptest.ResponseRecorder, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics()
	req := httptest.NewRequest(http.MethodPost, "/v1/transaction-chat", strings.NewReader(body))
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	handler.ChatHandler(h, metrics, zap.NewNop()).ServeHTTP(rec, req)
	return rec, metrics
}

func TestChatHandler_Success(t *testing.T) {
	h := &stubHandler{resp: &domain.ChatResponse{
		Response: "Listo.",
		Action:   &domain.ProposedAction{ID: "action-1", Type: domain.ActionTransfer, Data: map[string]any{"amount": "20"}},
		Intent:   domain.LabelTransfer,
	}}
	ctx := maindomain.ContextWithUserID(context.Background(), "user-1")

	rec, metrics := serve(t, h, `{"message": "Envía 20 ETH a Maria", "isFirstMessage": false}`, ctx)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Listo.", body["response"])
	assert.Equal(t, "TRANSFER", body["intencion"])
	assert.NotContains(t, body, "error")
	action := body["action"].(map[string]any)
	assert.Equal(t, "transfer", action["type"])

	require.NotNil(t, h.got)
	assert.Equal(t, "Envía 20 ETH a Maria", h.got.Message)
	assert.Equal(t, "user-1", h.got.UserID)
	assert.EqualValues(t, 1, metrics.GetChatSnapshot().TotalRequests)
}

func TestChatHandler_UserIDIsNotReadFromBody(t *testing.T) {
	h := &stubHandler{resp: &domain.ChatResponse{Response: "ok"}}

	rec, _ := serve(t, h, `{"message": "hola", "UserID": "mallory"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, h.got.UserID)
}

func TestChatHandler_FailuresAre500WithApology(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
	}{
		{"bad body", `{"message": `, nil},
		{"validation", `{"messages": []}`, &maindomain.ErrValidation{Field: "messages", Message: "no user message to answer"}},
		{"completion", `{"message": "hola"}`, &maindomain.ErrCompletion{Domain: "transaction-chat", Sentinel: "[ERROR] Error al llamar a la API: 500"}},
		{"delegation", `{"message": "hola"}`, &maindomain.ErrDelegation{Handler: "ai-chat", Err: errors.New("boom")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &stubHandler{err: tc.err}

			rec, metrics := serve(t, h, tc.body, nil)
			require.Equal(t, http.StatusInternalServerError, rec.Code)

			var body domain.ChatResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, domain.ApologyText, body.Response)
			assert.NotEmpty(t, body.Error)
			assert.Nil(t, body.Action)
			assert.InDelta(t, 1.0, metrics.GetChatSnapshot().ErrorRate, 1e-9)
		})
	}
}
