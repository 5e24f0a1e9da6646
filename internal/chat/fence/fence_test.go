package fence_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/fence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_RoundTrip(t *testing.T) {
	payload := map[string]any{
		"id":   "action-7",
		"type": "transfer",
		"data": map[string]any{"amount": "20", "token": "ETH", "recipient_name": "Maria"},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	cases := []struct {
		name   string
		prefix string
		suffix string
	}{
		{name: "prefix only", prefix: "Listo, preparé la transferencia.\n\n", suffix: ""},
		{name: "prefix and suffix", prefix: "Antes ", suffix: " después"},
		{name: "empty around", prefix: "", suffix: ""},
		{name: "whitespace around", prefix: "  \n", suffix: "\n  "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			text := tc.prefix + domain.FenceAction + string(raw) + domain.FenceAction + tc.suffix

			visible, got, err := fence.Extract(text, domain.FenceAction)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, strings.TrimSpace(tc.prefix+tc.suffix), visible)

			var decoded map[string]any
			require.NoError(t, json.Unmarshal(got, &decoded))
			assert.Equal(t, payload, decoded)
		})
	}
}

func TestExtract_NoFence(t *testing.T) {
	text := "Bitcoin es la primera criptomoneda."

	visible, payload, err := fence.Extract(text, domain.FenceTask)
	require.NoError(t, err)
	assert.Nil(t, payload)
	assert.Equal(t, text, visible)
}

func TestExtract_SingleFenceIsNoop(t *testing.T) {
	text := "texto " + domain.FenceTask + ` {"id": "task-1"}`

	visible, payload, err := fence.Extract(text, domain.FenceTask)
	require.NoError(t, err)
	assert.Nil(t, payload)
	assert.Equal(t, text, visible)
}

func TestExtract_MalformedPayload(t *testing.T) {
	text := "Aquí va " + domain.FenceAction + "{not json" + domain.FenceAction + " fin"

	visible, payload, err := fence.Extract(text, domain.FenceAction)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fence.ErrMalformed))
	assert.Nil(t, payload)
	assert.Equal(t, text, visible)
}

func TestExtract_EmptyPayload(t *testing.T) {
	text := "x" + domain.FenceAction + "   " + domain.FenceAction

	visible, payload, err := fence.Extract(text, domain.FenceAction)
	require.ErrorIs(t, err, fence.ErrMalformed)
	assert.Nil(t, payload)
	assert.Equal(t, text, visible)
}

func TestExtract_MarkdownWrappedPayload(t *testing.T) {
	text := "Hecho." + domain.FenceTask + "\n```json\n{\"id\": \"task-1\"}\n```\n" + domain.FenceTask

	visible, payload, err := fence.Extract(text, domain.FenceTask)
	require.NoError(t, err)
	assert.Equal(t, "Hecho.", visible)
	assert.JSONEq(t, `{"id": "task-1"}`, string(payload))
}

func TestExtract_OrderIndependent(t *testing.T) {
	text := "Resumen." +
		domain.FenceTask + `{"id":"task-1","title":"Ahorrar","type":"buy","amount":"10","token":"ETH","network":"Ethereum","gasEstimate":"$1"}` + domain.FenceTask +
		" Nota." +
		domain.FenceInsight + `{"id":"ins-1","type":"ahorro","title":"Fondo","description":"Ahorra 10%"}` + domain.FenceInsight

	taskFirst, task1, err := fence.Extract(text, domain.FenceTask)
	require.NoError(t, err)
	taskFirst, insight1, err := fence.Extract(taskFirst, domain.FenceInsight)
	require.NoError(t, err)

	insightFirst, insight2, err := fence.Extract(text, domain.FenceInsight)
	require.NoError(t, err)
	insightFirst, task2, err := fence.Extract(insightFirst, domain.FenceTask)
	require.NoError(t, err)

	assert.Equal(t, "Resumen. Nota.", taskFirst)
	assert.Equal(t, taskFirst, insightFirst)
	assert.JSONEq(t, string(task1), string(task2))
	assert.JSONEq(t, string(insight1), string(insight2))
}

func TestDecode_TypedAction(t *testing.T) {
	text := "Confirma los datos." + domain.FenceAction +
		`{"id": 42, "type": "transfer", "data": {"amount": 20, "token": "ETH", "recipient_name": "Maria"}}` +
		domain.FenceAction

	visible, action, err := fence.Decode[domain.ProposedAction](text, domain.FenceAction)
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, "Confirma los datos.", visible)
	assert.Equal(t, domain.Text("42"), action.ID)
	assert.Equal(t, domain.ActionTransfer, action.Type)
	assert.Equal(t, "20", action.Field("amount"))
	assert.Equal(t, "Maria", action.Field("recipient_name"))
}

func TestDecode_LenientFieldsAndPassThrough(t *testing.T) {
	text := "Plan listo." + domain.FenceTask +
		`{"id":"task-9","title":{"es":"Ahorro"},"type":"buy","amount":50,"token":"USDT","frequency":"weekly","network":null}` +
		domain.FenceTask

	visible, task, err := fence.Decode[domain.ProposedTask](text, domain.FenceTask)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Plan listo.", visible)
	assert.Equal(t, domain.Text(`{"es":"Ahorro"}`), task.Title)
	assert.Equal(t, domain.Text("50"), task.Amount)
	assert.Empty(t, task.Network)
	assert.Equal(t, map[string]any{"frequency": "weekly"}, task.Extra)

	out, err := json.Marshal(task)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"task-9","title":"{\"es\":\"Ahorro\"}","type":"buy","amount":"50","token":"USDT",
		"network":"","gasEstimate":"","frequency":"weekly"}`, string(out))

	action := task.AsAction()
	assert.Equal(t, "weekly", action.Field("frequency"))
	assert.Equal(t, "50", action.Field("amount"))
}

func TestDecode_ActionDataOfWrongShapeIsKept(t *testing.T) {
	text := domain.FenceAction + `{"id":"a-1","type":7,"data":"20 ETH","note":"x"}` + domain.FenceAction

	_, action, err := fence.Decode[domain.ProposedAction](text, domain.FenceAction)
	require.NoError(t, err)
	require.NotNil(t, action)
	assert.Equal(t, domain.ActionType("7"), action.Type)
	assert.False(t, action.Type.Valid())
	assert.Nil(t, action.Data)
	assert.Equal(t, map[string]any{"data": "20 ETH", "note": "x"}, action.Extra)

	out, err := json.Marshal(action)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a-1","type":"7","data":"20 ETH","note":"x"}`, string(out))
}

func TestDecode_ShapeMismatchKeepsText(t *testing.T) {
	text := "a" + domain.FenceAction + `["not", "an", "object"]` + domain.FenceAction

	visible, action, err := fence.Decode[domain.ProposedAction](text, domain.FenceAction)
	require.ErrorIs(t, err, fence.ErrMalformed)
	assert.Nil(t, action)
	assert.Equal(t, text, visible)
}

func FuzzExtract(f *testing.F) {
	f.Add("hola", domain.FenceAction)
	f.Add("a"+domain.FenceAction+`{"x":1}`+domain.FenceAction+"b", domain.FenceAction)
	f.Add(domain.FenceTask+domain.FenceTask, domain.FenceTask)
	f.Add("x###TASK_JSON###{###TASK_JSON###", domain.FenceTask)

	f.Fuzz(func(t *testing.T, text, token string) {
		visible, payload, err := fence.Extract(text, token)
		if err != nil || payload == nil {
			if visible != text {
				t.Fatalf("text must be unchanged when nothing is extracted")
			}
			return
		}
		if !json.Valid(payload) {
			t.Fatalf("payload must be valid JSON: %q", payload)
		}
		if len(visible) > len(text) {
			t.Fatalf("visible text grew: %d > %d", len(visible), len(text))
		}
	})
}
