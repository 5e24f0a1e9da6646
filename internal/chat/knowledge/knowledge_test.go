package knowledge_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/chat/knowledge"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExcerpt_FiltersByKeyword(t *testing.T) {
	kb := knowledge.New("", time.Minute, observability.NewMetrics(), zap.NewNop())

	out, err := kb.Excerpt(context.Background(), "¿Qué es Ethereum y cuánto cuesta el gas?")
	require.NoError(t, err)

	assert.Contains(t, out, "ethereum:")
	assert.Contains(t, out, "gas:")
	assert.NotContains(t, out, "bitcoin:")
	assert.NotContains(t, out, "presupuesto:")
	assert.Contains(t, out, "Mantén un fondo de emergencia")
}

func TestExcerpt_AccentsAndInflections(t *testing.T) {
	kb := knowledge.New("", time.Minute, observability.NewMetrics(), zap.NewNop())

	out, err := kb.Excerpt(context.Background(), "Quiero AHORRAR para mi INVERSIÓN")
	require.NoError(t, err)

	assert.Contains(t, out, "ahorro:")
	assert.Contains(t, out, "inversion:")
	assert.NotContains(t, out, "wallet:")
}

func TestExcerpt_NoMatchRendersFullCorpus(t *testing.T) {
	kb := knowledge.New("", time.Minute, observability.NewMetrics(), zap.NewNop())

	out, err := kb.Excerpt(context.Background(), "hola")
	require.NoError(t, err)

	for _, key := range []string{"presupuesto", "ahorro", "inversion", "deuda", "ethereum", "bitcoin", "wallet", "gas"} {
		assert.Contains(t, out, key+":")
	}
}

func TestCorpus_CachedAcrossCalls(t *testing.T) {
	metrics := observability.NewMetrics()
	kb := knowledge.New("", time.Minute, metrics, zap.NewNop())

	_, err := kb.Excerpt(context.Background(), "bitcoin")
	require.NoError(t, err)
	_, err = kb.Excerpt(context.Background(), "wallet")
	require.NoError(t, err)

	assert.InDelta(t, 0.5, metrics.GetChatSnapshot().KnowledgeHitRate, 1e-9)
}

func TestClose_StopsSweepKeepsCorpus(t *testing.T) {
	kb := knowledge.New("", 10*time.Millisecond, observability.NewMetrics(), zap.NewNop())
	kb.Close()
	kb.Close()

	c, err := kb.Corpus(context.Background())
	require.NoError(t, err)
	assert.Positive(t, c.Entries())
}

func TestReload_PicksUpFileChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"conceptos_basicos":{"staking":"Bloquear tokens para asegurar la red."},"consejos":["Lee antes de firmar"]}`), 0o600))

	kb := knowledge.New(path, time.Hour, observability.NewMetrics(), zap.NewNop())

	out, err := kb.Excerpt(context.Background(), "staking")
	require.NoError(t, err)
	assert.Contains(t, out, "Bloquear tokens")

	require.NoError(t, os.WriteFile(path, []byte(`{"conceptos_basicos":{"staking":"Delegar tokens a un validador."}}`), 0o600))

	out, err = kb.Excerpt(context.Background(), "staking")
	require.NoError(t, err)
	assert.Contains(t, out, "Bloquear tokens", "cached copy is served until reload")

	c, err := kb.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, c.Entries())

	out, err = kb.Excerpt(context.Background(), "staking")
	require.NoError(t, err)
	assert.Contains(t, out, "Delegar tokens")
}

func TestExcerpt_MissingFile(t *testing.T) {
	kb := knowledge.New(filepath.Join(t.TempDir(), "missing.json"), time.Minute, observability.NewMetrics(), zap.NewNop())

	_, err := kb.Excerpt(context.Background(), "bitcoin")
	require.Error(t, err)
}
