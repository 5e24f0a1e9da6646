// Package knowledge serves the education coach's reference corpus.
//
// The corpus is read lazily (embedded default or a JSON file), kept in a TTL
// cache and filtered per query by plain keyword matching. Reload drops the
// cached copy so an edited file is picked up without a restart.
package knowledge

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
	"unicode"

	chatdomain "github.com/boddenberg/crypto-companion-bfa-go/internal/chat/domain"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/cache"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/observability"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("chat/knowledge")

//go:embed corpus.json
var defaultCorpus []byte

const cacheKey = "corpus"

// stemLen is how many leading runes of an entry key a query word must share.
const stemLen = 5

// Corpus is the knowledge base document.
type Corpus struct {
	Concepts map[string]string `json:"conceptos_basicos"`
	Crypto   map[string]string `json:"criptomonedas"`
	Tips     []string          `json:"consejos"`
}

// Entries is the number of concept and crypto entries.
func (c *Corpus) Entries() int { return len(c.Concepts) + len(c.Crypto) }

// Base implements port.KnowledgeSource.
type Base struct {
	path    string
	cache   *cache.InMemory[*Corpus]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// New creates a Base. An empty path uses the embedded corpus.
func New(path string, ttl time.Duration, metrics *observability.Metrics, logger *zap.Logger) *Base {
	return &Base{
		path:    path,
		cache:   cache.New[*Corpus](ttl),
		metrics: metrics,
		logger:  logger,
	}
}

// Corpus returns the cached corpus, loading it on first use.
func (b *Base) Corpus(ctx context.Context) (*Corpus, error) {
	c, hit, err := b.cache.GetOrLoad(ctx, cacheKey, b.load)
	if hit {
		b.metrics.IncrCacheHit("knowledge")
	} else {
		b.metrics.IncrCacheMiss("knowledge")
	}
	return c, err
}

// Reload drops the cached corpus and loads it again.
func (b *Base) Reload(ctx context.Context) (*Corpus, error) {
	b.cache.Delete(cacheKey)
	c, err := b.Corpus(ctx)
	if err != nil {
		return nil, err
	}
	b.logger.Info("knowledge base reloaded",
		zap.String("source", b.source()),
		zap.Int("entries", c.Entries()),
	)
	return c, nil
}

// Close stops the cache's expiry sweep. The corpus stays readable.
func (b *Base) Close() { b.cache.Close() }

// Excerpt renders the entries whose key shares a stem with a word of query.
// When nothing matches the whole corpus is rendered. Tips are always included.
func (b *Base) Excerpt(ctx context.Context, query string) (string, error) {
	ctx, span := tracer.Start(ctx, "Base.Excerpt")
	defer span.End()

	c, err := b.Corpus(ctx)
	if err != nil {
		return "", err
	}

	words := queryWords(query)
	concepts := filter(c.Concepts, words)
	crypto := filter(c.Crypto, words)
	if len(concepts)+len(crypto) == 0 {
		concepts, crypto = c.Concepts, c.Crypto
	}

	var sb strings.Builder
	sb.WriteString("BASE DE CONOCIMIENTO:\n")
	writeSection(&sb, "Conceptos básicos", concepts)
	writeSection(&sb, "Criptomonedas", crypto)
	if len(c.Tips) > 0 {
		sb.WriteString("Consejos:\n")
		for _, tip := range c.Tips {
			sb.WriteString("- " + tip + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (b *Base) load(ctx context.Context) (*Corpus, error) {
	_, span := tracer.Start(ctx, "Base.load")
	defer span.End()

	raw := defaultCorpus
	if b.path != "" {
		data, err := os.ReadFile(b.path)
		if err != nil {
			return nil, fmt.Errorf("read knowledge base: %w", err)
		}
		raw = data
	}

	var c Corpus
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse knowledge base %s: %w", b.source(), err)
	}
	return &c, nil
}

func (b *Base) source() string {
	if b.path == "" {
		return "embedded"
	}
	return b.path
}

func queryWords(query string) []string {
	return strings.FieldsFunc(chatdomain.Fold(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func filter(entries map[string]string, words []string) map[string]string {
	out := make(map[string]string)
	for key, text := range entries {
		stem := []rune(chatdomain.Fold(key))
		if len(stem) > stemLen {
			stem = stem[:stemLen]
		}
		for _, w := range words {
			if strings.HasPrefix(w, string(stem)) {
				out[key] = text
				break
			}
		}
	}
	return out
}

func writeSection(sb *strings.Builder, title string, entries map[string]string) {
	if len(entries) == 0 {
		return
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteString(title + ":\n")
	for _, k := range keys {
		sb.WriteString("- " + k + ": " + entries[k] + "\n")
	}
}
