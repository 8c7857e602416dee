package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestNewManager_MemoryOnly(t *testing.T) {
	cfg := domain.DefaultAppSettings().Cache
	cfg.Persistent = false

	m, err := NewManager(cfg, "")
	require.NoError(t, err)
	assert.False(t, m.Persistent())

	m.Embeddings.Put("k", []float32{1}, 0)
	_, ok := m.Embeddings.Get("k")
	assert.False(t, ok)

	stats := m.Stats()
	require.Len(t, stats, 9)
	assert.Equal(t, "query", stats[0].Name)
	assert.Zero(t, stats[0].Capacity)
	assert.Equal(t, 2000, stats[1].Capacity)
	assert.Equal(t, 6*domain.DefaultCacheTTL, stats[1].TTL)
	assert.Equal(t, "disabled", stats[5].Tier)
}

func TestNewManager_Persistent(t *testing.T) {
	cfg := domain.DefaultAppSettings().Cache
	m, err := NewManager(cfg, t.TempDir())
	require.NoError(t, err)
	assert.True(t, m.Persistent())

	m.Embeddings.Put("k", []float32{1, 2}, 0)
	v, ok := m.Embeddings.Get("k")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, v)
}

func TestNewManager_BadCodec(t *testing.T) {
	cfg := domain.DefaultAppSettings().Cache
	cfg.Codec = "snappy"
	_, err := NewManager(cfg, t.TempDir())
	assert.Error(t, err)
}

func TestNewManager_FillsMissingTiers(t *testing.T) {
	m, err := NewManager(domain.CacheSettings{}, "")
	require.NoError(t, err)
	assert.Equal(t, 500, m.Answer.Stats().Capacity)
	assert.Equal(t, domain.DefaultCacheTTL, m.Answer.Stats().TTL)
}

func TestNewManager_QueryTierUnboundedByDefault(t *testing.T) {
	m, err := NewManager(domain.CacheSettings{}, "")
	require.NoError(t, err)

	for i := range 1500 {
		m.Query.Put(fmt.Sprintf("q%d", i), nil, 0)
	}
	assert.Equal(t, 1500, m.Query.Len())
	assert.Zero(t, m.Query.Stats().Evictions)
}

func TestNewManager_QueryTierCapacityIsOptIn(t *testing.T) {
	cfg := domain.DefaultAppSettings().Cache
	cfg.Persistent = false
	cfg.Tiers[domain.CacheTypeQuery] = domain.CacheTierSettings{Capacity: 10, TTL: time.Hour}

	m, err := NewManager(cfg, "")
	require.NoError(t, err)
	for i := range 20 {
		m.Query.Put(fmt.Sprintf("q%d", i), nil, 0)
	}
	assert.Equal(t, 10, m.Query.Len())
}

func TestManager_Clear(t *testing.T) {
	m, err := NewManager(domain.DefaultAppSettings().Cache, t.TempDir())
	require.NoError(t, err)

	m.Answer.Put("qa:doc:1", domain.Answer{Text: "a"}, 0)
	m.Reranker.Put("r", []float64{0.5}, 0)
	m.QueryResults.Put("qa:doc:1", domain.Answer{Text: "a"}, 0)

	n, err := m.Clear(domain.CacheTypeAnswer)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, m.Reranker.Len())

	n, err = m.Clear(domain.CacheTypeAll)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = m.Clear("bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestManager_InvalidateDocument(t *testing.T) {
	m, err := NewManager(domain.DefaultAppSettings().Cache, t.TempDir())
	require.NoError(t, err)

	m.Answer.Put(domain.AnswerKey("doc1", "q"), domain.Answer{Text: "a"}, 0)
	m.Answer.Put(domain.AnswerKey("doc2", "q"), domain.Answer{Text: "b"}, 0)
	m.QueryResults.Put(domain.AnswerKey("doc1", "q"), domain.Answer{Text: "a"}, time.Hour)
	m.Query.Put(domain.SearchKey("doc1", "q", 5), []domain.SearchResult{{Text: "x"}}, 0)
	m.ProcessedDocs.Put("doc1", []domain.Chunk{{Text: "x"}}, 0)

	assert.Equal(t, 4, m.InvalidateDocument("doc1"))
	_, ok := m.Answer.Get(domain.AnswerKey("doc2", "q"))
	assert.True(t, ok)
}

func TestManager_Sweep(t *testing.T) {
	clock := newFakeClock()
	m, err := NewManager(domain.DefaultAppSettings().Cache, t.TempDir(), WithClock(clock.Now))
	require.NoError(t, err)

	m.Query.Put(domain.SearchKey("doc1", "q", 5), []domain.SearchResult{{Text: "x"}}, 0)
	m.Embeddings.Put("e", []float32{1}, 0)
	m.QueryResults.Put(domain.AnswerKey("doc1", "q"), domain.Answer{Text: "a"}, 0)

	assert.Equal(t, 0, m.Sweep())

	// Past the query and query_results TTLs, inside the embeddings TTL.
	clock.Advance(24 * time.Hour)
	assert.Equal(t, 2, m.Sweep())

	_, ok := m.Embeddings.Get("e")
	assert.True(t, ok)
}

func TestManager_Sweep_MemoryOnly(t *testing.T) {
	cfg := domain.DefaultAppSettings().Cache
	cfg.Persistent = false
	m, err := NewManager(cfg, "")
	require.NoError(t, err)

	assert.Equal(t, 0, m.Sweep())
}
