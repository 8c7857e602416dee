package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestCacheStatsCmd_Table(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.cacheStats = []domain.CacheStats{
		{Name: "answer", Tier: "memory", Entries: 4, Hits: 3, Misses: 1, Evictions: 1, Expired: 2},
		{Name: "embeddings", Tier: "disk", Entries: 100, Errors: 1},
	}

	out, _, err := executeCommand(t, "", "cache", "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "CACHE")
	assert.Contains(t, out, "answer")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "embeddings")
}

func TestCacheStatsCmd_JSON(t *testing.T) {
	ts := setupTestServices(t)
	ts.retrieval.cacheStats = []domain.CacheStats{{Name: "query", Tier: "memory"}}

	out, _, err := executeCommand(t, "", "cache", "stats", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"name": "query"`)
}

func TestCacheClearCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want domain.CacheType
	}{
		{"default clears all", nil, domain.CacheTypeAll},
		{"one tier", []string{"answer"}, domain.CacheTypeAnswer},
		{"case insensitive", []string{"EMBEDDINGS"}, domain.CacheTypeEmbeddings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServices(t)
			var got domain.CacheType
			ts.retrieval.clearFunc = func(_ context.Context, typ domain.CacheType) (int, error) {
				got = typ
				return 5, nil
			}

			out, _, err := executeCommand(t, "", append([]string{"cache", "clear"}, tt.args...)...)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out, "Cleared 5 entries from "+string(tt.want)+" cache")
		})
	}
}

func TestCacheClearCmd_UnknownType(t *testing.T) {
	setupTestServices(t)

	_, _, err := executeCommand(t, "", "cache", "clear", "bogus")

	assert.EqualError(t, err, `unknown cache type "bogus"`)
}
