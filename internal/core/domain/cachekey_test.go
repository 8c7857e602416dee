package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey(map[string]any{"q": "grace period", "k": 5, "doc": "abc"})
	b := CacheKey(map[string]any{"doc": "abc", "k": 5, "q": "grace period"})
	c := CacheKey(map[string]any{"doc": "abc", "k": 6, "q": "grace period"})

	assert.Len(t, a, CacheKeyLength)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCacheKey_UnmarshalableFallsBack(t *testing.T) {
	k := CacheKey(map[string]any{"f": func() {}})
	assert.Len(t, k, CacheKeyLength)
}

func TestNormaliseQuestion(t *testing.T) {
	assert.Equal(t, "what is the grace period?", NormaliseQuestion("  What IS\tthe \n grace   period? "))
	assert.Equal(t, "", NormaliseQuestion("   "))
}

func TestAnswerKey(t *testing.T) {
	k1 := AnswerKey("doc1", "What is the grace period?")
	k2 := AnswerKey("doc1", "  what is the   GRACE period?")

	assert.Equal(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1, AnswerScope("doc1")))
	assert.NotEqual(t, k1, AnswerKey("doc2", "What is the grace period?"))
}

func TestSearchKey(t *testing.T) {
	k := SearchKey("doc1", "Room rent?", 35)
	assert.True(t, strings.HasPrefix(k, SearchScope("doc1")))
	assert.NotEqual(t, k, SearchKey("doc1", "Room rent?", 40))
}

func TestRerankKey_OrderMatters(t *testing.T) {
	a := RerankKey("m", "q", []string{"x", "y"})
	b := RerankKey("m", "q", []string{"y", "x"})
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, RerankKey("m", " Q ", []string{"x", "y"}))
}
