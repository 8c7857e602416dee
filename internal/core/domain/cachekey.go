package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// CacheKeyLength is the number of hex characters in a derived cache key.
const CacheKeyLength = 32

// CacheKey derives a cache key from fields. encoding/json sorts map keys, so
// the same fields always hash to the same key regardless of insertion order.
func CacheKey(fields map[string]any) string {
	data, err := json.Marshal(fields)
	if err != nil {
		// Unmarshalable values (channels, funcs) fall back to their printed form.
		data = []byte(strings.Join(flatten(fields), "\x00"))
	}
	return HashBytes(data)
}

// HashText returns the truncated sha256 hex digest of s.
func HashText(s string) string {
	return HashBytes([]byte(s))
}

// HashBytes returns the truncated sha256 hex digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:CacheKeyLength]
}

// NormaliseQuestion lower-cases q, trims it and collapses internal whitespace
// so trivially different phrasings share a cache entry.
func NormaliseQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// AnswerKey is the answer cache key for a question against a document.
func AnswerKey(docID, question string) string {
	return AnswerScope(docID) + HashText(NormaliseQuestion(question))
}

// AnswerScope is the invalidation scope covering every answer for a document.
func AnswerScope(docID string) string {
	return "qa:" + docID + ":"
}

// SearchKey is the search result cache key for a question against a document.
func SearchKey(docID, question string, k int) string {
	return SearchScope(docID) + CacheKey(map[string]any{"q": NormaliseQuestion(question), "k": k})
}

// SearchScope is the invalidation scope covering every search result for a document.
func SearchScope(docID string) string {
	return "search:" + docID + ":"
}

// RerankKey is the reranker score cache key for a question and ordered texts.
func RerankKey(model, question string, texts []string) string {
	return CacheKey(map[string]any{"model": model, "q": NormaliseQuestion(question), "texts": texts})
}

// EmbeddingKey is the embedding cache key for a text under a model.
func EmbeddingKey(model, text string) string {
	return CacheKey(map[string]any{"model": model, "text": text})
}

func flatten(fields map[string]any) []string {
	out := make([]string, 0, len(fields))
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			b = []byte("?")
		}
		out = append(out, k+"="+string(b))
	}
	sort.Strings(out)
	return out
}
