package crossencoder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestReranker_Score_RestoresInputOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rerank", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "question", req.Query)
		assert.Equal(t, "bge", req.Model)

		// TEI returns results sorted by score.
		_, _ = w.Write([]byte(`[{"index":2,"score":0.9},{"index":0,"score":0.5},{"index":1,"score":0.1}]`))
	}))
	defer server.Close()

	r, err := New(Config{BaseURL: server.URL, Model: "bge", APIKey: "key"})
	require.NoError(t, err)

	scores, err := r.Score(context.Background(), "question", []string{"a", "b", "c"})

	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.1, 0.9}, scores)
	assert.Equal(t, "bge", r.ModelName())
}

func TestReranker_Score_InvalidResults(t *testing.T) {
	tests := map[string]string{
		"missing":   `[{"index":0,"score":0.5}]`,
		"duplicate": `[{"index":0,"score":0.5},{"index":0,"score":0.4}]`,
		"range":     `[{"index":0,"score":0.5},{"index":7,"score":0.4}]`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			r, err := New(Config{BaseURL: server.URL})
			require.NoError(t, err)

			_, err = r.Score(context.Background(), "q", []string{"a", "b"})
			assert.Error(t, err)
		})
	}
}

func TestReranker_Score_Unauthorised(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	r, err := New(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = r.Score(context.Background(), "q", []string{"a"})
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	assert.Equal(t, "cross-encoder", r.ModelName())
}
