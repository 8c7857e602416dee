package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestClient_PostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/echo", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["say"]})
	}))
	defer server.Close()

	c := New(Options{
		Name:    "test",
		BaseURL: server.URL + "/v1/",
		Header:  map[string]string{"Authorization": "Bearer secret"},
	})

	var out map[string]string
	err := c.PostJSON(context.Background(), "/echo", map[string]string{"say": "hi"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "hi", out["echo"])
	assert.Equal(t, server.URL+"/v1", c.BaseURL())
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, domain.ErrAuthInvalid},
		{http.StatusForbidden, domain.ErrForbidden},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusGatewayTimeout, domain.ErrProviderTimeout},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.code)
			}))
			defer server.Close()

			err := New(Options{Name: "test", BaseURL: server.URL}).Get(context.Background(), "/", nil)

			require.ErrorIs(t, err, tt.want)
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, "nope", se.Body)
		})
	}
}

func TestClient_ServerErrorHasNoSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := New(Options{Name: "test", BaseURL: server.URL}).Get(context.Background(), "/", nil)

	require.Error(t, err)
	assert.Equal(t, "test: API returned status 500", err.Error())
	assert.Equal(t, domain.ErrorClassUnknown, domain.ClassifyError(err))
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := New(Options{Name: "test", BaseURL: server.URL}).Get(ctx, "/", nil)

	require.ErrorIs(t, err, domain.ErrProviderTimeout)
	assert.Equal(t, domain.ErrorClassNetwork, domain.ClassifyError(err))
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	c := New(Options{Name: "test", BaseURL: server.URL, RequestsPerSecond: 0.001})
	require.NoError(t, c.Get(context.Background(), "/", nil))

	// The bucket is empty and the next token is far away.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.Get(ctx, "/", nil)

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	var out map[string]any
	err := New(Options{Name: "test", BaseURL: server.URL}).Get(context.Background(), "/", &out)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}
