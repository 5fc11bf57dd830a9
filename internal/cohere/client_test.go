package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClientWithConfig(Config{APIKey: "test-key", BaseURL: server.URL})
	return server, client
}

func TestClient_Rerank(t *testing.T) {
	ctx := context.Background()

	t.Run("maps scores back to input order", func(t *testing.T) {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/rerank", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req rerankRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, DefaultRerankModel, req.Model)
			assert.Equal(t, "leave policy", req.Query)
			require.Len(t, req.Documents, 3)

			// Results arrive sorted by relevance, not input order.
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{"index": 2, "relevance_score": 0.97},
					{"index": 0, "relevance_score": 0.41},
					{"index": 1, "relevance_score": 0.12},
				},
			})
		})

		scores, err := client.Rerank(ctx, "leave policy", []string{"a", "b", "c"})
		require.NoError(t, err)
		assert.Equal(t, []float64{0.41, 0.12, 0.97}, scores)
	})

	t.Run("empty documents are rejected without a request", func(t *testing.T) {
		called := false
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		_, err := client.Rerank(ctx, "query", nil)
		assert.ErrorIs(t, err, ErrNoDocuments)
		assert.False(t, called)
	})

	t.Run("non-200 responses surface the status", func(t *testing.T) {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		})

		_, err := client.Rerank(ctx, "query", []string{"a"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("missing scores fail with score mismatch", func(t *testing.T) {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{"index": 0, "relevance_score": 0.9},
				},
			})
		})

		_, err := client.Rerank(ctx, "query", []string{"a", "b"})
		assert.ErrorIs(t, err, ErrScoreMismatch)
	})

	t.Run("out of range index is rejected", func(t *testing.T) {
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"results": []map[string]any{
					{"index": 5, "relevance_score": 0.9},
				},
			})
		})

		_, err := client.Rerank(ctx, "query", []string{"a"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})
}

func TestNewClientFromEnv(t *testing.T) {
	t.Setenv("COHERE_API_KEY", "")
	_, err := NewClientFromEnv()
	assert.ErrorIs(t, err, ErrNoAPIKey)

	t.Setenv("COHERE_API_KEY", "co-test")
	client, err := NewClientFromEnv()
	require.NoError(t, err)
	assert.NotNil(t, client)
}
