package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adiirockstar/trial-matthew-schramm/internal/core/domain"
)

func newTestService(t *testing.T, handler http.HandlerFunc, cfg Config) *EmbeddingService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL + "/v1"
	svc, err := NewEmbeddingService(cfg)
	require.NoError(t, err)
	return svc
}

func TestNewEmbeddingService(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		_, err := NewEmbeddingService(Config{})
		assert.ErrorIs(t, err, domain.ErrConfigMissing)
	})

	t.Run("dimensions from model", func(t *testing.T) {
		tests := []struct {
			model string
			want  int
		}{
			{"", 1536},
			{"text-embedding-3-large", 3072},
			{"text-embedding-ada-002", 1536},
			{"custom-model", 1536},
		}
		for _, tt := range tests {
			svc, err := NewEmbeddingService(Config{APIKey: "k", Model: tt.model})
			require.NoError(t, err)
			assert.Equal(t, tt.want, svc.Dimensions(), tt.model)
		}
	})

	t.Run("explicit dimensions win", func(t *testing.T) {
		svc, err := NewEmbeddingService(Config{APIKey: "k", Dimensions: 512})
		require.NoError(t, err)
		assert.Equal(t, 512, svc.Dimensions())
		assert.Equal(t, DefaultModel, svc.ModelName())
		assert.NoError(t, svc.Close())
	})
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req["model"])
		assert.Equal(t, float64(1536), req["dimensions"])
		assert.Len(t, req["input"], 3)

		// Deliberately out of order.
		fmt.Fprint(w, `{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":2,"embedding":[0.3]},
			{"object":"embedding","index":0,"embedding":[0.1]},
			{"object":"embedding","index":1,"embedding":[0.2]}
		]}`)
	}, Config{})

	got, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1}, {0.2}, {0.3}}, got)
}

func TestEmbedBatch_Empty(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "k"})
	require.NoError(t, err)

	got, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEmbedBatch_MissingResult(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1]}]}`)
	}, Config{})

	_, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedding returned for input 1")
}

func TestEmbed_Single(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,2,3]}]}`)
	}, Config{})

	got, err := svc.Embed(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, got)
}

func TestEmbed_Errors(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"Rate limit reached","type":"requests"}}`)
		}, Config{})

		_, err := svc.Embed(context.Background(), "x")
		assert.ErrorIs(t, err, domain.ErrRateLimited)
	})

	t.Run("server error", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
		}, Config{})

		_, err := svc.Embed(context.Background(), "x")
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		fmt.Fprint(w, `{"object":"list","data":[]}`)
	}, Config{})

	assert.NoError(t, svc.Ping(context.Background()))
}

func TestNewLimiter(t *testing.T) {
	unlimited := newLimiter(0)
	assert.True(t, unlimited.Allow())
	assert.True(t, unlimited.Allow())

	paced := newLimiter(60)
	assert.Equal(t, 1, paced.Burst())
	assert.True(t, paced.Allow())
	assert.False(t, paced.Allow())

	assert.Equal(t, 50, newLimiter(3000).Burst())
}
