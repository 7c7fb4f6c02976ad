package embedder

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/semdoc/internal/backoff"
)

func fastRetry() *backoff.Config {
	return &backoff.Config{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

// embeddingServer returns vectors of the given dimension whose first element is the input index
func embeddingServer(t *testing.T, dimension int, calls *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		data := make([]map[string]interface{}, len(body.Input))
		// Reverse order to exercise index handling
		for i := range body.Input {
			vec := make([]float32, dimension)
			vec[0] = float32(i)
			data[len(body.Input)-1-i] = map[string]interface{}{"index": i, "embedding": vec}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"model": body.Model, "data": data})
	}))
}

func TestHTTPProvider_GenerateBatch(t *testing.T) {
	var calls int32
	server := embeddingServer(t, 4, &calls)
	defer server.Close()

	p, err := NewOpenAIProvider(Options{APIKey: "test-key", BaseURL: server.URL + "/v1/", Dimension: 4, Retry: fastRetry()})
	require.NoError(t, err)
	defer p.Close()

	resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"a", "b", "c"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 3)
	for i, emb := range resp.Embeddings {
		assert.Equal(t, float32(i), emb.Vector[0])
		assert.Equal(t, 4, emb.Dimension)
	}
	assert.Equal(t, ProviderOpenAI, resp.Provider)
	assert.Equal(t, DefaultOpenAIModel, resp.Model)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPProvider_CacheHit(t *testing.T) {
	var calls int32
	server := embeddingServer(t, 4, &calls)
	defer server.Close()

	p, err := NewJinaProvider(Options{APIKey: "test-key", BaseURL: server.URL + "/v1", Cache: NewCache(10), Retry: fastRetry()})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello"})
	require.NoError(t, err)
	_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPProvider_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"index": 0, "embedding": []float32{1, 0}}},
		})
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(Options{APIKey: "test-key", BaseURL: server.URL, Retry: fastRetry()})
	require.NoError(t, err)

	emb, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, emb.Vector)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPProvider_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(Options{APIKey: "test-key", BaseURL: server.URL, Retry: fastRetry()})
	require.NoError(t, err)

	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPProvider_BatchTooLarge(t *testing.T) {
	p, err := NewOpenAIProvider(Options{APIKey: "test-key"})
	require.NoError(t, err)

	texts := make([]string, MaxBatchSize+1)
	for i := range texts {
		texts[i] = "t"
	}
	_, err = p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: texts})
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestLocalProvider(t *testing.T) {
	p, err := NewLocalProvider(Options{Dimension: 64})
	require.NoError(t, err)
	ctx := context.Background()

	a1, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "alpha"})
	require.NoError(t, err)
	a2, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "alpha"})
	require.NoError(t, err)
	b, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "beta"})
	require.NoError(t, err)

	assert.Equal(t, a1.Vector, a2.Vector, "deterministic")
	assert.NotEqual(t, a1.Vector, b.Vector)
	assert.Len(t, a1.Vector, 64)

	var sum float64
	for _, v := range a1.Vector {
		sum += float64(v * v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4, "unit length")

	batch, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"alpha", "beta"}})
	require.NoError(t, err)
	assert.Equal(t, a1.Vector, batch.Embeddings[0].Vector)
}

func TestNormalizeVector(t *testing.T) {
	assert.Equal(t, []float32{0, 0}, NormalizeVector([]float32{0, 0}))

	got := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.8, got[1], 1e-6)
}
