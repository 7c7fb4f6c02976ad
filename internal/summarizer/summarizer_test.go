package summarizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
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

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("short text is returned whole", func(t *testing.T) {
		s := NewLocalProvider(Options{})
		got, err := s.Summarize(ctx, "A short   note.\n")
		require.NoError(t, err)
		assert.Equal(t, "A short note.", got)
	})

	t.Run("keeps leading sentences", func(t *testing.T) {
		s := NewLocalProvider(Options{MaxChars: 30})
		got, err := s.Summarize(ctx, "First sentence. Second one here. Third sentence is long.")
		require.NoError(t, err)
		assert.Equal(t, "First sentence.", got)
	})

	t.Run("cuts long sentence at word boundary", func(t *testing.T) {
		s := NewLocalProvider(Options{MaxChars: 12})
		got, err := s.Summarize(ctx, "alpha beta gamma delta")
		require.NoError(t, err)
		assert.Equal(t, "alpha beta", got)
	})

	t.Run("empty text", func(t *testing.T) {
		s := NewLocalProvider(Options{})
		_, err := s.Summarize(ctx, "  \n\t")
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewLocalProvider(Options{}).Summarize(cctx, "text")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func chatServer(t *testing.T, calls *int32, failures int32, reply string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if n <= failures {
			http.Error(w, "busy", http.StatusTooManyRequests)
			return
		}

		var body struct {
			Messages []map[string]string `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0]["role"])
			assert.Equal(t, "user", body.Messages[1]["role"])
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": reply}},
			},
		})
	}))
}

func TestOpenAIProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("returns trimmed summary", func(t *testing.T) {
		var calls int32
		server := chatServer(t, &calls, 0, "  A document about tests.\n")
		defer server.Close()

		s, err := NewOpenAIProvider(Options{APIKey: "test-key", BaseURL: server.URL, Retry: fastRetry()})
		require.NoError(t, err)

		got, err := s.Summarize(ctx, "some text")
		require.NoError(t, err)
		assert.Equal(t, "A document about tests.", got)
	})

	t.Run("retries throttling", func(t *testing.T) {
		var calls int32
		server := chatServer(t, &calls, 2, "ok")
		defer server.Close()

		s, err := NewOpenAIProvider(Options{APIKey: "test-key", BaseURL: server.URL, Retry: fastRetry()})
		require.NoError(t, err)

		got, err := s.Summarize(ctx, "some text")
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("empty reply is an error", func(t *testing.T) {
		var calls int32
		server := chatServer(t, &calls, 0, "   ")
		defer server.Close()

		s, err := NewOpenAIProvider(Options{APIKey: "test-key", BaseURL: server.URL, Retry: fastRetry()})
		require.NoError(t, err)

		_, err = s.Summarize(ctx, "some text")
		assert.ErrorIs(t, err, ErrEmptySummary)
	})

	t.Run("unauthorized is not retried", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			http.Error(w, "no", http.StatusUnauthorized)
		}))
		defer server.Close()

		s, err := NewOpenAIProvider(Options{APIKey: "test-key", BaseURL: server.URL, Retry: fastRetry()})
		require.NoError(t, err)

		_, err = s.Summarize(ctx, "some text")
		assert.ErrorIs(t, err, ErrProviderFailed)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{name: "explicit", env: map[string]string{EnvProvider: "Gemini"}, expected: ProviderGemini},
		{name: "anthropic key", env: map[string]string{EnvAnthropicAPIKey: "k", EnvOpenAIAPIKey: "k"}, expected: ProviderClaude},
		{name: "gemini key", env: map[string]string{EnvGeminiAPIKey: "k"}, expected: ProviderGemini},
		{name: "openai key", env: map[string]string{EnvOpenAIAPIKey: "k"}, expected: ProviderOpenAI},
		{name: "fallback", expected: ProviderLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{EnvProvider, EnvAnthropicAPIKey, EnvGeminiAPIKey, EnvOpenAIAPIKey} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.expected, DetectProvider())
		})
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	t.Setenv(EnvAnthropicAPIKey, "")

	s, err := New(ctx, Config{})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, s.Provider())

	_, err = New(ctx, Config{Provider: "claude"})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)

	c, err := New(ctx, Config{Provider: "anthropic", APIKey: "k", Model: "custom"})
	require.NoError(t, err)
	assert.Equal(t, ProviderClaude, c.Provider())
	assert.Equal(t, "custom", c.Model())

	_, err = New(ctx, Config{Provider: "nope"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestLeadingSentences(t *testing.T) {
	assert.Equal(t, "Is it? Yes!", leadingSentences("Is it? Yes! And more text follows here.", 15))
	assert.Equal(t, "v1.2 is", leadingSentences("v1.2 is the version", 8))
	assert.True(t, strings.HasPrefix("héllo wörld", leadingSentences("héllo wörld", 3)))
}
