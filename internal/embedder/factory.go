package embedder

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// EnvProvider selects the embedding provider when no explicit configuration is given
const EnvProvider = "SEMDOC_EMBEDDING_PROVIDER"

// Config holds embedder configuration
type Config struct {
	Provider          string
	APIKey            string
	Model             string
	BaseURL           string
	Dimension         int
	CacheSize         int // 0 disables the cache
	RequestsPerSecond float64
	Timeout           time.Duration
}

// New creates an embedder with explicit configuration
func New(ctx context.Context, cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	opts := Options{
		APIKey:            cfg.APIKey,
		Model:             cfg.Model,
		BaseURL:           cfg.BaseURL,
		Dimension:         cfg.Dimension,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Cache:             cache,
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderJina:
		return NewJinaProvider(opts)
	case ProviderOpenAI:
		return NewOpenAIProvider(opts)
	case ProviderGemini:
		return NewGeminiProvider(ctx, opts)
	case ProviderLocal, "":
		return NewLocalProvider(opts)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// NewFromEnv creates an embedder based on environment variables
// Priority:
// 1. SEMDOC_EMBEDDING_PROVIDER (jina, openai, gemini, local)
// 2. Check for API keys: JINA_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY
// 3. Default to local if no API keys found
func NewFromEnv(ctx context.Context) (Embedder, error) {
	return New(ctx, Config{
		Provider:  DetectProvider(),
		CacheSize: DefaultCacheSize,
	})
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	provider := os.Getenv(EnvProvider)
	if provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	if os.Getenv(EnvGeminiAPIKey) != "" {
		return ProviderGemini
	}

	return ProviderLocal
}
