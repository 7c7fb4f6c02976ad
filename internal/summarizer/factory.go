package summarizer

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// EnvProvider selects the summarization provider when no explicit configuration is given
const EnvProvider = "SEMDOC_SUMMARIZER_PROVIDER"

// Config holds summarizer configuration
type Config struct {
	Provider          string
	APIKey            string
	Model             string
	BaseURL           string
	Instruction       string
	MaxTokens         int
	MaxChars          int
	RequestsPerSecond float64
	Timeout           time.Duration
}

// New creates a summarizer with explicit configuration
func New(ctx context.Context, cfg Config) (Summarizer, error) {
	opts := Options{
		APIKey:            cfg.APIKey,
		Model:             cfg.Model,
		BaseURL:           cfg.BaseURL,
		Instruction:       cfg.Instruction,
		MaxTokens:         cfg.MaxTokens,
		MaxChars:          cfg.MaxChars,
		Timeout:           cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderClaude, "anthropic":
		return NewClaudeProvider(opts)
	case ProviderGemini:
		return NewGeminiProvider(ctx, opts)
	case ProviderOpenAI:
		return NewOpenAIProvider(opts)
	case ProviderLocal, "":
		return NewLocalProvider(opts), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider returns the provider that would be used based on current environment.
// SEMDOC_SUMMARIZER_PROVIDER wins; otherwise the first API key found among
// ANTHROPIC_API_KEY, GEMINI_API_KEY and OPENAI_API_KEY; otherwise local.
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}

	if os.Getenv(EnvAnthropicAPIKey) != "" {
		return ProviderClaude
	}
	if os.Getenv(EnvGeminiAPIKey) != "" {
		return ProviderGemini
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}

	return ProviderLocal
}

// NewFromEnv creates a summarizer based on environment variables
func NewFromEnv(ctx context.Context) (Summarizer, error) {
	return New(ctx, Config{Provider: DetectProvider()})
}
