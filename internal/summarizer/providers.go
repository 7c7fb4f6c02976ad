package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/dshills/semdoc/internal/backoff"
)

// Provider configuration
const (
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	DefaultClaudeModel = "claude-haiku-4-5"
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultLocalModel  = "leading-sentences"

	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	DefaultMaxTokens = 256
	DefaultMaxChars  = 280
	DefaultTimeout   = 60 * time.Second

	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
)

func apiKey(opts Options, env string) (string, error) {
	if opts.APIKey != "" {
		return opts.APIKey, nil
	}
	if key := os.Getenv(env); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, env)
}

// ClaudeProvider summarizes with the Anthropic Messages API
type ClaudeProvider struct {
	client      anthropic.Client
	model       string
	instruction string
	maxTokens   int
	limiter     *rate.Limiter
	retry       backoff.Config
}

// NewClaudeProvider creates a Claude summarizer
func NewClaudeProvider(opts Options) (*ClaudeProvider, error) {
	key, err := apiKey(opts, EnvAnthropicAPIKey)
	if err != nil {
		return nil, err
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(key), option.WithMaxRetries(0)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}

	model := opts.Model
	if model == "" {
		model = DefaultClaudeModel
	}

	return &ClaudeProvider{
		client:      anthropic.NewClient(reqOpts...),
		model:       model,
		instruction: opts.instruction(),
		maxTokens:   opts.maxTokens(),
		limiter:     newLimiter(opts.RequestsPerSecond),
		retry:       opts.retryConfig(),
	}, nil
}

func (c *ClaudeProvider) Summarize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyText
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
		System: []anthropic.TextBlockParam{
			{Text: c.instruction},
		},
	}

	resp, err := backoff.Retry(ctx, c.retry, func() (*anthropic.Message, error) {
		if err := wait(ctx, c.limiter); err != nil {
			return nil, err
		}
		return c.client.Messages.New(ctx, params)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrProviderFailed, ProviderClaude, err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return checkSummary(out.String())
}

func (c *ClaudeProvider) Provider() string { return ProviderClaude }
func (c *ClaudeProvider) Model() string    { return c.model }
func (c *ClaudeProvider) Close() error     { return nil }

// GeminiProvider summarizes with the Gemini API
type GeminiProvider struct {
	client      *genai.Client
	model       string
	instruction string
	maxTokens   int
	limiter     *rate.Limiter
	retry       backoff.Config
}

// NewGeminiProvider creates a Gemini summarizer
func NewGeminiProvider(ctx context.Context, opts Options) (*GeminiProvider, error) {
	key, err := apiKey(opts, EnvGeminiAPIKey)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	return &GeminiProvider{
		client:      client,
		model:       model,
		instruction: opts.instruction(),
		maxTokens:   opts.maxTokens(),
		limiter:     newLimiter(opts.RequestsPerSecond),
		retry:       opts.retryConfig(),
	}, nil
}

func (g *GeminiProvider) Summarize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyText
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.instruction, genai.RoleUser),
		MaxOutputTokens:   int32(g.maxTokens),
	}

	resp, err := backoff.Retry(ctx, g.retry, func() (*genai.GenerateContentResponse, error) {
		if err := wait(ctx, g.limiter); err != nil {
			return nil, err
		}
		return g.client.Models.GenerateContent(ctx, g.model, contents, config)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrProviderFailed, ProviderGemini, err)
	}

	var out strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			out.WriteString(part.Text)
		}
		break
	}
	return checkSummary(out.String())
}

func (g *GeminiProvider) Provider() string { return ProviderGemini }
func (g *GeminiProvider) Model() string    { return g.model }
func (g *GeminiProvider) Close() error     { return nil }

// OpenAIProvider summarizes with an OpenAI-compatible /chat/completions endpoint
type OpenAIProvider struct {
	endpoint    string
	apiKey      string
	model       string
	instruction string
	maxTokens   int
	httpClient  *http.Client
	limiter     *rate.Limiter
	retry       backoff.Config
}

// NewOpenAIProvider creates an OpenAI-compatible summarizer
func NewOpenAIProvider(opts Options) (*OpenAIProvider, error) {
	key, err := apiKey(opts, EnvOpenAIAPIKey)
	if err != nil {
		return nil, err
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &OpenAIProvider{
		endpoint:    strings.TrimRight(baseURL, "/") + "/chat/completions",
		apiKey:      key,
		model:       model,
		instruction: opts.instruction(),
		maxTokens:   opts.maxTokens(),
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     newLimiter(opts.RequestsPerSecond),
		retry:       opts.retryConfig(),
	}, nil
}

func (o *OpenAIProvider) Summarize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", ErrEmptyText
	}

	summary, err := backoff.Retry(ctx, o.retry, func() (string, error) {
		if err := wait(ctx, o.limiter); err != nil {
			return "", err
		}
		return o.callAPI(ctx, text)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrProviderFailed, ProviderOpenAI, err)
	}
	return checkSummary(summary)
}

func (o *OpenAIProvider) callAPI(ctx context.Context, text string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      o.model,
		"max_tokens": o.maxTokens,
		"messages": []map[string]string{
			{"role": "system", "content": o.instruction},
			{"role": "user", "content": text},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		apiErr := fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", backoff.Permanent(apiErr)
		}
		return "", apiErr
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", nil
	}
	return apiResp.Choices[0].Message.Content, nil
}

func (o *OpenAIProvider) Provider() string { return ProviderOpenAI }
func (o *OpenAIProvider) Model() string    { return o.model }

func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider "summarizes" by keeping the leading sentences of the text.
// It needs no model and is deterministic, which keeps the store usable offline.
type LocalProvider struct {
	maxChars int
}

// NewLocalProvider creates a local summarizer
func NewLocalProvider(opts Options) *LocalProvider {
	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &LocalProvider{maxChars: maxChars}
}

func (l *LocalProvider) Summarize(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", ErrEmptyText
	}
	return leadingSentences(text, l.maxChars), nil
}

func (l *LocalProvider) Provider() string { return ProviderLocal }
func (l *LocalProvider) Model() string    { return DefaultLocalModel }
func (l *LocalProvider) Close() error     { return nil }

// leadingSentences returns whole sentences from the start of text up to maxChars bytes.
// When the first sentence alone is too long it is cut at a word boundary.
func leadingSentences(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}

	end := 0
	for i, r := range text {
		if i >= maxChars {
			break
		}
		if (r == '.' || r == '!' || r == '?') && (i+1 == len(text) || unicode.IsSpace(rune(text[i+1]))) {
			end = i + 1
		}
	}
	if end > 0 {
		return text[:end]
	}

	cut := strings.LastIndexByte(text[:maxChars], ' ')
	if cut <= 0 {
		cut = maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
	}
	return text[:cut]
}
