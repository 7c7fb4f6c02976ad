// Package config loads semdoc configuration from defaults, an optional TOML
// or YAML file, and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Environment overrides
const (
	EnvDBPath             = "SEMDOC_DB_PATH"
	EnvStorageBackend     = "SEMDOC_STORAGE_BACKEND"
	EnvEmbeddingProvider  = "SEMDOC_EMBEDDING_PROVIDER"
	EnvSummarizerProvider = "SEMDOC_SUMMARIZER_PROVIDER"
	EnvLogLevel           = "SEMDOC_LOG_LEVEL"
	EnvLogFormat          = "SEMDOC_LOG_FORMAT"
	EnvFillWorkers        = "SEMDOC_FILL_WORKERS"
)

// ErrUnsupportedFormat is returned for config files that are neither TOML nor YAML
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Duration is a time.Duration written as a Go duration string ("30s") in config files
type Duration time.Duration

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalYAML parses a duration string from a YAML scalar
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete semdoc configuration
type Config struct {
	Storage    StorageConfig    `toml:"storage" yaml:"storage"`
	Embedding  EmbeddingConfig  `toml:"embedding" yaml:"embedding"`
	Summarizer SummarizerConfig `toml:"summarizer" yaml:"summarizer"`
	Fill       FillConfig       `toml:"fill" yaml:"fill"`
	Chunker    ChunkerConfig    `toml:"chunker" yaml:"chunker"`
	Search     SearchConfig     `toml:"search" yaml:"search"`
	Prompt     PromptConfig     `toml:"prompt" yaml:"prompt"`
	Logging    LoggingConfig    `toml:"logging" yaml:"logging"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Backend string `toml:"backend" yaml:"backend" validate:"oneof=sqlite bolt"`
	Path    string `toml:"path" yaml:"path" validate:"required"`
}

// EmbeddingConfig configures the embedding capability
type EmbeddingConfig struct {
	Provider          string   `toml:"provider" yaml:"provider" validate:"omitempty,oneof=jina openai gemini local"`
	APIKey            string   `toml:"api_key" yaml:"api_key"`
	Model             string   `toml:"model" yaml:"model"`
	BaseURL           string   `toml:"base_url" yaml:"base_url" validate:"omitempty,url"`
	Dimension         int      `toml:"dimension" yaml:"dimension" validate:"gte=0"`
	CacheSize         int      `toml:"cache_size" yaml:"cache_size" validate:"gte=0"`
	RequestsPerSecond float64  `toml:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
	Timeout           Duration `toml:"timeout" yaml:"timeout"`
}

// SummarizerConfig configures the summarization capability
type SummarizerConfig struct {
	Provider          string   `toml:"provider" yaml:"provider" validate:"omitempty,oneof=claude anthropic gemini openai local"`
	APIKey            string   `toml:"api_key" yaml:"api_key"`
	Model             string   `toml:"model" yaml:"model"`
	BaseURL           string   `toml:"base_url" yaml:"base_url" validate:"omitempty,url"`
	Instruction       string   `toml:"instruction" yaml:"instruction"`
	MaxTokens         int      `toml:"max_tokens" yaml:"max_tokens" validate:"gte=0"`
	MaxChars          int      `toml:"max_chars" yaml:"max_chars" validate:"gte=0"`
	RequestsPerSecond float64  `toml:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
	Timeout           Duration `toml:"timeout" yaml:"timeout"`
}

// FillConfig configures the lazy fill pipeline
type FillConfig struct {
	Workers int `toml:"workers" yaml:"workers" validate:"gte=1,lte=64"`
}

// ChunkerConfig configures paragraph chunking and directory indexing
type ChunkerConfig struct {
	MaxChars    int      `toml:"max_chars" yaml:"max_chars" validate:"gte=16"`
	Extensions  []string `toml:"extensions" yaml:"extensions" validate:"dive,startswith=."`
	MaxFileSize int64    `toml:"max_file_size" yaml:"max_file_size" validate:"gte=0"`
}

// SearchConfig configures the fragment searcher
type SearchConfig struct {
	DefaultMode string   `toml:"default_mode" yaml:"default_mode" validate:"oneof=hybrid vector keyword"`
	CacheSize   int      `toml:"cache_size" yaml:"cache_size" validate:"gte=1"`
	CacheTTL    Duration `toml:"cache_ttl" yaml:"cache_ttl"`
}

// PromptConfig configures the prompt marker scanner
type PromptConfig struct {
	Prefix string `toml:"prefix" yaml:"prefix" validate:"required"`
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `toml:"format" yaml:"format" validate:"oneof=console json"`
}

// DefaultDBPath returns ~/.semdoc/semdoc.db, or ./semdoc.db without a home directory
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "semdoc.db"
	}
	return filepath.Join(home, ".semdoc", "semdoc.db")
}

// NewDefaultConfig returns the built-in defaults
func NewDefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    DefaultDBPath(),
		},
		Embedding: EmbeddingConfig{
			CacheSize: 10000,
			Timeout:   Duration(30 * time.Second),
		},
		Summarizer: SummarizerConfig{
			Timeout: Duration(60 * time.Second),
		},
		Fill: FillConfig{
			Workers: 4,
		},
		Chunker: ChunkerConfig{
			MaxChars:    1500,
			Extensions:  []string{".md", ".txt", ".html", ".htm"},
			MaxFileSize: 4 << 20,
		},
		Search: SearchConfig{
			DefaultMode: "hybrid",
			CacheSize:   1000,
			CacheTTL:    Duration(time.Hour),
		},
		Prompt: PromptConfig{
			Prefix: "#$",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration: defaults, then the file at path (if any),
// then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		if err := mergeFile(config, path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// mergeFile decodes the file over config; the format follows the extension
func mergeFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if path := os.Getenv(EnvDBPath); path != "" {
		config.Storage.Path = path
	}
	if backend := os.Getenv(EnvStorageBackend); backend != "" {
		config.Storage.Backend = strings.ToLower(backend)
	}
	if provider := os.Getenv(EnvEmbeddingProvider); provider != "" {
		config.Embedding.Provider = strings.ToLower(provider)
	}
	if provider := os.Getenv(EnvSummarizerProvider); provider != "" {
		config.Summarizer.Provider = strings.ToLower(provider)
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if format := os.Getenv(EnvLogFormat); format != "" {
		config.Logging.Format = strings.ToLower(format)
	}
	if workers := os.Getenv(EnvFillWorkers); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			config.Fill.Workers = n
		}
	}
}

// Validate checks every field constraint
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the configuration as TOML or YAML, following the extension of path
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		data, err = toml.Marshal(c)
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
