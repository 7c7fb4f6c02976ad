// Package app wires configuration into the storage, capability, indexing
// and search components shared by the CLI and the MCP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/phuslu/log"

	"github.com/dshills/semdoc/internal/catalog"
	"github.com/dshills/semdoc/internal/chunker"
	"github.com/dshills/semdoc/internal/config"
	"github.com/dshills/semdoc/internal/document"
	"github.com/dshills/semdoc/internal/embedder"
	"github.com/dshills/semdoc/internal/indexer"
	"github.com/dshills/semdoc/internal/logging"
	"github.com/dshills/semdoc/internal/prompt"
	"github.com/dshills/semdoc/internal/searcher"
	"github.com/dshills/semdoc/internal/storage"
	"github.com/dshills/semdoc/internal/summarizer"
)

// App holds the long-lived components of a semdoc process
type App struct {
	Config     *config.Config
	Logger     *log.Logger
	Storage    storage.Storage
	Embedder   embedder.Embedder
	Summarizer summarizer.Summarizer
	Indexer    *indexer.Indexer
	Searcher   *searcher.Searcher
	Scanner    *prompt.Scanner
	Catalog    *catalog.Catalog
}

// New builds every component from cfg. The embedder is shared by the
// indexer and the searcher so both use one cache and one vector space.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	logger = logging.OrNop(logger)

	if err := ensureDir(cfg.Storage.Path); err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := newEmbedder(ctx, cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	sum, err := newSummarizer(ctx, cfg)
	if err != nil {
		_ = emb.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize summarizer: %w", err)
	}

	cat, err := catalog.Default()
	if err != nil {
		_ = sum.Close()
		_ = emb.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	filler := document.NewFiller(sum, emb,
		document.WithWorkers(cfg.Fill.Workers),
		document.WithLogger(logger),
	)

	logger.Info().
		Str("backend", cfg.Storage.Backend).
		Str("path", cfg.Storage.Path).
		Str("embedder", emb.Provider()+"/"+emb.Model()).
		Str("summarizer", sum.Provider()+"/"+sum.Model()).
		Msg("semdoc initialized")

	return &App{
		Config:     cfg,
		Logger:     logger,
		Storage:    store,
		Embedder:   emb,
		Summarizer: sum,
		Indexer:    indexer.New(store, chunker.New(cfg.Chunker.MaxChars), filler, indexer.WithLogger(logger)),
		Searcher:   searcher.NewSearcher(store, emb, searcher.WithCacheSize(cfg.Search.CacheSize), searcher.WithLogger(logger)),
		Scanner:    prompt.New(cfg.Prompt.Prefix),
		Catalog:    cat,
	}, nil
}

// IndexConfig returns the directory indexing settings from the configuration
func (a *App) IndexConfig(force bool) *indexer.Config {
	return &indexer.Config{
		Workers:     a.Config.Fill.Workers,
		Extensions:  a.Config.Chunker.Extensions,
		MaxFileSize: a.Config.Chunker.MaxFileSize,
		Force:       force,
	}
}

// Close releases every component
func (a *App) Close() error {
	return errors.Join(a.Summarizer.Close(), a.Embedder.Close(), a.Storage.Close())
}

func newEmbedder(ctx context.Context, cfg *config.Config) (embedder.Embedder, error) {
	provider := cfg.Embedding.Provider
	if provider == "" {
		provider = embedder.DetectProvider()
	}
	return embedder.New(ctx, embedder.Config{
		Provider:          provider,
		APIKey:            cfg.Embedding.APIKey,
		Model:             cfg.Embedding.Model,
		BaseURL:           cfg.Embedding.BaseURL,
		Dimension:         cfg.Embedding.Dimension,
		CacheSize:         cfg.Embedding.CacheSize,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Timeout:           cfg.Embedding.Timeout.Std(),
	})
}

func newSummarizer(ctx context.Context, cfg *config.Config) (summarizer.Summarizer, error) {
	provider := cfg.Summarizer.Provider
	if provider == "" {
		provider = summarizer.DetectProvider()
	}
	return summarizer.New(ctx, summarizer.Config{
		Provider:          provider,
		APIKey:            cfg.Summarizer.APIKey,
		Model:             cfg.Summarizer.Model,
		BaseURL:           cfg.Summarizer.BaseURL,
		Instruction:       cfg.Summarizer.Instruction,
		MaxTokens:         cfg.Summarizer.MaxTokens,
		MaxChars:          cfg.Summarizer.MaxChars,
		RequestsPerSecond: cfg.Summarizer.RequestsPerSecond,
		Timeout:           cfg.Summarizer.Timeout.Std(),
	})
}

func ensureDir(dbPath string) error {
	if dbPath == "" || dbPath == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}
