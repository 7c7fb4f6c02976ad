package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/semdoc/internal/chunker"
	"github.com/dshills/semdoc/internal/document"
	"github.com/dshills/semdoc/internal/logging"
	"github.com/dshills/semdoc/internal/storage"
)

var (
	// ErrIndexInProgress is returned when a directory run is already active
	ErrIndexInProgress = errors.New("indexing already in progress")
	// ErrEmptyURL is returned when a document is indexed without a URL
	ErrEmptyURL = errors.New("document url is required")
)

// DefaultExtensions are the file types picked up by IndexPath
var DefaultExtensions = []string{".md", ".txt", ".html", ".htm"}

// DefaultMaxFileSize skips files larger than 4 MiB
const DefaultMaxFileSize = 4 << 20

// Indexer coordinates the indexing pipeline: chunk -> fill -> store
type Indexer struct {
	chunker *chunker.Chunker
	filler  *document.Filler
	storage storage.Storage
	logger  *log.Logger

	lock IndexLock
}

// Config contains configuration for directory runs
type Config struct {
	Workers       int      // Number of concurrent files (default: runtime.NumCPU())
	Extensions    []string // File extensions to index (default: DefaultExtensions)
	MaxFileSize   int64    // Larger files are skipped (default: DefaultMaxFileSize)
	IncludeHidden bool     // Whether to descend into dot directories (default: false)
	Force         bool     // Re-index documents whose chunks are unchanged
}

// Statistics contains statistics about a directory run
type Statistics struct {
	FilesIndexed  int
	FilesSkipped  int
	FilesFailed   int
	ChunksCreated int
	Duration      time.Duration
	ErrorMessages []string
}

// Result describes a single indexed document
type Result struct {
	URL     string
	Chunks  int
	Skipped bool // content unchanged since the last run
}

// Option configures an Indexer
type Option func(*Indexer)

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(idx *Indexer) {
		idx.logger = l
	}
}

// New creates a new Indexer instance
func New(store storage.Storage, c *chunker.Chunker, filler *document.Filler, opts ...Option) *Indexer {
	if c == nil {
		c = chunker.New(chunker.DefaultMaxChars)
	}
	idx := &Indexer{
		chunker: c,
		filler:  filler,
		storage: store,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = logging.OrNop(idx.logger)
	return idx
}

// IndexDocument chunks text, fills summaries and embeddings, and persists the
// result under url. Documents whose chunks match what is already stored are
// skipped.
func (idx *Indexer) IndexDocument(ctx context.Context, url, text string) (*Result, error) {
	return idx.index(ctx, url, text, false)
}

// Reindex is IndexDocument without the unchanged-content check
func (idx *Indexer) Reindex(ctx context.Context, url, text string) (*Result, error) {
	return idx.index(ctx, url, text, true)
}

func (idx *Indexer) index(ctx context.Context, url, text string, force bool) (*Result, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}
	start := time.Now()

	chunks := idx.chunker.Chunk(text)

	if !force {
		unchanged, err := idx.unchanged(ctx, url, chunks)
		if err != nil {
			return nil, err
		}
		if unchanged {
			idx.logger.Debug().Str("url", url).Msg("document unchanged, skipping")
			return &Result{URL: url, Chunks: len(chunks), Skipped: true}, nil
		}
	}

	doc, err := document.New(url, chunks)
	if err != nil {
		return nil, err
	}

	tuple, err := idx.filler.ToStored(ctx, doc)
	if err != nil {
		return nil, err
	}

	if err := idx.storage.SaveDocument(ctx, tuple); err != nil {
		return nil, fmt.Errorf("failed to save document %s: %w", url, err)
	}

	idx.logger.Info().
		Str("url", url).
		Int("chunks", len(chunks)).
		Int("tokens", chunker.EstimateTokenCount(text)).
		Dur("duration", time.Since(start)).
		Msg("document indexed")

	return &Result{URL: url, Chunks: len(chunks)}, nil
}

// unchanged reports whether the stored document has exactly these chunks
func (idx *Indexer) unchanged(ctx context.Context, url string, chunks []document.Chunk) (bool, error) {
	existing, err := idx.storage.LoadDocument(ctx, url)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if len(existing.Chunks) != len(chunks) {
		return false, nil
	}
	for i, stored := range existing.Chunks {
		if stored.Range != chunks[i].Range() {
			return false, nil
		}
		if chunker.ComputeChunkHash(stored.Content) != chunker.ComputeChunkHash(chunks[i].Content()) {
			return false, nil
		}
	}
	return true, nil
}

// Get reconstructs a stored document
func (idx *Indexer) Get(ctx context.Context, url string) (*document.Document, error) {
	tuple, err := idx.storage.LoadDocument(ctx, url)
	if err != nil {
		return nil, err
	}
	return document.FromStored(tuple), nil
}

// Delete removes a stored document
func (idx *Indexer) Delete(ctx context.Context, url string) error {
	return idx.storage.DeleteDocument(ctx, url)
}

// IndexPath indexes every matching file below root. Files that fail are
// counted and reported in the statistics; the run continues with the rest.
// Only one IndexPath may run at a time per Indexer.
func (idx *Indexer) IndexPath(ctx context.Context, root string, config *Config) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexInProgress
	}
	defer idx.lock.Release()

	config = withDefaults(config)
	startTime := time.Now()

	files, err := discoverFiles(root, config)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	stats := &Statistics{ErrorMessages: make([]string, 0)}
	var (
		indexed int32
		skipped int32
		failed  int32
		chunks  int32
		mu      sync.Mutex // Protect stats.ErrorMessages
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)

	for _, path := range files {
		g.Go(func() error {
			res, err := idx.indexFile(gctx, path, config.Force)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", path, err))
				mu.Unlock()
				idx.logger.Warn().Err(err).Str("path", path).Msg("failed to index file")
				return nil
			}
			if res.Skipped {
				atomic.AddInt32(&skipped, 1)
				return nil
			}
			atomic.AddInt32(&indexed, 1)
			atomic.AddInt32(&chunks, int32(res.Chunks))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.FilesIndexed = int(indexed)
	stats.FilesSkipped = int(skipped)
	stats.FilesFailed = int(failed)
	stats.ChunksCreated = int(chunks)
	stats.Duration = time.Since(startTime)

	idx.logger.Info().
		Str("root", root).
		Int("indexed", stats.FilesIndexed).
		Int("skipped", stats.FilesSkipped).
		Int("failed", stats.FilesFailed).
		Dur("duration", stats.Duration).
		Msg("directory indexed")

	return stats, nil
}

func (idx *Indexer) indexFile(ctx context.Context, path string, force bool) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	u, err := FileURL(path)
	if err != nil {
		return nil, err
	}
	return idx.index(ctx, u, string(content), force)
}

func withDefaults(config *Config) *Config {
	c := Config{}
	if config != nil {
		c = *config
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if len(c.Extensions) == 0 {
		c.Extensions = DefaultExtensions
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	return &c
}

// discoverFiles finds all indexable files below root
func discoverFiles(root string, config *Config) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && !config.IncludeHidden && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !hasExtension(path, config.Extensions) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > config.MaxFileSize {
			return nil
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// FileURL returns the file:// URL for a local path
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String(), nil
}
