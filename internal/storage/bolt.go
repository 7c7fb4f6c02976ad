package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/dshills/semdoc/pkg/types"
)

var (
	bucketDocuments = []byte("documents")
	bucketMeta      = []byte("meta")
	keyDimension    = []byte(settingDimension)
)

// BoltStorage implements the Storage interface on a single bbolt file.
// Each document is one JSON record keyed by URL; searches scan every record.
type BoltStorage struct {
	db   *bbolt.DB
	path string
}

// boltRecord is the value stored per document
type boltRecord struct {
	Tuple     types.StoredTuple `json:"tuple"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewBoltStorage opens or creates a bbolt store at path
func NewBoltStorage(path string) (*BoltStorage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketDocuments); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStorage{db: db, path: path}, nil
}

// Close closes the database file
func (b *BoltStorage) Close() error {
	return b.db.Close()
}

// SaveDocument replaces the stored form of tuple.Document.URL with tuple
func (b *BoltStorage) SaveDocument(ctx context.Context, tuple types.StoredTuple) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dim, err := validateTuple(&tuple)
	if err != nil {
		return err
	}

	value, err := json.Marshal(boltRecord{Tuple: tuple, UpdatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		stored := decodeDimension(meta.Get(keyDimension))
		if err := checkDimension(stored, dim); err != nil {
			return err
		}
		if stored == 0 {
			if err := meta.Put(keyDimension, encodeDimension(dim)); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketDocuments).Put([]byte(tuple.Document.URL), value)
	})
}

// LoadDocument returns the stored tuple for url
func (b *BoltStorage) LoadDocument(ctx context.Context, url string) (types.StoredTuple, error) {
	if err := ctx.Err(); err != nil {
		return types.StoredTuple{}, err
	}

	var rec boltRecord
	err := b.db.View(func(tx *bbolt.Tx) error {
		return getRecord(tx, url, &rec)
	})
	if err != nil {
		return types.StoredTuple{}, err
	}
	if rec.Tuple.Chunks == nil {
		rec.Tuple.Chunks = []types.StoredChunk{}
	}
	return rec.Tuple, nil
}

// DeleteDocument removes a document
func (b *BoltStorage) DeleteDocument(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocuments)
		if docs.Get([]byte(url)) == nil {
			return fmt.Errorf("document %s: %w", url, ErrNotFound)
		}
		return docs.Delete([]byte(url))
	})
}

// ListDocuments returns every stored document ordered by URL
func (b *BoltStorage) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	infos := make([]DocumentInfo, 0)
	err := b.forEach(ctx, func(rec *boltRecord) error {
		infos = append(infos, DocumentInfo{
			URL:        rec.Tuple.Document.URL,
			Summary:    rec.Tuple.Document.Summary,
			ChunkCount: len(rec.Tuple.Chunks),
			Dimension:  rec.Tuple.Dimension(),
			UpdatedAt:  rec.UpdatedAt,
		})
		return nil
	})
	return infos, err
}

// GetChunk resolves a chunk reference for display
func (b *BoltStorage) GetChunk(ctx context.Context, ref types.ChunkRef) (*types.ChunkHit, error) {
	tuple, err := b.LoadDocument(ctx, ref.URL)
	if err != nil {
		return nil, err
	}
	if ref.Position < 0 || ref.Position >= len(tuple.Chunks) {
		return nil, fmt.Errorf("chunk %s#%d: %w", ref.URL, ref.Position, ErrNotFound)
	}
	ch := tuple.Chunks[ref.Position]
	return &types.ChunkHit{
		Ref:             ref,
		Range:           ch.Range,
		Content:         ch.Content,
		Summary:         ch.Summary,
		DocumentSummary: tuple.Document.Summary,
	}, nil
}

// SearchVector scores every chunk by cosine similarity
func (b *BoltStorage) SearchVector(ctx context.Context, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	if limit <= 0 {
		return []VectorResult{}, nil
	}
	match, err := documentMatcher(filters)
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0, 256)
	err = b.forEach(ctx, func(rec *boltRecord) error {
		if !match(rec.Tuple.Document.URL) || rec.Tuple.Dimension() != len(queryVector) {
			return nil
		}
		for i := range rec.Tuple.Chunks {
			ch := &rec.Tuple.Chunks[i]
			score, ok := scoreChunk(queryVector, ch.ContentEmbedding, ch.SummaryEmbedding, filters)
			if !ok {
				continue
			}
			candidates = append(candidates, candidate{url: rec.Tuple.Document.URL, position: i, score: score})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	return buildVectorResults(candidates, limit), nil
}

// SearchText scores chunks by the share of query terms found in their content
// and summary, weighted by term frequency
func (b *BoltStorage) SearchText(ctx context.Context, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return []TextResult{}, nil
	}
	match, err := documentMatcher(filters)
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0, 64)
	err = b.forEach(ctx, func(rec *boltRecord) error {
		if !match(rec.Tuple.Document.URL) {
			return nil
		}
		for i := range rec.Tuple.Chunks {
			ch := &rec.Tuple.Chunks[i]
			score := termScore(terms, queryTerms(ch.Content+" "+ch.Summary))
			if score <= 0 || score < minRelevance(filters) {
				continue
			}
			candidates = append(candidates, candidate{url: rec.Tuple.Document.URL, position: i, score: score})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	if limit > len(candidates) {
		limit = len(candidates)
	}
	results := make([]TextResult, limit)
	for i := range results {
		results[i] = TextResult{Ref: candidates[i].ref(), BM25Score: candidates[i].score}
	}
	return results, nil
}

// GetStatus reports counts and file size
func (b *BoltStorage) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{
		Backend:   BackendBolt,
		BuildMode: BuildMode,
	}

	err := b.forEach(ctx, func(rec *boltRecord) error {
		status.DocumentsCount++
		status.ChunksCount += len(rec.Tuple.Chunks)
		if rec.UpdatedAt.After(status.LastIndexedAt) {
			status.LastIndexedAt = rec.UpdatedAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = b.db.View(func(tx *bbolt.Tx) error {
		status.Dimension = decodeDimension(tx.Bucket(bucketMeta).Get(keyDimension))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if info, err := os.Stat(b.path); err == nil {
		status.IndexSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.Dimension > 0,
		FTSIndexesBuilt:     false,
	}
	return status, nil
}

func (b *BoltStorage) forEach(ctx context.Context, fn func(rec *boltRecord) error) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec boltRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode document %s: %w", k, err)
			}
			return fn(&rec)
		})
	})
}

func getRecord(tx *bbolt.Tx, url string, rec *boltRecord) error {
	v := tx.Bucket(bucketDocuments).Get([]byte(url))
	if v == nil {
		return fmt.Errorf("document %s: %w", url, ErrNotFound)
	}
	if err := json.Unmarshal(v, rec); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", url, err)
	}
	return nil
}

func encodeDimension(dim int) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(dim))
	return buf
}

func decodeDimension(b []byte) int {
	if len(b) != 4 {
		return 0
	}
	return int(binary.BigEndian.Uint32(b))
}

// termScore is the fraction of query terms present in words, boosted by repeats
func termScore(terms, words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	freq := make(map[string]int, len(words))
	for _, w := range words {
		freq[w]++
	}

	var matched, hits int
	for _, t := range terms {
		if n := freq[t]; n > 0 {
			matched++
			hits += n
		}
	}
	if matched == 0 {
		return 0
	}
	coverage := float64(matched) / float64(len(terms))
	density := float64(hits) / float64(hits+len(terms))
	return coverage * (0.5 + 0.5*density)
}

// documentMatcher applies the URL filters the way SQLite's GLOB does for * and ?
func documentMatcher(filters *SearchFilters) (func(string) bool, error) {
	if filters == nil || (len(filters.URLs) == 0 && filters.URLPattern == "") {
		return func(string) bool { return true }, nil
	}

	var allowed map[string]bool
	if len(filters.URLs) > 0 {
		allowed = make(map[string]bool, len(filters.URLs))
		for _, u := range filters.URLs {
			allowed[u] = true
		}
	}

	var pattern *regexp.Regexp
	if filters.URLPattern != "" {
		re, err := globToRegexp(filters.URLPattern)
		if err != nil {
			return nil, err
		}
		pattern = re
	}

	return func(url string) bool {
		if allowed != nil && !allowed[url] {
			return false
		}
		return pattern == nil || pattern.MatchString(url)
	}, nil
}

func globToRegexp(glob string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range glob {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("invalid url pattern %q: %w", glob, err)
	}
	return re, nil
}
