package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dshills/semdoc/pkg/types"
)

const settingDimension = "embedding_dimension"

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for migrations tooling and tests
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// withTx runs fn in a transaction, committing on success
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Document operations

// SaveDocument replaces the stored form of tuple.Document.URL with tuple
func (s *SQLiteStorage) SaveDocument(ctx context.Context, tuple types.StoredTuple) error {
	dim, err := validateTuple(&tuple)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(q querier) error {
		stored, err := getDimension(ctx, q)
		if err != nil {
			return err
		}
		if err := checkDimension(stored, dim); err != nil {
			return err
		}
		if stored == 0 {
			if err := setDimension(ctx, q, dim); err != nil {
				return err
			}
		}

		docID, err := upsertDocument(ctx, q, &tuple.Document, dim)
		if err != nil {
			return err
		}

		if _, err := q.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", docID); err != nil {
			return fmt.Errorf("failed to clear chunks: %w", err)
		}

		return insertChunks(ctx, q, docID, tuple.Chunks)
	})
}

func upsertDocument(ctx context.Context, q querier, doc *types.StoredDocument, dim int) (int64, error) {
	query := `
		INSERT INTO documents (url, summary, summary_embedding, dimension, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			summary = excluded.summary,
			summary_embedding = excluded.summary_embedding,
			dimension = excluded.dimension,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		doc.URL, doc.Summary, serializeVector(doc.SummaryEmbedding), dim, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to upsert document: %w", err)
	}

	// LastInsertId is not reliable on the update path
	var id int64
	if err := q.QueryRowContext(ctx, "SELECT id FROM documents WHERE url = ?", doc.URL).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read document id: %w", err)
	}
	return id, nil
}

func insertChunks(ctx context.Context, q querier, docID int64, chunks []types.StoredChunk) error {
	query := `
		INSERT INTO chunks (document_id, position, range_start, range_end, content,
		                    content_embedding, summary, summary_embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i := range chunks {
		ch := &chunks[i]
		_, err := q.ExecContext(ctx, query,
			docID, i, ch.Range.Start, ch.Range.End, ch.Content,
			serializeVector(ch.ContentEmbedding), ch.Summary, serializeVector(ch.SummaryEmbedding))
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}
	return nil
}

// LoadDocument returns the stored tuple for url with chunks in sequence order
func (s *SQLiteStorage) LoadDocument(ctx context.Context, url string) (types.StoredTuple, error) {
	var tuple types.StoredTuple
	var docID int64
	var blob []byte

	err := s.db.QueryRowContext(ctx,
		"SELECT id, url, summary, summary_embedding FROM documents WHERE url = ?", url,
	).Scan(&docID, &tuple.Document.URL, &tuple.Document.Summary, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return types.StoredTuple{}, fmt.Errorf("document %s: %w", url, ErrNotFound)
	}
	if err != nil {
		return types.StoredTuple{}, fmt.Errorf("failed to load document: %w", err)
	}
	tuple.Document.SummaryEmbedding = deserializeVector(blob)

	rows, err := s.db.QueryContext(ctx, `
		SELECT range_start, range_end, content, content_embedding, summary, summary_embedding
		FROM chunks
		WHERE document_id = ?
		ORDER BY position
	`, docID)
	if err != nil {
		return types.StoredTuple{}, fmt.Errorf("failed to load chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tuple.Chunks = make([]types.StoredChunk, 0)
	for rows.Next() {
		ch := types.StoredChunk{ParentURL: tuple.Document.URL}
		var contentBlob, summaryBlob []byte
		if err := rows.Scan(&ch.Range.Start, &ch.Range.End, &ch.Content, &contentBlob, &ch.Summary, &summaryBlob); err != nil {
			return types.StoredTuple{}, err
		}
		ch.ContentEmbedding = deserializeVector(contentBlob)
		ch.SummaryEmbedding = deserializeVector(summaryBlob)
		tuple.Chunks = append(tuple.Chunks, ch)
	}
	if err := rows.Err(); err != nil {
		return types.StoredTuple{}, err
	}

	return tuple, nil
}

// DeleteDocument removes a document and its chunks
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, url string) error {
	return s.withTx(ctx, func(q querier) error {
		var docID int64
		err := q.QueryRowContext(ctx, "SELECT id FROM documents WHERE url = ?", url).Scan(&docID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("document %s: %w", url, ErrNotFound)
		}
		if err != nil {
			return err
		}

		if _, err := q.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", docID); err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}
		if _, err := q.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", docID); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		return nil
	})
}

// ListDocuments returns every stored document ordered by URL
func (s *SQLiteStorage) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.url, d.summary, d.dimension, d.updated_at, COUNT(c.id)
		FROM documents d
		LEFT JOIN chunks c ON c.document_id = d.id
		GROUP BY d.id
		ORDER BY d.url
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	infos := make([]DocumentInfo, 0)
	for rows.Next() {
		var info DocumentInfo
		var updated int64
		if err := rows.Scan(&info.URL, &info.Summary, &info.Dimension, &updated, &info.ChunkCount); err != nil {
			return nil, err
		}
		info.UpdatedAt = time.Unix(updated, 0)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Chunk operations

// GetChunk resolves a chunk reference for display
func (s *SQLiteStorage) GetChunk(ctx context.Context, ref types.ChunkRef) (*types.ChunkHit, error) {
	hit := &types.ChunkHit{Ref: ref}
	err := s.db.QueryRowContext(ctx, `
		SELECT c.range_start, c.range_end, c.content, c.summary, d.summary
		FROM chunks c
		INNER JOIN documents d ON c.document_id = d.id
		WHERE d.url = ? AND c.position = ?
	`, ref.URL, ref.Position).Scan(&hit.Range.Start, &hit.Range.End, &hit.Content, &hit.Summary, &hit.DocumentSummary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chunk %s#%d: %w", ref.URL, ref.Position, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	return hit, nil
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, s.db, queryVector, limit, filters)
}

func (s *SQLiteStorage) SearchText(ctx context.Context, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, s.db, query, limit, filters)
}

// Settings

func getDimension(ctx context.Context, q querier) (int, error) {
	var value string
	err := q.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", settingDimension).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", settingDimension, err)
	}
	dim, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", settingDimension, value, err)
	}
	return dim, nil
}

func setDimension(ctx context.Context, q querier, dim int) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		settingDimension, strconv.Itoa(dim))
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", settingDimension, err)
	}
	return nil
}

// Status operations

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{
		Backend:   BackendSQLite,
		BuildMode: BuildMode,
	}

	var lastIndexed sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*), MAX(updated_at) FROM documents").Scan(&status.DocumentsCount, &lastIndexed)
	if err != nil {
		return nil, err
	}
	if lastIndexed.Valid {
		status.LastIndexedAt = time.Unix(lastIndexed.Int64, 0)
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&status.ChunksCount); err != nil {
		return nil, err
	}

	dim, err := getDimension(ctx, s.db)
	if err != nil {
		return nil, err
	}
	status.Dimension = dim

	// Calculate database size
	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	var ftsName string
	ftsErr := s.db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE name = 'chunks_fts'").Scan(&ftsName)

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: dim > 0,
		FTSIndexesBuilt:     ftsErr == nil,
	}

	return status, nil
}
