package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/semdoc/internal/document"
	"github.com/dshills/semdoc/internal/indexer"
	"github.com/dshills/semdoc/internal/prompt"
	"github.com/dshills/semdoc/internal/searcher"
	"github.com/dshills/semdoc/internal/storage"
	"github.com/dshills/semdoc/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodePathNotFound       = -32001 // Specified path does not exist
	ErrorCodeIndexingInProgress = -32002 // Another directory run is already active
	ErrorCodeNotIndexed         = -32003 // Document not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
	ErrorCodeCapabilityFailed   = -32005 // Summarization or embedding failed
)

// maxReportedErrors caps the per-file errors included in an index response
const maxReportedErrors = 5

// handleIndexDocument handles the index_document tool invocation
func (s *Server) handleIndexDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	url := getStringDefault(args, "url", "")
	text, hasText := args["text"].(string)
	path := getStringDefault(args, "path", "")
	force := getBoolDefault(args, "force", false)

	if hasText && path != "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "text and path are mutually exclusive", map[string]interface{}{
			"param":  "path",
			"reason": "conflicts with text",
		})
	}

	if path == "" {
		if !hasText {
			return nil, newMCPError(ErrorCodeInvalidParams, "text or path parameter is required", map[string]interface{}{
				"param":  "text",
				"reason": "missing",
			})
		}
		if url == "" {
			return nil, newMCPError(ErrorCodeInvalidParams, "url parameter is required with text", map[string]interface{}{
				"param":  "url",
				"reason": "missing or empty",
			})
		}
		return s.indexText(ctx, url, text, force)
	}

	info, err := validatePath(path)
	if err != nil {
		return nil, newMCPError(ErrorCodePathNotFound, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	if info.IsDir() {
		return s.indexDirectory(ctx, path, force)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, newMCPError(ErrorCodePathNotFound, "failed to read file", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	if url == "" {
		if url, err = indexer.FileURL(path); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
				"param":  "path",
				"reason": err.Error(),
			})
		}
	}
	return s.indexText(ctx, url, string(content), force)
}

func (s *Server) indexText(ctx context.Context, url, text string, force bool) (*mcp.CallToolResult, error) {
	start := time.Now()

	var (
		res *indexer.Result
		err error
	)
	if force {
		res, err = s.app.Indexer.Reindex(ctx, url, text)
	} else {
		res, err = s.app.Indexer.IndexDocument(ctx, url, text)
	}
	if err != nil {
		return nil, indexError(err)
	}

	if !res.Skipped {
		s.app.Searcher.InvalidateCache()
	}

	response := map[string]interface{}{
		"indexed":     !res.Skipped,
		"url":         res.URL,
		"chunks":      res.Chunks,
		"skipped":     res.Skipped,
		"duration_ms": time.Since(start).Milliseconds(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) indexDirectory(ctx context.Context, root string, force bool) (*mcp.CallToolResult, error) {
	stats, err := s.app.Indexer.IndexPath(ctx, root, s.app.IndexConfig(force))
	if errors.Is(err, indexer.ErrIndexInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if stats.FilesIndexed > 0 {
		s.app.Searcher.InvalidateCache()
	}

	response := map[string]interface{}{
		"indexed":        true,
		"files_indexed":  stats.FilesIndexed,
		"files_skipped":  stats.FilesSkipped,
		"files_failed":   stats.FilesFailed,
		"chunks_created": stats.ChunksCreated,
		"duration_ms":    stats.Duration.Milliseconds(),
	}

	if n := len(stats.ErrorMessages); n > 0 {
		if n > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = n
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// indexError maps an indexing failure to an MCP error
func indexError(err error) error {
	switch {
	case errors.Is(err, types.ErrSummarization), errors.Is(err, types.ErrEmbedding):
		var fe *document.FillError
		data := map[string]interface{}{"error": err.Error()}
		if errors.As(err, &fe) {
			data["stage"] = fe.Stage.String()
		}
		return newMCPError(ErrorCodeCapabilityFailed, "failed to fill document", data)
	case errors.Is(err, indexer.ErrEmptyURL), errors.Is(err, types.ErrEmptyURL):
		return newMCPError(ErrorCodeInvalidParams, "url parameter is required", map[string]interface{}{
			"param":  "url",
			"reason": "missing or empty",
		})
	default:
		return newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// handleGetDocument handles the get_document tool invocation
func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	url, ok := args["url"].(string)
	if !ok || url == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "url parameter is required", map[string]interface{}{
			"param":  "url",
			"reason": "missing or empty",
		})
	}

	doc, err := s.app.Indexer.Get(ctx, url)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotIndexed, "document not indexed", map[string]interface{}{
			"url": url,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load document", map[string]interface{}{
			"error": err.Error(),
		})
	}

	chunks := make([]map[string]interface{}, 0, doc.Len())
	for i, c := range doc.Chunks() {
		summary, _ := c.Summary()
		chunks = append(chunks, map[string]interface{}{
			"position": i,
			"range":    c.Range(),
			"content":  c.Content(),
			"summary":  summary,
		})
	}

	summary, _ := doc.Summary()
	response := map[string]interface{}{
		"url":     doc.URL(),
		"summary": summary,
		"filled":  doc.Filled(),
		"chunks":  chunks,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchDocuments handles the search_documents tool invocation
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	modeName := getStringDefault(args, "search_mode", s.app.Config.Search.DefaultMode)
	mode, err := searcher.ParseMode(modeName)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid search_mode", map[string]interface{}{
			"param":   "search_mode",
			"value":   modeName,
			"allowed": []string{"hybrid", "vector", "keyword"},
		})
	}

	filters, err := parseFilters(args)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid filters", map[string]interface{}{
			"param":  "filters",
			"reason": err.Error(),
		})
	}

	resp, err := s.app.Searcher.Search(ctx, searcher.SearchRequest{
		Query:    query,
		Limit:    limit,
		Mode:     mode,
		Filters:  filters,
		UseCache: true,
		CacheTTL: s.app.Config.Search.CacheTTL.Std(),
	})
	if errors.Is(err, searcher.ErrEmptyQuery) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "blank",
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"results":       resp.Results,
		"total_results": resp.TotalResults,
		"search_mode":   string(resp.SearchMode),
		"cache_hit":     resp.CacheHit,
		"duration_ms":   resp.Duration.Milliseconds(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// parseFilters reads the optional filters object
func parseFilters(args map[string]interface{}) (*storage.SearchFilters, error) {
	raw, ok := args["filters"]
	if !ok || raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.New("filters must be an object")
	}

	filters := &storage.SearchFilters{
		URLPattern: getStringDefault(m, "url_pattern", ""),
		Field:      getStringDefault(m, "field", storage.FieldAny),
	}

	switch filters.Field {
	case storage.FieldAny, storage.FieldContent, storage.FieldSummary:
	default:
		return nil, fmt.Errorf("unknown field %q", filters.Field)
	}

	if v, ok := m["min_relevance"].(float64); ok {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("min_relevance %v out of range", v)
		}
		filters.MinRelevance = v
	}

	if urls, ok := m["urls"].([]interface{}); ok {
		for _, u := range urls {
			str, ok := u.(string)
			if !ok {
				return nil, errors.New("urls must be strings")
			}
			filters.URLs = append(filters.URLs, str)
		}
	}

	return filters, nil
}

// handleFindPrompts handles the find_prompts tool invocation
func (s *Server) handleFindPrompts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, ok := args["text"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "text parameter is required", map[string]interface{}{
			"param":  "text",
			"reason": "missing",
		})
	}

	scanner := s.app.Scanner
	if p := getStringDefault(args, "prefix", ""); p != "" {
		scanner = prompt.New(p)
	}

	matches := []prompt.Match{}
	if line := getIntDefault(args, "line", -1); line >= 0 {
		if m, found := scanner.ScanLine(text, line); found {
			matches = append(matches, m)
		}
	} else {
		matches = scanner.ScanAll(text)
	}

	response := map[string]interface{}{
		"prefix":  scanner.Prefix(),
		"prompts": matches,
		"count":   len(matches),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCompleteAttribute handles the complete_attribute tool invocation
func (s *Server) handleCompleteAttribute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	cat := s.app.Catalog

	if name := getStringDefault(args, "hover", ""); name != "" {
		entry, found := cat.Hover(name)
		if !found {
			return nil, newMCPError(ErrorCodeInvalidParams, "unknown attribute", map[string]interface{}{
				"param": "hover",
				"value": name,
			})
		}
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"name":        entry.Name,
			"description": entry.Description,
		})), nil
	}

	prefix := getStringDefault(args, "prefix", "")

	if attr := getStringDefault(args, "attribute", ""); attr != "" {
		if _, found := cat.Values(attr); !found {
			return nil, newMCPError(ErrorCodeInvalidParams, "attribute has no known values", map[string]interface{}{
				"param": "attribute",
				"value": attr,
			})
		}
		items := cat.CompleteValue(attr, prefix)
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"attribute": attr,
			"items":     items,
			"count":     len(items),
		})), nil
	}

	items := cat.Complete(prefix)
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"items": items,
		"count": len(items),
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.app.Storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	lastIndexed := ""
	if !status.LastIndexedAt.IsZero() {
		lastIndexed = status.LastIndexedAt.Format(time.RFC3339)
	}

	response := map[string]interface{}{
		"indexed": status.DocumentsCount > 0,
		"storage": map[string]interface{}{
			"backend":         status.Backend,
			"build_mode":      status.BuildMode,
			"last_indexed_at": lastIndexed,
		},
		"statistics": map[string]interface{}{
			"documents_count": status.DocumentsCount,
			"chunks_count":    status.ChunksCount,
			"dimension":       status.Dimension,
			"index_size_mb":   fmt.Sprintf("%.2f", status.IndexSizeMB),
			"cached_queries":  s.app.Searcher.CacheLen(),
		},
		"providers": map[string]interface{}{
			"embedder":   s.app.Embedder.Provider() + "/" + s.app.Embedder.Model(),
			"summarizer": s.app.Summarizer.Provider() + "/" + s.app.Summarizer.Model(),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"fts_indexes_built":    status.Health.FTSIndexesBuilt,
		},
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that an absolute path exists
func validatePath(path string) (os.FileInfo, error) {
	if !filepath.IsAbs(path) {
		return nil, ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, ErrPathNotFound
	}
	if err != nil {
		return nil, ErrPathNotReadable
	}
	return info, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation errors
var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
)
