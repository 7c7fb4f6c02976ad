package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexDocumentTool returns the tool definition for index_document
func indexDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_document",
		Description: "Chunk a document, summarize and embed every chunk, and store it for search. Pass url and text, or a file or directory path.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "Stable document identifier. Defaults to the file:// URL of path.",
				},
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Full document text",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a file or directory of .md, .txt and .html files",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-index documents whose chunks are unchanged",
					"default":     false,
				},
			},
		},
	}
}

// getDocumentTool returns the tool definition for get_document
func getDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_document",
		Description: "Return a stored document with its summary and chunks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "Document URL",
				},
			},
			Required: []string{"url"},
		},
	}
}

// searchDocumentsTool returns the tool definition for search_documents
func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documents",
		Description: "Search stored document fragments with natural language or keyword queries",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"filters": map[string]interface{}{
					"type":        "object",
					"description": "Optional filters to narrow search",
					"properties": map[string]interface{}{
						"url_pattern": map[string]interface{}{
							"type":        "string",
							"description": "Glob pattern on document URLs (e.g., 'file:///notes/*')",
						},
						"urls": map[string]interface{}{
							"type":        "array",
							"description": "Restrict to these documents",
							"items": map[string]interface{}{
								"type": "string",
							},
						},
						"field": map[string]interface{}{
							"type":        "string",
							"description": "Embedding compared against the query: content, summary, or both when omitted",
							"enum":        []string{"content", "summary"},
						},
						"min_relevance": map[string]interface{}{
							"type":        "number",
							"description": "Minimum relevance score threshold (0.0-1.0)",
							"minimum":     0.0,
							"maximum":     1.0,
						},
					},
				},
				"search_mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: hybrid (vector + keyword), vector (semantic only), or keyword (BM25 only)",
					"enum":        []string{"hybrid", "vector", "keyword"},
					"default":     "hybrid",
				},
			},
			Required: []string{"query"},
		},
	}
}

// findPromptsTool returns the tool definition for find_prompts
func findPromptsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_prompts",
		Description: "Find prompt markers in text and report the text after each marker with its position",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Text to scan",
				},
				"line": map[string]interface{}{
					"type":        "integer",
					"description": "Zero-based line to scan. Every line is scanned when omitted.",
					"minimum":     0,
				},
				"prefix": map[string]interface{}{
					"type":        "string",
					"description": "Marker prefix. Defaults to the configured prefix.",
				},
			},
			Required: []string{"text"},
		},
	}
}

// completeAttributeTool returns the tool definition for complete_attribute
func completeAttributeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "complete_attribute",
		Description: "Complete htmx attribute names and values, or return the documentation of one attribute",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"prefix": map[string]interface{}{
					"type":        "string",
					"description": "Partial attribute name or value",
					"default":     "",
				},
				"attribute": map[string]interface{}{
					"type":        "string",
					"description": "Complete values of this attribute instead of attribute names",
				},
				"hover": map[string]interface{}{
					"type":        "string",
					"description": "Return the documentation of this attribute",
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query store statistics, capability providers and health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
