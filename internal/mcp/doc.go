// Package mcp implements the Model Context Protocol (MCP) server for semdoc.
//
// The MCP server exposes six tools to AI assistants and editors:
//   - index_document: chunk, summarize, embed and store a document or directory
//   - get_document: return a stored document with its chunk summaries
//   - search_documents: search stored fragments by meaning or keywords
//   - find_prompts: locate prompt markers in text
//   - complete_attribute: complete or describe htmx attributes
//   - get_status: report store statistics and health
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started via the serve command:
//
//	semdoc serve
//
// It then listens on stdin for MCP protocol messages and writes responses to
// stdout. Logs go to stderr.
//
// # Tool: index_document
//
//	Request:
//	{
//	  "name": "index_document",
//	  "arguments": {
//	    "url": "file:///notes/today.md",
//	    "text": "Shopping list...\n\nMeeting notes...",
//	    "force": false
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "url": "file:///notes/today.md",
//	  "chunks": 2,
//	  "skipped": false,
//	  "duration_ms": 840
//	}
//
// Passing "path" instead of "text" indexes one file, or every .md, .txt and
// .html file below a directory. Unchanged documents are skipped unless
// "force" is set.
//
// # Tool: search_documents
//
//	Request:
//	{
//	  "name": "search_documents",
//	  "arguments": {
//	    "query": "what did we decide about the release",
//	    "limit": 5,
//	    "search_mode": "hybrid",
//	    "filters": {"url_pattern": "file:///notes/*", "field": "summary"}
//	  }
//	}
//
//	Response:
//	{
//	  "results": [
//	    {
//	      "rank": 1,
//	      "relevance_score": 0.032,
//	      "ref": {"url": "file:///notes/today.md", "position": 1},
//	      "range": {"start": 17, "end": 33},
//	      "content": "Meeting notes...",
//	      "summary": "Notes from the release meeting.",
//	      "document_summary": "A shopping list and meeting notes."
//	    }
//	  ]
//	}
//
// # Error Handling
//
// Handlers return *MCPError values which the framework encodes as JSON-RPC
// errors:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Path not found
//   - -32002: Indexing in progress
//   - -32003: Document not indexed
//   - -32004: Empty query
//   - -32005: Summarization or embedding failed
package mcp
