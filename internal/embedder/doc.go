// Package embedder is the embedding capability consumed by the fill pipeline.
//
// An Embedder turns text into a fixed-length float32 vector. All vectors
// produced by one Embedder share Dimension(); the store treats the vectors
// as opaque and only checks that their length agrees.
//
// # Providers
//
//   - jina:   Jina AI /embeddings (1024 dimensions)
//   - openai: OpenAI or any OpenAI-compatible /embeddings endpoint (1536)
//   - gemini: Gemini API through google.golang.org/genai (768)
//   - local:  deterministic hash-derived vectors, offline, no semantics (384)
//
// Remote providers retry transient failures with exponential backoff,
// honor an optional requests-per-second limit and share an LRU cache keyed
// by model and content hash.
//
// # Provider Selection
//
//	emb, err := embedder.New(ctx, embedder.Config{Provider: "openai", CacheSize: 10000})
//
// or, from the environment:
//
//  1. SEMDOC_EMBEDDING_PROVIDER if set
//  2. else JINA_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY in that order
//  3. else the local provider
package embedder
