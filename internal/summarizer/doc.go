// Package summarizer is the summarization capability consumed by the fill pipeline.
//
// A Summarizer turns text into a short natural-language description. The
// store never inspects summaries beyond requiring them to be non-empty; how
// a summary is produced is entirely the provider's business.
//
// Providers:
//
//   - claude: Anthropic Messages API (github.com/anthropics/anthropic-sdk-go)
//   - gemini: Gemini API (google.golang.org/genai)
//   - openai: any OpenAI-compatible /chat/completions endpoint
//   - local:  leading sentences of the text, offline and deterministic
//
// Remote providers retry transient failures through internal/backoff and
// honor an optional requests-per-second limit.
package summarizer
