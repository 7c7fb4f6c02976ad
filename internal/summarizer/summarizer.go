package summarizer

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dshills/semdoc/internal/backoff"
)

// Common errors
var (
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrProviderFailed    = errors.New("summarization provider failed")
	ErrEmptySummary      = errors.New("provider returned an empty summary")
	ErrUnsupportedModel  = errors.New("unsupported provider")
	ErrNoProviderEnabled = errors.New("no summarization provider configured")
)

// Summarizer is the summarization capability: text in, natural-language summary out
type Summarizer interface {
	// Summarize returns a non-empty summary of text
	Summarize(ctx context.Context, text string) (string, error)

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the summarizer
	Close() error
}

// DefaultInstruction is the system instruction sent to remote models
const DefaultInstruction = "Summarize the following text in two or three plain sentences. " +
	"Describe what the text is about and what it does. Reply with the summary only."

// Options holds the settings shared by all providers
type Options struct {
	APIKey            string
	Model             string
	BaseURL           string
	Instruction       string
	MaxTokens         int
	MaxChars          int // local provider output limit
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables rate limiting
	Retry             *backoff.Config
}

func (o Options) retryConfig() backoff.Config {
	if o.Retry != nil {
		return *o.Retry
	}
	return backoff.DefaultConfig()
}

func (o Options) instruction() string {
	if o.Instruction != "" {
		return o.Instruction
	}
	return DefaultInstruction
}

func (o Options) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return DefaultMaxTokens
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), int(math.Ceil(rps)))
}

func wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}

func checkSummary(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptySummary
	}
	return text, nil
}
