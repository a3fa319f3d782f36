// Package pipeline runs the background work for documents and newspapers:
// extract, call the AI service, parse, persist.
package pipeline

import (
	"context"
	"time"

	"papertimes/internal/extract"
	"papertimes/internal/llm"
)

// TextExtractor retrieves a document's plain text
type TextExtractor interface {
	// Extract fetches sourceURL and returns its text.
	// Fails with *core.FetchError or *core.FormatError.
	Extract(ctx context.Context, sourceURL string) (extract.Result, error)
}

// Completer issues prompts to the AI service
type Completer interface {
	// Complete renders tmpl with vars and returns the raw response text.
	// Transient provider errors are retried by the implementation.
	Complete(ctx context.Context, tmpl string, vars map[string]string, params llm.GenerationParams) (string, error)
}

// Config holds pipeline settings shared by every run
type Config struct {
	RunTimeout        time.Duration // Upper bound on one run, extraction and AI call included
	ErrorHistoryLimit int           // Error records kept per entity
	MaxPromptChars    int           // Extracted text beyond this is cut before prompting
}

// DefaultConfig returns the settings used when none are configured
func DefaultConfig() Config {
	return Config{
		RunTimeout:        5 * time.Minute,
		ErrorHistoryLimit: 20,
		MaxPromptChars:    30000,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RunTimeout <= 0 {
		c.RunTimeout = d.RunTimeout
	}
	if c.ErrorHistoryLimit <= 0 {
		c.ErrorHistoryLimit = d.ErrorHistoryLimit
	}
	if c.MaxPromptChars <= 0 {
		c.MaxPromptChars = d.MaxPromptChars
	}
	return c
}
