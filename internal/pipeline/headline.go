package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"papertimes/internal/core"
	"papertimes/internal/llm"
	"papertimes/internal/logger"
	"papertimes/internal/parser"
)

// MinHeadlineContentRunes is the shortest content a headline is written for.
const MinHeadlineContentRunes = 50

// HeadlineWriter produces a headline for free text synchronously. Nothing is persisted.
type HeadlineWriter struct {
	ai       Completer
	maxChars int
	log      *slog.Logger
}

// NewHeadlineWriter creates a headline writer.
func NewHeadlineWriter(ai Completer, cfg Config) *HeadlineWriter {
	return &HeadlineWriter{
		ai:       ai,
		maxChars: cfg.withDefaults().MaxPromptChars,
		log:      logger.Get().With("component", "headline"),
	}
}

// Write returns a headline for content. Provider failures are returned to the caller.
func (h *HeadlineWriter) Write(ctx context.Context, content string) (core.Headline, error) {
	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n < MinHeadlineContentRunes {
		return core.Headline{}, fmt.Errorf("content must be at least %d characters, got %d: %w", MinHeadlineContentRunes, n, core.ErrInvalidInput)
	}

	raw, err := h.ai.Complete(ctx, llm.HeadlinePrompt, map[string]string{
		"content": parser.Truncate(content, h.maxChars),
	}, llm.GenerationParams{JSON: true})
	if err != nil {
		return core.Headline{}, err
	}

	headline, strategy := parser.ParseHeadline(raw, content)
	h.log.Debug("Headline written", "strategy", strategy.String())
	return headline, nil
}
