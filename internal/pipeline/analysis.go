package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"papertimes/internal/core"
	"papertimes/internal/llm"
	"papertimes/internal/logger"
	"papertimes/internal/parser"
	"papertimes/internal/persistence"
)

// Analysis turns a pending Document into a completed one with an Analysis.
type Analysis struct {
	docs      persistence.DocumentRepository
	extractor TextExtractor
	ai        Completer
	cfg       Config
	now       func() time.Time
	log       *slog.Logger
}

// NewAnalysis creates the document analysis pipeline.
func NewAnalysis(docs persistence.DocumentRepository, extractor TextExtractor, ai Completer, cfg Config) *Analysis {
	return &Analysis{
		docs:      docs,
		extractor: extractor,
		ai:        ai,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
		log:       logger.Get().With("component", "analysis"),
	}
}

// Run analyzes document id. A document that is not pending is left alone, so
// redelivered jobs are harmless. Failures of the run itself are recorded on the
// document; the returned error only reports that recording failed. A run cut
// short by ctx puts the document back to pending and returns the context error.
func (a *Analysis) Run(ctx context.Context, id string) (err error) {
	log := a.log.With("document_id", id)

	claimed, err := a.docs.Transition(ctx, id, []core.ProcessingStatus{core.StatusPending}, core.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to claim document: %w", err)
	}
	if !claimed {
		log.Info("Document is not pending, skipping")
		return nil
	}
	log.Info("Document processing")

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = a.fail(ctx, log, id, fmt.Errorf("analysis panicked: %v", r))
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, a.cfg.RunTimeout)
	defer cancel()

	analysis, strategy, runErr := a.analyze(runCtx, id)
	if runErr != nil {
		if ctx.Err() != nil {
			return a.release(ctx, log, id)
		}
		return a.fail(ctx, log, id, runErr)
	}

	ok, err := a.docs.Complete(context.WithoutCancel(ctx), id, analysis)
	if err != nil {
		return a.fail(ctx, log, id, err)
	}
	if !ok {
		log.Warn("Document left processing before completion, analysis discarded")
		return nil
	}

	log.Info("Document completed",
		"strategy", strategy.String(),
		"confidence", analysis.ConfidenceScore,
		"duration", time.Since(start))
	return nil
}

func (a *Analysis) analyze(ctx context.Context, id string) (core.Analysis, parser.Strategy, error) {
	doc, err := a.docs.Get(ctx, id)
	if err != nil {
		return core.Analysis{}, 0, err
	}

	res, err := a.extractor.Extract(ctx, doc.SourceURL)
	if err != nil {
		return core.Analysis{}, 0, err
	}
	if strings.TrimSpace(res.Text) == "" {
		return core.Analysis{}, 0, &core.FormatError{ContentType: res.ContentType, Err: fmt.Errorf("no text extracted")}
	}

	title := doc.Title
	if title == "" {
		title = res.Title
	}
	raw, err := a.ai.Complete(ctx, llm.AnalysisPrompt, map[string]string{
		"title":   title,
		"authors": strings.Join(doc.Authors, ", "),
		"text":    parser.Truncate(res.Text, a.cfg.MaxPromptChars),
	}, llm.GenerationParams{JSON: true})
	if err != nil {
		return core.Analysis{}, 0, err
	}

	analysis, strategy := parser.ParseAnalysis(raw)
	return analysis, strategy, nil
}

func (a *Analysis) fail(ctx context.Context, log *slog.Logger, id string, cause error) error {
	rec := errorRecord(a.now(), cause)
	log.Error("Document failed", "error", cause, "code", rec.Code)

	if err := a.docs.Fail(context.WithoutCancel(ctx), id, rec, a.cfg.ErrorHistoryLimit); err != nil {
		return fmt.Errorf("failed to record document failure: %w", err)
	}
	return nil
}

func (a *Analysis) release(ctx context.Context, log *slog.Logger, id string) error {
	ok, err := a.docs.Transition(context.WithoutCancel(ctx), id,
		[]core.ProcessingStatus{core.StatusProcessing}, core.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to release interrupted document: %w", err)
	}
	if ok {
		log.Warn("Document interrupted, returned to pending")
	}
	return fmt.Errorf("analysis of document %s interrupted: %w", id, ctx.Err())
}

func errorRecord(now time.Time, err error) core.ErrorRecord {
	return core.ErrorRecord{
		Timestamp: now.UTC(),
		Code:      core.ErrorCode(err),
		Message:   err.Error(),
	}
}
