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
	"papertimes/internal/templates"
)

// Generation turns a pending Newspaper into a completed one with content.
type Generation struct {
	newspapers persistence.NewspaperRepository
	docs       persistence.DocumentRepository
	catalog    *templates.Catalog
	ai         Completer
	cfg        Config
	now        func() time.Time
	log        *slog.Logger
}

// NewGeneration creates the newspaper generation pipeline.
func NewGeneration(newspapers persistence.NewspaperRepository, docs persistence.DocumentRepository, catalog *templates.Catalog, ai Completer, cfg Config) *Generation {
	return &Generation{
		newspapers: newspapers,
		docs:       docs,
		catalog:    catalog,
		ai:         ai,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
		log:        logger.Get().With("component", "generation"),
	}
}

// Run generates newspaper id. See Analysis.Run for the claim and failure contract.
func (g *Generation) Run(ctx context.Context, id string) (err error) {
	log := g.log.With("newspaper_id", id)

	claimed, err := g.newspapers.Transition(ctx, id, []core.ProcessingStatus{core.StatusPending}, core.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to claim newspaper: %w", err)
	}
	if !claimed {
		log.Info("Newspaper is not pending, skipping")
		return nil
	}
	log.Info("Newspaper processing")

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = g.fail(ctx, log, id, fmt.Errorf("generation panicked: %v", r))
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, g.cfg.RunTimeout)
	defer cancel()

	content, strategy, runErr := g.generate(runCtx, id)
	if runErr != nil {
		if ctx.Err() != nil {
			return g.release(ctx, log, id)
		}
		return g.fail(ctx, log, id, runErr)
	}

	ok, err := g.newspapers.Complete(context.WithoutCancel(ctx), id, content)
	if err != nil {
		return g.fail(ctx, log, id, err)
	}
	if !ok {
		log.Warn("Newspaper left processing before completion, content discarded")
		return nil
	}

	log.Info("Newspaper completed", "strategy", strategy.String(), "duration", time.Since(start))
	return nil
}

func (g *Generation) generate(ctx context.Context, id string) (core.NewspaperContent, parser.Strategy, error) {
	n, err := g.newspapers.Get(ctx, id)
	if err != nil {
		return core.NewspaperContent{}, 0, err
	}
	tmpl, err := g.catalog.Get(n.TemplateID)
	if err != nil {
		return core.NewspaperContent{}, 0, err
	}

	sources, err := g.sources(ctx, n.SourceDocumentIDs)
	if err != nil {
		return core.NewspaperContent{}, 0, err
	}

	supporting := make([]string, 0, len(sources)-1)
	for i, src := range sources[1:] {
		supporting = append(supporting, fmt.Sprintf("[%d]\n%s", i+1, describe(src)))
	}
	supportingText := "(none)"
	if len(supporting) > 0 {
		supportingText = strings.Join(supporting, "\n\n")
	}

	raw, err := g.ai.Complete(ctx, llm.NewspaperPrompt, map[string]string{
		"template_name":     tmpl.Name,
		"style":             tmpl.Style,
		"main_paper":        describe(sources[0]),
		"supporting_papers": parser.Truncate(supportingText, g.cfg.MaxPromptChars),
	}, llm.GenerationParams{JSON: true})
	if err != nil {
		return core.NewspaperContent{}, 0, err
	}

	content, strategy := parser.ParseNewspaper(raw, sources)
	return content, strategy, nil
}

// sources loads the documents in order; the first is the main paper.
func (g *Generation) sources(ctx context.Context, ids []string) ([]parser.Source, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("newspaper has no source documents: %w", core.ErrInvalidInput)
	}

	docs, err := g.docs.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(docs) != len(ids) {
		return nil, fmt.Errorf("%d of %d source documents: %w", len(ids)-len(docs), len(ids), core.ErrNotFound)
	}

	sources := make([]parser.Source, len(docs))
	for i, doc := range docs {
		sources[i] = parser.Source{Title: doc.Title}
		if doc.Analysis != nil {
			sources[i].Analysis = *doc.Analysis
		}
	}
	return sources, nil
}

// describe serializes one paper's analysis for the generation prompt.
func describe(src parser.Source) string {
	a := src.Analysis
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", src.Title)
	fmt.Fprintf(&b, "Field: %s (%s)\n", a.AcademicField, a.TechnicalLevel)
	fmt.Fprintf(&b, "Summary: %s\n", a.Summary)
	if len(a.KeyPoints) > 0 {
		b.WriteString("Key points:\n")
		for _, p := range a.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	fmt.Fprintf(&b, "Significance: %s\n", a.Significance)
	if len(a.RelatedTopics) > 0 {
		fmt.Fprintf(&b, "Related topics: %s\n", strings.Join(a.RelatedTopics, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (g *Generation) fail(ctx context.Context, log *slog.Logger, id string, cause error) error {
	rec := errorRecord(g.now(), cause)
	log.Error("Newspaper failed", "error", cause, "code", rec.Code)

	if err := g.newspapers.Fail(context.WithoutCancel(ctx), id, rec, g.cfg.ErrorHistoryLimit); err != nil {
		return fmt.Errorf("failed to record newspaper failure: %w", err)
	}
	return nil
}

func (g *Generation) release(ctx context.Context, log *slog.Logger, id string) error {
	ok, err := g.newspapers.Transition(context.WithoutCancel(ctx), id,
		[]core.ProcessingStatus{core.StatusProcessing}, core.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to release interrupted newspaper: %w", err)
	}
	if ok {
		log.Warn("Newspaper interrupted, returned to pending")
	}
	return fmt.Errorf("generation of newspaper %s interrupted: %w", id, ctx.Err())
}
