package handlers

import (
	"context"
	"fmt"

	"papertimes/internal/config"
	"papertimes/internal/extract"
	"papertimes/internal/llm"
	"papertimes/internal/logger"
	"papertimes/internal/persistence"
	"papertimes/internal/pipeline"
	"papertimes/internal/queue"
	"papertimes/internal/quota"
	"papertimes/internal/services"
	"papertimes/internal/templates"
	"papertimes/internal/worker"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg     *config.Config
	db      *persistence.SQLDB
	queue   queue.Queue
	catalog *templates.Catalog

	// Set only when an AI provider is wired.
	analysis   *pipeline.Analysis
	generation *pipeline.Generation
	headlines  *pipeline.HeadlineWriter
}

type appOptions struct {
	ai    bool // wire the Gemini provider and pipelines
	queue bool // connect the job queue
	// localFiles lets the extractor read file paths. Only the analyze command sets it.
	localFiles bool
}

func openDatabase(ctx context.Context, cfg *config.Config) (*persistence.SQLDB, error) {
	db, err := persistence.Open(ctx, cfg.Database.Driver, cfg.Database.ConnectionString, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg := config.Get()
	log := logger.Get()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db}

	if _, err := persistence.NewMigrator(db).Migrate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	a.catalog = templates.Default()
	if cfg.Templates.File != "" {
		if a.catalog, err = templates.LoadFile(cfg.Templates.File); err != nil {
			a.Close()
			return nil, err
		}
	}

	if opts.queue {
		q, err := openQueue(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.queue = q
	}

	if opts.ai {
		if !cfg.GeminiConfigured() {
			a.Close()
			return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file")
		}
		provider, err := llm.NewGeminiProvider(ctx, llm.GeminiConfig{
			APIKey:  cfg.AI.Gemini.APIKey,
			Model:   cfg.AI.Gemini.Model,
			Timeout: cfg.AI.Gemini.Timeout,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		client := llm.NewClient(provider,
			llm.WithParams(llm.GenerationParams{
				MaxTokens:   cfg.AI.Gemini.MaxTokens,
				Temperature: cfg.AI.Gemini.Temperature,
				TopP:        cfg.AI.Gemini.TopP,
				TopK:        cfg.AI.Gemini.TopK,
			}),
			llm.WithRetryPolicy(llm.RetryPolicy{
				MaxAttempts: cfg.AI.Retry.MaxAttempts,
				BaseDelay:   cfg.AI.Retry.BaseDelay,
				Jitter:      cfg.AI.Retry.Jitter,
			}),
		)

		pcfg := pipeline.Config{
			RunTimeout:        cfg.Pipeline.RunTimeout,
			ErrorHistoryLimit: cfg.Pipeline.ErrorHistoryLimit,
			MaxPromptChars:    cfg.Extract.MaxPromptChars,
		}
		extractor := extract.New(extract.Config{
			Timeout:              cfg.Extract.Timeout,
			MaxBytes:             cfg.Extract.MaxBytes,
			StagingDir:           cfg.Extract.StagingDir,
			AllowLocal:           opts.localFiles,
			AllowPrivateNetworks: cfg.Extract.AllowPrivateNetworks,
		})
		a.analysis = pipeline.NewAnalysis(db.Documents(), extractor, client, pcfg)
		a.generation = pipeline.NewGeneration(db.Newspapers(), db.Documents(), a.catalog, client, pcfg)
		a.headlines = pipeline.NewHeadlineWriter(client, pcfg)
		log.Info("AI provider configured", "model", provider.Model())
	}

	return a, nil
}

func openQueue(cfg *config.Config) (queue.Queue, error) {
	switch cfg.Queue.Driver {
	case "rabbitmq":
		r := cfg.Queue.RabbitMQ
		q, err := queue.NewRabbitMQ(queue.RabbitMQConfig{
			URL:        r.URL,
			Exchange:   r.Exchange,
			QueueName:  r.QueueName,
			RoutingKey: r.RoutingKey,
			Prefetch:   r.Prefetch,
		}, logger.Get())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to queue: %w", err)
		}
		return q, nil
	default:
		return queue.NewMemory(cfg.Queue.Buffer), nil
	}
}

func (a *app) serviceOptions() []services.Option {
	return []services.Option{services.WithErrorHistoryLimit(a.cfg.Pipeline.ErrorHistoryLimit)}
}

func (a *app) documents() *services.DocumentService {
	return services.NewDocumentService(a.db, a.queue, a.serviceOptions()...)
}

func (a *app) newspapers() *services.NewspaperService {
	guard := quota.NewGuard(a.db.Accounts(), a.cfg.Quota.FreeGenerationLimit)
	return services.NewNewspaperService(a.db, a.queue, a.catalog, guard, a.headlines, a.serviceOptions()...)
}

func (a *app) pool() *worker.Pool {
	return worker.NewPool(a.queue, a.cfg.Queue.Workers).
		Register(queue.KindAnalyzeDocument, a.analysis).
		Register(queue.KindGenerateNewspaper, a.generation)
}

// Close releases the queue and database.
func (a *app) Close() {
	if a.queue != nil {
		if err := a.queue.Close(); err != nil {
			logger.Error("Failed to close queue", err)
		}
	}
	if err := a.db.Close(); err != nil {
		logger.Error("Failed to close database", err)
	}
}

// requeueOrphans re-enqueues every pending or processing record left behind by a previous process.
func (a *app) requeueOrphans(ctx context.Context) {
	docs, err := a.documents().RequeueStale(ctx, 0)
	if err != nil {
		logger.Error("Failed to requeue documents", err)
	}
	papers, err := a.newspapers().RequeueStale(ctx, 0)
	if err != nil {
		logger.Error("Failed to requeue newspapers", err)
	}
	if docs+papers > 0 {
		logger.Info("Requeued orphaned jobs", "documents", docs, "newspapers", papers)
	}
}
