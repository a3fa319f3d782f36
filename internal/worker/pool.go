// Package worker runs queue consumers that hand jobs to the pipelines.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"papertimes/internal/logger"
	"papertimes/internal/queue"
)

// Runner executes one job for an entity id.
type Runner interface {
	Run(ctx context.Context, id string) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, id string) error

func (f RunnerFunc) Run(ctx context.Context, id string) error { return f(ctx, id) }

// Pool consumes a queue with a fixed number of workers.
type Pool struct {
	q       queue.Queue
	workers int
	runners map[queue.Kind]Runner
	log     *slog.Logger
}

// NewPool creates a pool of workers consumers on q.
func NewPool(q queue.Queue, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		q:       q,
		workers: workers,
		runners: make(map[queue.Kind]Runner),
		log:     logger.Get().With("component", "worker"),
	}
}

// Register routes jobs of kind to r.
func (p *Pool) Register(kind queue.Kind, r Runner) *Pool {
	p.runners[kind] = r
	return p
}

// Run blocks until ctx is done or a consumer fails.
func (p *Pool) Run(ctx context.Context) error {
	p.log.Info("Starting workers", "workers", p.workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		worker := i
		g.Go(func() error {
			if err := p.q.Consume(gctx, p.dispatch); err != nil {
				return fmt.Errorf("worker %d: %w", worker, err)
			}
			return nil
		})
	}

	err := g.Wait()
	p.log.Info("Workers stopped")
	return err
}

func (p *Pool) dispatch(ctx context.Context, job queue.Job) error {
	r, ok := p.runners[job.Kind]
	if !ok {
		return fmt.Errorf("no runner for job kind %q", job.Kind)
	}

	start := time.Now()
	err := r.Run(ctx, job.ID)
	p.log.Debug("Job finished",
		"kind", job.Kind,
		"id", job.ID,
		"queued_for", start.Sub(job.EnqueuedAt),
		"duration", time.Since(start),
	)
	return err
}
