package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"papertimes/internal/config"
	"papertimes/internal/logger"
)

// NewWorkerCmd creates the worker command that processes queued jobs
func NewWorkerCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Process queued analysis and generation jobs",
		Long: `Consume jobs from the RabbitMQ queue and run document analysis and
newspaper generation. Several worker processes may share one queue.

Example:
  papertimes worker --concurrency 8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), workers)
		},
	}

	cmd.Flags().IntVarP(&workers, "concurrency", "c", 0, "Number of concurrent jobs (default from config: queue.workers)")

	return cmd
}

func runWorker(ctx context.Context, workers int) error {
	cfg := config.Get()
	if cfg.Queue.Driver != "rabbitmq" {
		return fmt.Errorf("a standalone worker needs queue.driver=rabbitmq; with the memory queue use 'papertimes serve'")
	}
	if workers > 0 {
		cfg.Queue.Workers = workers
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{ai: true, queue: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.pool().Run(ctx); err != nil {
		return fmt.Errorf("worker failed: %w", err)
	}
	logger.Info("Worker stopped")
	return nil
}
