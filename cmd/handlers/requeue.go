package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"papertimes/internal/config"
)

// NewRequeueCmd creates the requeue command that recovers stuck jobs
func NewRequeueCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "requeue",
		Short: "Re-enqueue documents and newspapers stuck in pending or processing",
		Long: `Find documents and newspapers that have been pending or processing for
longer than --older-than and put them back on the queue. Use this after a worker
crash or a broker outage.

Example:
  papertimes requeue --older-than 1h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequeue(cmd.Context(), olderThan)
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Minimum age of stuck records (default from config: pipeline.stale_after)")

	return cmd
}

func runRequeue(ctx context.Context, olderThan time.Duration) error {
	cfg := config.Get()
	if cfg.Queue.Driver != "rabbitmq" {
		return fmt.Errorf("requeue needs a shared queue (queue.driver=rabbitmq); the memory queue lives inside 'papertimes serve'")
	}
	if olderThan <= 0 {
		olderThan = cfg.Pipeline.StaleAfter
	}

	a, err := newApp(ctx, appOptions{queue: true})
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := a.documents().RequeueStale(ctx, olderThan)
	if err != nil {
		return fmt.Errorf("failed to requeue documents: %w", err)
	}
	papers, err := a.newspapers().RequeueStale(ctx, olderThan)
	if err != nil {
		return fmt.Errorf("failed to requeue newspapers: %w", err)
	}

	fmt.Printf("Requeued %d document(s) and %d newspaper(s) older than %s\n", docs, papers, olderThan)
	return nil
}
