package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"papertimes/internal/config"
	"papertimes/internal/logger"
	"papertimes/internal/server"
)

// NewServeCmd creates the serve command for starting the HTTP API
func NewServeCmd() *cobra.Command {
	var (
		port    int
		host    string
		workers bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the papertimes HTTP API.

Uploads and newspaper requests are answered immediately and processed by the
job workers. With the memory queue driver the workers must run in this process.

Examples:
  # Start server on default port 8080 with in-process workers
  papertimes serve

  # API only; run 'papertimes worker' separately against RabbitMQ
  papertimes serve --workers=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host, workers)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")
	cmd.Flags().BoolVar(&workers, "workers", true, "Run job workers in this process")

	return cmd
}

func runServe(ctx context.Context, port int, host string, workers bool) error {
	log := logger.Get()
	cfg := config.Get()

	if !workers && cfg.Queue.Driver == "memory" {
		return fmt.Errorf("the memory queue needs in-process workers; use --workers or queue.driver=rabbitmq")
	}

	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := newApp(ctx, appOptions{ai: true, queue: true})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(a.documents(), a.newspapers(), a.catalog, a.db, serverCfg)

	serverErr := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		serverErr <- srv.Start()
	}()
	// nil unless workers run, so the select below never fires on it.
	var poolErr chan error
	if workers {
		poolErr = make(chan error, 1)
		go func() {
			poolErr <- a.pool().Run(ctx)
		}()
	}
	if cfg.Queue.Driver == "memory" {
		// Jobs held by a previous process's memory queue are gone.
		a.requeueOrphans(ctx)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("server error: %w", err)
		}
	case err := <-poolErr:
		if err != nil {
			runErr = fmt.Errorf("worker error: %w", err)
		}
		poolErr = nil
	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	cancel()

	// In-flight jobs hand their records back before the database closes.
	if poolErr != nil {
		if err := <-poolErr; err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("worker error: %w", err))
		}
	}

	log.Info("Server stopped")
	return runErr
}
