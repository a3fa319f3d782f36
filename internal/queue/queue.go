// Package queue carries pipeline jobs from the request path to the workers.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind selects the pipeline that runs a job.
type Kind string

const (
	KindAnalyzeDocument   Kind = "analyze_document"
	KindGenerateNewspaper Kind = "generate_newspaper"
)

// Job is one unit of background work. Delivery is at least once.
type Job struct {
	Kind       Kind      `json:"kind"`
	ID         string    `json:"id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Validate checks the job has a known kind and an entity id.
func (j Job) Validate() error {
	if j.ID == "" {
		return errors.New("job id is required")
	}
	switch j.Kind {
	case KindAnalyzeDocument, KindGenerateNewspaper:
		return nil
	}
	return fmt.Errorf("unknown job kind %q", j.Kind)
}

// Handler runs a job. A returned error is logged and the job is not redelivered.
type Handler func(ctx context.Context, job Job) error

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("queue closed")

// Queue is the job transport.
type Queue interface {
	// Enqueue publishes a job
	Enqueue(ctx context.Context, job Job) error

	// Consume delivers jobs to h until ctx is done or the queue is closed.
	// It may be called from several goroutines.
	Consume(ctx context.Context, h Handler) error

	// Close releases the transport
	Close() error
}
