package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"papertimes/internal/logger"
)

// Memory is an in-process queue backed by a buffered channel.
type Memory struct {
	jobs   chan Job
	mu     sync.RWMutex
	closed bool
	log    *slog.Logger
}

// NewMemory creates an in-process queue holding up to buffer jobs.
func NewMemory(buffer int) *Memory {
	if buffer < 1 {
		buffer = 1
	}
	return &Memory{
		jobs: make(chan Job, buffer),
		log:  logger.Get().With("component", "queue", "driver", "memory"),
	}
}

func (m *Memory) Enqueue(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}

	select {
	case m.jobs <- job:
		m.log.Debug("Job enqueued", "kind", job.Kind, "id", job.ID)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) Consume(ctx context.Context, h Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job, ok := <-m.jobs:
			if !ok {
				return nil
			}
			if err := h(ctx, job); err != nil {
				m.log.Error("Job failed", "error", err, "kind", job.Kind, "id", job.ID)
			}
		}
	}
}

// Len reports the number of buffered jobs.
func (m *Memory) Len() int {
	return len(m.jobs)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.jobs)
	}
	return nil
}
