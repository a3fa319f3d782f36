package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{"analyze", Job{Kind: KindAnalyzeDocument, ID: "doc-1"}, false},
		{"generate", Job{Kind: KindGenerateNewspaper, ID: "np-1"}, false},
		{"missing id", Job{Kind: KindAnalyzeDocument}, true},
		{"unknown kind", Job{Kind: "resize_image", ID: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMemoryDeliversToConsumers(t *testing.T) {
	q := NewMemory(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen = map[string]Kind{}
		wg   sync.WaitGroup
	)
	wg.Add(4)
	handler := func(_ context.Context, job Job) error {
		mu.Lock()
		seen[job.ID] = job.Kind
		mu.Unlock()
		assert.False(t, job.EnqueuedAt.IsZero())
		wg.Done()
		return nil
	}

	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_ = q.Consume(ctx, handler)
			done <- struct{}{}
		}()
	}

	require.NoError(t, q.Enqueue(ctx, Job{Kind: KindAnalyzeDocument, ID: "doc-1"}))
	require.NoError(t, q.Enqueue(ctx, Job{Kind: KindAnalyzeDocument, ID: "doc-2"}))
	require.NoError(t, q.Enqueue(ctx, Job{Kind: KindGenerateNewspaper, ID: "np-1"}))
	require.NoError(t, q.Enqueue(ctx, Job{Kind: KindGenerateNewspaper, ID: "np-2"}))
	wg.Wait()

	assert.Equal(t, map[string]Kind{
		"doc-1": KindAnalyzeDocument,
		"doc-2": KindAnalyzeDocument,
		"np-1":  KindGenerateNewspaper,
		"np-2":  KindGenerateNewspaper,
	}, seen)

	require.NoError(t, q.Close())
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("consumer did not stop after Close")
		}
	}
}

func TestMemoryHandlerErrorDoesNotStopConsumer(t *testing.T) {
	q := NewMemory(4)
	ctx := context.Background()

	calls := make(chan string, 2)
	go func() {
		_ = q.Consume(ctx, func(_ context.Context, job Job) error {
			calls <- job.ID
			return errors.New("boom")
		})
	}()

	require.NoError(t, q.Enqueue(ctx, Job{Kind: KindAnalyzeDocument, ID: "a"}))
	require.NoError(t, q.Enqueue(ctx, Job{Kind: KindAnalyzeDocument, ID: "b"}))
	assert.Equal(t, "a", <-calls)
	assert.Equal(t, "b", <-calls)
	require.NoError(t, q.Close())
}

func TestMemoryEnqueueAfterClose(t *testing.T) {
	q := NewMemory(1)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	err := q.Enqueue(context.Background(), Job{Kind: KindAnalyzeDocument, ID: "doc-1"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryEnqueueRespectsContextWhenFull(t *testing.T) {
	q := NewMemory(1)
	require.NoError(t, q.Enqueue(context.Background(), Job{Kind: KindAnalyzeDocument, ID: "doc-1"}))
	assert.Equal(t, 1, q.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{Kind: KindAnalyzeDocument, ID: "doc-2"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryRejectsInvalidJob(t *testing.T) {
	q := NewMemory(1)
	assert.Error(t, q.Enqueue(context.Background(), Job{Kind: KindAnalyzeDocument}))
	assert.Equal(t, 0, q.Len())
}
