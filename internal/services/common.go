package services

import (
	"time"

	"github.com/google/uuid"

	"papertimes/internal/core"
	"papertimes/internal/queue"
)

// staleBatch bounds how many entities one RequeueStale call recovers per status.
const staleBatch = 100

func newOptions(opts []Option) options {
	o := options{
		now:          time.Now,
		newID:        uuid.NewString,
		historyLimit: 20,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) job(kind queue.Kind, id string) queue.Job {
	return queue.Job{Kind: kind, ID: id, EnqueuedAt: o.now().UTC()}
}

func (o options) enqueueRecord(err error) core.ErrorRecord {
	return core.ErrorRecord{
		Timestamp: o.now().UTC(),
		Code:      core.CodeEnqueueFailed,
		Message:   "enqueue failed: " + err.Error(),
	}
}
