// Package services implements the request-side operations on documents and newspapers.
package services

import (
	"context"
	"time"

	"papertimes/internal/core"
	"papertimes/internal/persistence"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

// UploadRequest describes a newly uploaded document
type UploadRequest struct {
	OwnerID   string
	Title     string
	Authors   []string
	SourceURL string
	ByteSize  int64
}

// CreateRequest asks for a newspaper built from completed documents
type CreateRequest struct {
	AccountID   string
	DocumentIDs []string // first entry is the main paper
	TemplateID  string
	Visibility  core.Visibility
}

// Documents manages uploaded documents and their analysis runs
type Documents interface {
	// Upload records a pending document and enqueues its analysis
	Upload(ctx context.Context, req UploadRequest) (*core.Document, error)

	// Get returns a document owned by ownerID
	Get(ctx context.Context, ownerID, id string) (*core.Document, error)

	// List returns ownerID's documents, newest first
	List(ctx context.Context, ownerID string, opts persistence.ListOptions) ([]core.Document, error)

	// Retry moves a failed document back to pending and enqueues it again
	Retry(ctx context.Context, ownerID, id string) (*core.Document, error)

	// Delete removes a document owned by ownerID
	Delete(ctx context.Context, ownerID, id string) error

	// RequeueStale re-enqueues documents stuck in pending or processing for longer than olderThan
	RequeueStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// Newspapers manages generated newspapers
type Newspapers interface {
	// Create validates the request, reserves quota, records a pending newspaper and enqueues generation
	Create(ctx context.Context, req CreateRequest) (*core.Newspaper, error)

	// Get returns a newspaper visible to viewerID, counting views by anyone but the creator
	Get(ctx context.Context, viewerID, id string) (*core.Newspaper, error)

	// List returns creatorID's newspapers, newest first
	List(ctx context.Context, creatorID string, opts persistence.ListOptions) ([]core.Newspaper, error)

	// SetVisibility changes who may read a newspaper; creator only
	SetVisibility(ctx context.Context, accountID, id string, v core.Visibility) (*core.Newspaper, error)

	// Delete removes a newspaper; creator only
	Delete(ctx context.Context, accountID, id string) error

	// RegenerateHeadline writes a headline for free text without persisting anything
	RegenerateHeadline(ctx context.Context, content string) (core.Headline, error)

	// RequeueStale re-enqueues newspapers stuck in pending or processing for longer than olderThan
	RequeueStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// Option configures a service
type Option func(*options)

type options struct {
	now          func() time.Time
	newID        func() string
	historyLimit int
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides how entity ids are minted
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// WithErrorHistoryLimit sets how many error records are kept per entity
func WithErrorHistoryLimit(n int) Option {
	return func(o *options) { o.historyLimit = n }
}
