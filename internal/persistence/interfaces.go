// Package persistence is the Job Store: documents, newspapers and account quota state.
package persistence

import (
	"context"
	"time"

	"papertimes/internal/core"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

// ListOptions provides filtering and pagination for list queries
type ListOptions struct {
	Limit  int                   // Maximum number of results (0 for no limit)
	Offset int                   // Number of results to skip
	Status core.ProcessingStatus // Optional status filter
}

// DocumentRepository handles document persistence operations
type DocumentRepository interface {
	// Create inserts a new document
	Create(ctx context.Context, doc *core.Document) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*core.Document, error)

	// GetMany retrieves documents in the order of ids; unknown ids are omitted
	GetMany(ctx context.Context, ids []string) ([]core.Document, error)

	// List retrieves an owner's documents, newest first
	List(ctx context.Context, ownerID string, opts ListOptions) ([]core.Document, error)

	// ListStale retrieves documents in status whose last update is before cutoff
	ListStale(ctx context.Context, status core.ProcessingStatus, cutoff time.Time, limit int) ([]core.Document, error)

	// Transition moves a document from one of the from statuses to to.
	// It reports false when the document was not in any of them.
	Transition(ctx context.Context, id string, from []core.ProcessingStatus, to core.ProcessingStatus) (bool, error)

	// Complete stores the analysis and marks a processing document completed
	Complete(ctx context.Context, id string, analysis core.Analysis) (bool, error)

	// Fail marks a pending or processing document failed and appends rec,
	// keeping the newest keep records. A stored analysis is never touched.
	Fail(ctx context.Context, id string, rec core.ErrorRecord, keep int) error

	// Delete removes a document by ID
	Delete(ctx context.Context, id string) error
}

// NewspaperRepository handles newspaper persistence operations
type NewspaperRepository interface {
	// Create inserts a new newspaper
	Create(ctx context.Context, n *core.Newspaper) error

	// Get retrieves a newspaper by ID
	Get(ctx context.Context, id string) (*core.Newspaper, error)

	// List retrieves a creator's newspapers, newest first
	List(ctx context.Context, creatorID string, opts ListOptions) ([]core.Newspaper, error)

	// ListStale retrieves newspapers in status whose last update is before cutoff
	ListStale(ctx context.Context, status core.ProcessingStatus, cutoff time.Time, limit int) ([]core.Newspaper, error)

	// Transition moves a newspaper between statuses; see DocumentRepository.Transition
	Transition(ctx context.Context, id string, from []core.ProcessingStatus, to core.ProcessingStatus) (bool, error)

	// Complete stores the content and marks a processing newspaper completed
	Complete(ctx context.Context, id string, content core.NewspaperContent) (bool, error)

	// Fail marks a pending or processing newspaper failed and appends rec
	Fail(ctx context.Context, id string, rec core.ErrorRecord, keep int) error

	// SetVisibility updates the share visibility
	SetVisibility(ctx context.Context, id string, v core.Visibility) error

	// IncrementViewCount atomically adds one to the view count
	IncrementViewCount(ctx context.Context, id string) error

	// Delete removes a newspaper by ID
	Delete(ctx context.Context, id string) error
}

// AccountRepository handles account quota state
type AccountRepository interface {
	// GetOrCreate returns the account, provisioning a free one starting its period at periodStart
	GetOrCreate(ctx context.Context, id string, periodStart time.Time) (*core.Account, error)

	// ResetPeriod zeroes the generation count and starts a new period
	ResetPeriod(ctx context.Context, id string, periodStart time.Time) error

	// ReserveGeneration increments the generation count when the account is premium
	// or below limit, in a single conditional update. It reports whether a row changed.
	ReserveGeneration(ctx context.Context, id string, limit int) (bool, error)

	// SetTier changes the membership tier
	SetTier(ctx context.Context, id string, tier core.MembershipTier) error
}

// Database aggregates the repositories. Repository calls made with a context
// returned inside WithTransaction run in that transaction.
type Database interface {
	// Documents returns the document repository
	Documents() DocumentRepository

	// Newspapers returns the newspaper repository
	Newspapers() NewspaperRepository

	// Accounts returns the account repository
	Accounts() AccountRepository

	// WithTransaction runs fn in a transaction, committing when fn returns nil
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Ping verifies the database connection
	Ping(ctx context.Context) error

	// Close closes the database connection
	Close() error
}
