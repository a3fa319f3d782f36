package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"papertimes/internal/core"
	"papertimes/internal/logger"
	"papertimes/internal/persistence"
	"papertimes/internal/queue"
	"papertimes/internal/templates"
)

// QuotaGuard reserves generation quota inside the caller's transaction.
type QuotaGuard interface {
	TryReserve(ctx context.Context, accountID string, premiumTemplate bool) error
}

// HeadlineWriter writes a headline for free text.
type HeadlineWriter interface {
	Write(ctx context.Context, content string) (core.Headline, error)
}

// NewspaperService implements Newspapers.
type NewspaperService struct {
	db        persistence.Database
	q         queue.Queue
	catalog   *templates.Catalog
	guard     QuotaGuard
	headlines HeadlineWriter
	opt       options
	log       *slog.Logger
}

// NewNewspaperService creates the newspaper service.
func NewNewspaperService(db persistence.Database, q queue.Queue, catalog *templates.Catalog, guard QuotaGuard, headlines HeadlineWriter, opts ...Option) *NewspaperService {
	return &NewspaperService{
		db:        db,
		q:         q,
		catalog:   catalog,
		guard:     guard,
		headlines: headlines,
		opt:       newOptions(opts),
		log:       logger.Get().With("component", "newspapers"),
	}
}

func (s *NewspaperService) Create(ctx context.Context, req CreateRequest) (*core.Newspaper, error) {
	if req.AccountID == "" {
		return nil, fmt.Errorf("account is required: %w", core.ErrInvalidInput)
	}
	if err := validateDocumentIDs(req.DocumentIDs); err != nil {
		return nil, err
	}
	visibility := req.Visibility
	if visibility == "" {
		visibility = core.VisibilityPrivate
	}
	if !visibility.Valid() {
		return nil, fmt.Errorf("unknown visibility %q: %w", visibility, core.ErrInvalidInput)
	}

	tmpl, err := s.catalog.Get(req.TemplateID)
	if err != nil {
		return nil, err
	}
	if err := s.checkDocuments(ctx, req.AccountID, req.DocumentIDs); err != nil {
		return nil, err
	}

	n := &core.Newspaper{
		ID:                s.opt.newID(),
		CreatorID:         req.AccountID,
		SourceDocumentIDs: req.DocumentIDs,
		TemplateID:        tmpl.ID,
		Status:            core.StatusPending,
		Visibility:        visibility,
		CreatedAt:         s.opt.now(),
	}

	// The reservation and the insert commit or roll back together.
	err = s.db.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.guard.TryReserve(ctx, req.AccountID, tmpl.Premium); err != nil {
			return err
		}
		return s.db.Newspapers().Create(ctx, n)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Newspaper created",
		"newspaper_id", n.ID,
		"creator_id", n.CreatorID,
		"template_id", n.TemplateID,
		"documents", len(n.SourceDocumentIDs))

	if err := s.q.Enqueue(ctx, s.opt.job(queue.KindGenerateNewspaper, n.ID)); err != nil {
		rec := s.opt.enqueueRecord(err)
		s.log.Error("Failed to enqueue generation", "error", err, "newspaper_id", n.ID)
		if ferr := s.db.Newspapers().Fail(context.WithoutCancel(ctx), n.ID, rec, s.opt.historyLimit); ferr != nil {
			s.log.Error("Failed to record enqueue failure", "error", ferr, "newspaper_id", n.ID)
		} else {
			n.Status = core.StatusFailed
			n.ErrorHistory = append(n.ErrorHistory, rec)
		}
		return n, fmt.Errorf("failed to schedule generation: %w", err)
	}
	return n, nil
}

func validateDocumentIDs(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("at least one document is required: %w", core.ErrInvalidInput)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("document id cannot be empty: %w", core.ErrInvalidInput)
		}
		if seen[id] {
			return fmt.Errorf("document %s listed twice: %w", id, core.ErrInvalidInput)
		}
		seen[id] = true
	}
	return nil
}

// checkDocuments requires every document to exist, belong to accountID and be completed.
func (s *NewspaperService) checkDocuments(ctx context.Context, accountID string, ids []string) error {
	docs, err := s.db.Documents().GetMany(ctx, ids)
	if err != nil {
		return err
	}

	found := make(map[string]core.Document, len(docs))
	for _, d := range docs {
		if d.OwnerID == accountID {
			found[d.ID] = d
		}
	}

	var notReady []string
	for _, id := range ids {
		d, ok := found[id]
		if !ok {
			return fmt.Errorf("document %s: %w", id, core.ErrNotFound)
		}
		if d.Status != core.StatusCompleted {
			notReady = append(notReady, id)
		}
	}
	if len(notReady) > 0 {
		return &core.NotReadyError{DocumentIDs: notReady}
	}
	return nil
}

func (s *NewspaperService) Get(ctx context.Context, viewerID, id string) (*core.Newspaper, error) {
	n, err := s.db.Newspapers().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.CreatorID == viewerID {
		return n, nil
	}
	if n.Visibility == core.VisibilityPrivate {
		return nil, fmt.Errorf("newspaper %s: %w", id, core.ErrNotFound)
	}

	if err := s.db.Newspapers().IncrementViewCount(ctx, id); err != nil {
		return nil, err
	}
	n.ViewCount++
	return n, nil
}

func (s *NewspaperService) List(ctx context.Context, creatorID string, opts persistence.ListOptions) ([]core.Newspaper, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", opts.Status, core.ErrInvalidInput)
	}
	return s.db.Newspapers().List(ctx, creatorID, opts)
}

func (s *NewspaperService) owned(ctx context.Context, accountID, id string) (*core.Newspaper, error) {
	n, err := s.db.Newspapers().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.CreatorID != accountID {
		return nil, fmt.Errorf("newspaper %s: %w", id, core.ErrNotFound)
	}
	return n, nil
}

func (s *NewspaperService) SetVisibility(ctx context.Context, accountID, id string, v core.Visibility) (*core.Newspaper, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("unknown visibility %q: %w", v, core.ErrInvalidInput)
	}
	n, err := s.owned(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Newspapers().SetVisibility(ctx, id, v); err != nil {
		return nil, err
	}
	n.Visibility = v
	return n, nil
}

func (s *NewspaperService) Delete(ctx context.Context, accountID, id string) error {
	if _, err := s.owned(ctx, accountID, id); err != nil {
		return err
	}
	if err := s.db.Newspapers().Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Newspaper deleted", "newspaper_id", id)
	return nil
}

func (s *NewspaperService) RegenerateHeadline(ctx context.Context, content string) (core.Headline, error) {
	return s.headlines.Write(ctx, content)
}

func (s *NewspaperService) RequeueStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.opt.now().Add(-olderThan)
	repo := s.db.Newspapers()
	count := 0

	for _, status := range []core.ProcessingStatus{core.StatusProcessing, core.StatusPending} {
		papers, err := repo.ListStale(ctx, status, cutoff, staleBatch)
		if err != nil {
			return count, err
		}
		for _, n := range papers {
			if status == core.StatusProcessing {
				ok, err := repo.Transition(ctx, n.ID, []core.ProcessingStatus{core.StatusProcessing}, core.StatusPending)
				if err != nil {
					return count, err
				}
				if !ok {
					continue
				}
			}
			if err := s.q.Enqueue(ctx, s.opt.job(queue.KindGenerateNewspaper, n.ID)); err != nil {
				return count, fmt.Errorf("failed to requeue newspaper %s: %w", n.ID, err)
			}
			s.log.Info("Newspaper requeued", "newspaper_id", n.ID, "was", status, "updated_at", n.UpdatedAt)
			count++
		}
	}
	return count, nil
}
