package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"papertimes/internal/core"
	"papertimes/internal/logger"
	"papertimes/internal/persistence"
	"papertimes/internal/queue"
)

// DocumentService implements Documents.
type DocumentService struct {
	db  persistence.Database
	q   queue.Queue
	opt options
	log *slog.Logger
}

// NewDocumentService creates the document service.
func NewDocumentService(db persistence.Database, q queue.Queue, opts ...Option) *DocumentService {
	return &DocumentService{
		db:  db,
		q:   q,
		opt: newOptions(opts),
		log: logger.Get().With("component", "documents"),
	}
}

func (s *DocumentService) Upload(ctx context.Context, req UploadRequest) (*core.Document, error) {
	if err := validateUpload(req); err != nil {
		return nil, err
	}

	doc := &core.Document{
		ID:        s.opt.newID(),
		OwnerID:   req.OwnerID,
		Title:     strings.TrimSpace(req.Title),
		Authors:   req.Authors,
		SourceURL: strings.TrimSpace(req.SourceURL),
		ByteSize:  req.ByteSize,
		Status:    core.StatusPending,
		CreatedAt: s.opt.now(),
	}
	if err := s.db.Documents().Create(ctx, doc); err != nil {
		return nil, err
	}
	s.log.Info("Document uploaded", "document_id", doc.ID, "owner_id", doc.OwnerID)

	if err := s.enqueue(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

func validateUpload(req UploadRequest) error {
	if strings.TrimSpace(req.OwnerID) == "" {
		return fmt.Errorf("owner is required: %w", core.ErrInvalidInput)
	}
	raw := strings.TrimSpace(req.SourceURL)
	if raw == "" {
		return fmt.Errorf("source url is required: %w", core.ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("source url %q: %v: %w", raw, err, core.ErrInvalidInput)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("source url must be http or https, got %q: %w", u.Scheme, core.ErrInvalidInput)
	}
	if u.Host == "" {
		return fmt.Errorf("source url %q has no host: %w", raw, core.ErrInvalidInput)
	}
	if req.ByteSize < 0 {
		return fmt.Errorf("byte size cannot be negative: %w", core.ErrInvalidInput)
	}
	return nil
}

// enqueue schedules analysis. A document that cannot be scheduled is marked
// failed so it does not sit in pending forever.
func (s *DocumentService) enqueue(ctx context.Context, doc *core.Document) error {
	err := s.q.Enqueue(ctx, s.opt.job(queue.KindAnalyzeDocument, doc.ID))
	if err == nil {
		return nil
	}

	rec := s.opt.enqueueRecord(err)
	s.log.Error("Failed to enqueue analysis", "error", err, "document_id", doc.ID)
	if ferr := s.db.Documents().Fail(context.WithoutCancel(ctx), doc.ID, rec, s.opt.historyLimit); ferr != nil {
		s.log.Error("Failed to record enqueue failure", "error", ferr, "document_id", doc.ID)
	} else {
		doc.Status = core.StatusFailed
		doc.ErrorHistory = append(doc.ErrorHistory, rec)
	}
	return fmt.Errorf("failed to schedule analysis: %w", err)
}

func (s *DocumentService) Get(ctx context.Context, ownerID, id string) (*core.Document, error) {
	doc, err := s.db.Documents().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, fmt.Errorf("document %s: %w", id, core.ErrNotFound)
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, ownerID string, opts persistence.ListOptions) ([]core.Document, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", opts.Status, core.ErrInvalidInput)
	}
	return s.db.Documents().List(ctx, ownerID, opts)
}

func (s *DocumentService) Retry(ctx context.Context, ownerID, id string) (*core.Document, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}

	ok, err := s.db.Documents().Transition(ctx, id, []core.ProcessingStatus{core.StatusFailed}, core.StatusPending)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("only failed documents can be retried: %w", core.ErrConflict)
	}

	doc, err := s.db.Documents().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("Document retry requested", "document_id", id)
	if err := s.enqueue(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

func (s *DocumentService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.db.Documents().Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Document deleted", "document_id", id)
	return nil
}

func (s *DocumentService) RequeueStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.opt.now().Add(-olderThan)
	repo := s.db.Documents()
	count := 0

	for _, status := range []core.ProcessingStatus{core.StatusProcessing, core.StatusPending} {
		docs, err := repo.ListStale(ctx, status, cutoff, staleBatch)
		if err != nil {
			return count, err
		}
		for i := range docs {
			doc := &docs[i]
			if status == core.StatusProcessing {
				ok, err := repo.Transition(ctx, doc.ID, []core.ProcessingStatus{core.StatusProcessing}, core.StatusPending)
				if err != nil {
					return count, err
				}
				if !ok {
					continue
				}
			}
			if err := s.q.Enqueue(ctx, s.opt.job(queue.KindAnalyzeDocument, doc.ID)); err != nil {
				return count, fmt.Errorf("failed to requeue document %s: %w", doc.ID, err)
			}
			s.log.Info("Document requeued", "document_id", doc.ID, "was", status, "updated_at", doc.UpdatedAt)
			count++
		}
	}
	return count, nil
}
