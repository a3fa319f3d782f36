package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"

	"papertimes/internal/core"
)

var documentColumns = []string{
	"id", "owner_id", "title", "authors", "source_url", "byte_size", "status",
	"analysis", "error_history", "created_at", "updated_at",
}

type documentRow struct {
	ID           string         `db:"id"`
	OwnerID      string         `db:"owner_id"`
	Title        string         `db:"title"`
	Authors      string         `db:"authors"`
	SourceURL    string         `db:"source_url"`
	ByteSize     int64          `db:"byte_size"`
	Status       string         `db:"status"`
	Analysis     sql.NullString `db:"analysis"`
	ErrorHistory string         `db:"error_history"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r documentRow) toDocument() (*core.Document, error) {
	authors, err := decodeStrings(r.Authors)
	if err != nil {
		return nil, fmt.Errorf("failed to decode authors of document %s: %w", r.ID, err)
	}
	history, err := decodeHistory(r.ErrorHistory)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", r.ID, err)
	}

	doc := &core.Document{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		Title:        r.Title,
		Authors:      authors,
		SourceURL:    r.SourceURL,
		ByteSize:     r.ByteSize,
		Status:       core.ProcessingStatus(r.Status),
		ErrorHistory: history,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.Analysis.Valid && r.Analysis.String != "" {
		var a core.Analysis
		if err := jsonUnmarshal(r.Analysis.String, &a); err != nil {
			return nil, fmt.Errorf("failed to decode analysis of document %s: %w", r.ID, err)
		}
		doc.Analysis = &a
	}
	return doc, nil
}

// sqlDocumentRepo implements DocumentRepository
type sqlDocumentRepo struct {
	s *SQLDB
}

func (r *sqlDocumentRepo) Create(ctx context.Context, doc *core.Document) error {
	authors := doc.Authors
	if authors == nil {
		authors = []string{}
	}
	authorsJSON, err := encodeJSON(authors)
	if err != nil {
		return err
	}
	historyJSON, err := encodeJSON(nonNilHistory(doc.ErrorHistory))
	if err != nil {
		return err
	}
	var analysis sql.NullString
	if doc.Analysis != nil {
		raw, err := encodeJSON(doc.Analysis)
		if err != nil {
			return err
		}
		analysis = sql.NullString{String: raw, Valid: true}
	}

	now := r.s.timestamp()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = doc.CreatedAt

	_, err = r.s.exec(ctx, r.s.sb.Insert("documents").
		Columns(documentColumns...).
		Values(doc.ID, doc.OwnerID, doc.Title, authorsJSON, doc.SourceURL, doc.ByteSize, string(doc.Status),
			analysis, historyJSON, doc.CreatedAt, doc.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (r *sqlDocumentRepo) Get(ctx context.Context, id string) (*core.Document, error) {
	var row documentRow
	err := r.s.get(ctx, &row, r.s.sb.Select(documentColumns...).From("documents").Where(sq.Eq{"id": id}))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return row.toDocument()
}

func (r *sqlDocumentRepo) GetMany(ctx context.Context, ids []string) ([]core.Document, error) {
	if len(ids) == 0 {
		return []core.Document{}, nil
	}

	var rows []documentRow
	if err := r.s.selectAll(ctx, &rows, r.s.sb.Select(documentColumns...).From("documents").Where(sq.Eq{"id": ids})); err != nil {
		return nil, fmt.Errorf("failed to get documents: %w", err)
	}

	byID := make(map[string]*core.Document, len(rows))
	for _, row := range rows {
		doc, err := row.toDocument()
		if err != nil {
			return nil, err
		}
		byID[doc.ID] = doc
	}

	docs := make([]core.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

func (r *sqlDocumentRepo) List(ctx context.Context, ownerID string, opts ListOptions) ([]core.Document, error) {
	q := r.s.sb.Select(documentColumns...).From("documents").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC", "id")
	if opts.Status != "" {
		q = q.Where(sq.Eq{"status": string(opts.Status)})
	}
	q = paginate(q, opts)

	return r.list(ctx, q)
}

func (r *sqlDocumentRepo) ListStale(ctx context.Context, status core.ProcessingStatus, cutoff time.Time, limit int) ([]core.Document, error) {
	q := r.s.sb.Select(documentColumns...).From("documents").
		Where(sq.Eq{"status": string(status)}).
		Where(sq.Lt{"updated_at": cutoff.UTC()}).
		OrderBy("updated_at")
	q = paginate(q, ListOptions{Limit: limit})

	return r.list(ctx, q)
}

func (r *sqlDocumentRepo) list(ctx context.Context, q sq.SelectBuilder) ([]core.Document, error) {
	var rows []documentRow
	if err := r.s.selectAll(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	docs := make([]core.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.toDocument()
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (r *sqlDocumentRepo) Transition(ctx context.Context, id string, from []core.ProcessingStatus, to core.ProcessingStatus) (bool, error) {
	n, err := r.s.exec(ctx, r.s.sb.Update("documents").
		Set("status", string(to)).
		Set("updated_at", r.s.timestamp()).
		Where(sq.Eq{"id": id, "status": statusStrings(from)}))
	if err != nil {
		return false, fmt.Errorf("failed to update document status: %w", err)
	}
	return n > 0, nil
}

func (r *sqlDocumentRepo) Complete(ctx context.Context, id string, analysis core.Analysis) (bool, error) {
	raw, err := encodeJSON(analysis)
	if err != nil {
		return false, err
	}

	n, err := r.s.exec(ctx, r.s.sb.Update("documents").
		Set("analysis", raw).
		Set("status", string(core.StatusCompleted)).
		Set("updated_at", r.s.timestamp()).
		Where(sq.Eq{"id": id, "status": string(core.StatusProcessing)}))
	if err != nil {
		return false, fmt.Errorf("failed to complete document: %w", err)
	}
	return n > 0, nil
}

func (r *sqlDocumentRepo) Fail(ctx context.Context, id string, rec core.ErrorRecord, keep int) error {
	return r.s.WithTransaction(ctx, func(ctx context.Context) error {
		var raw string
		err := r.s.get(ctx, &raw, r.s.forUpdate(r.s.sb.Select("error_history").From("documents").Where(sq.Eq{"id": id})))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("document %s: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read error history: %w", err)
		}

		history, err := appendHistory(raw, rec, keep)
		if err != nil {
			return err
		}

		_, err = r.s.exec(ctx, r.s.sb.Update("documents").
			Set("status", string(core.StatusFailed)).
			Set("error_history", history).
			Set("updated_at", r.s.timestamp()).
			Where(sq.Eq{"id": id, "status": statusStrings([]core.ProcessingStatus{core.StatusPending, core.StatusProcessing})}))
		if err != nil {
			return fmt.Errorf("failed to mark document failed: %w", err)
		}
		return nil
	})
}

func (r *sqlDocumentRepo) Delete(ctx context.Context, id string) error {
	n, err := r.s.exec(ctx, r.s.sb.Delete("documents").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// paginate applies limit and offset. SQLite rejects OFFSET without LIMIT, so an
// offset alone gets an unbounded limit.
func paginate(q sq.SelectBuilder, opts ListOptions) sq.SelectBuilder {
	limit := opts.Limit
	if limit <= 0 && opts.Offset > 0 {
		limit = math.MaxInt32
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if opts.Offset > 0 {
		q = q.Offset(uint64(opts.Offset))
	}
	return q
}

func nonNilHistory(h []core.ErrorRecord) []core.ErrorRecord {
	if h == nil {
		return []core.ErrorRecord{}
	}
	return h
}
