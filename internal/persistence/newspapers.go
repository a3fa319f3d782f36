package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"papertimes/internal/core"
)

var newspaperColumns = []string{
	"id", "creator_id", "source_document_ids", "template_id", "status", "content",
	"visibility", "view_count", "error_history", "created_at", "updated_at",
}

type newspaperRow struct {
	ID                string         `db:"id"`
	CreatorID         string         `db:"creator_id"`
	SourceDocumentIDs string         `db:"source_document_ids"`
	TemplateID        string         `db:"template_id"`
	Status            string         `db:"status"`
	Content           sql.NullString `db:"content"`
	Visibility        string         `db:"visibility"`
	ViewCount         int            `db:"view_count"`
	ErrorHistory      string         `db:"error_history"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (r newspaperRow) toNewspaper() (*core.Newspaper, error) {
	ids, err := decodeStrings(r.SourceDocumentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to decode source documents of newspaper %s: %w", r.ID, err)
	}
	history, err := decodeHistory(r.ErrorHistory)
	if err != nil {
		return nil, fmt.Errorf("newspaper %s: %w", r.ID, err)
	}

	n := &core.Newspaper{
		ID:                r.ID,
		CreatorID:         r.CreatorID,
		SourceDocumentIDs: ids,
		TemplateID:        r.TemplateID,
		Status:            core.ProcessingStatus(r.Status),
		Visibility:        core.Visibility(r.Visibility),
		ViewCount:         r.ViewCount,
		ErrorHistory:      history,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
	if r.Content.Valid && r.Content.String != "" {
		var c core.NewspaperContent
		if err := jsonUnmarshal(r.Content.String, &c); err != nil {
			return nil, fmt.Errorf("failed to decode content of newspaper %s: %w", r.ID, err)
		}
		n.Content = &c
	}
	return n, nil
}

// sqlNewspaperRepo implements NewspaperRepository
type sqlNewspaperRepo struct {
	s *SQLDB
}

func (r *sqlNewspaperRepo) Create(ctx context.Context, n *core.Newspaper) error {
	if len(n.SourceDocumentIDs) == 0 {
		return fmt.Errorf("newspaper needs at least one source document: %w", core.ErrInvalidInput)
	}
	idsJSON, err := encodeJSON(n.SourceDocumentIDs)
	if err != nil {
		return err
	}
	historyJSON, err := encodeJSON(nonNilHistory(n.ErrorHistory))
	if err != nil {
		return err
	}
	var content sql.NullString
	if n.Content != nil {
		raw, err := encodeJSON(n.Content)
		if err != nil {
			return err
		}
		content = sql.NullString{String: raw, Valid: true}
	}
	if n.Visibility == "" {
		n.Visibility = core.VisibilityPrivate
	}

	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.s.timestamp()
	}
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.CreatedAt

	_, err = r.s.exec(ctx, r.s.sb.Insert("newspapers").
		Columns(newspaperColumns...).
		Values(n.ID, n.CreatorID, idsJSON, n.TemplateID, string(n.Status), content,
			string(n.Visibility), n.ViewCount, historyJSON, n.CreatedAt, n.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert newspaper: %w", err)
	}
	return nil
}

func (r *sqlNewspaperRepo) Get(ctx context.Context, id string) (*core.Newspaper, error) {
	var row newspaperRow
	err := r.s.get(ctx, &row, r.s.sb.Select(newspaperColumns...).From("newspapers").Where(sq.Eq{"id": id}))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("newspaper %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get newspaper: %w", err)
	}
	return row.toNewspaper()
}

func (r *sqlNewspaperRepo) List(ctx context.Context, creatorID string, opts ListOptions) ([]core.Newspaper, error) {
	q := r.s.sb.Select(newspaperColumns...).From("newspapers").
		Where(sq.Eq{"creator_id": creatorID}).
		OrderBy("created_at DESC", "id")
	if opts.Status != "" {
		q = q.Where(sq.Eq{"status": string(opts.Status)})
	}
	return r.list(ctx, paginate(q, opts))
}

func (r *sqlNewspaperRepo) ListStale(ctx context.Context, status core.ProcessingStatus, cutoff time.Time, limit int) ([]core.Newspaper, error) {
	q := r.s.sb.Select(newspaperColumns...).From("newspapers").
		Where(sq.Eq{"status": string(status)}).
		Where(sq.Lt{"updated_at": cutoff.UTC()}).
		OrderBy("updated_at")
	return r.list(ctx, paginate(q, ListOptions{Limit: limit}))
}

func (r *sqlNewspaperRepo) list(ctx context.Context, q sq.SelectBuilder) ([]core.Newspaper, error) {
	var rows []newspaperRow
	if err := r.s.selectAll(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("failed to list newspapers: %w", err)
	}

	out := make([]core.Newspaper, 0, len(rows))
	for _, row := range rows {
		n, err := row.toNewspaper()
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}

func (r *sqlNewspaperRepo) Transition(ctx context.Context, id string, from []core.ProcessingStatus, to core.ProcessingStatus) (bool, error) {
	n, err := r.s.exec(ctx, r.s.sb.Update("newspapers").
		Set("status", string(to)).
		Set("updated_at", r.s.timestamp()).
		Where(sq.Eq{"id": id, "status": statusStrings(from)}))
	if err != nil {
		return false, fmt.Errorf("failed to update newspaper status: %w", err)
	}
	return n > 0, nil
}

func (r *sqlNewspaperRepo) Complete(ctx context.Context, id string, content core.NewspaperContent) (bool, error) {
	raw, err := encodeJSON(content)
	if err != nil {
		return false, err
	}

	n, err := r.s.exec(ctx, r.s.sb.Update("newspapers").
		Set("content", raw).
		Set("status", string(core.StatusCompleted)).
		Set("updated_at", r.s.timestamp()).
		Where(sq.Eq{"id": id, "status": string(core.StatusProcessing)}))
	if err != nil {
		return false, fmt.Errorf("failed to complete newspaper: %w", err)
	}
	return n > 0, nil
}

func (r *sqlNewspaperRepo) Fail(ctx context.Context, id string, rec core.ErrorRecord, keep int) error {
	return r.s.WithTransaction(ctx, func(ctx context.Context) error {
		var raw string
		err := r.s.get(ctx, &raw, r.s.forUpdate(r.s.sb.Select("error_history").From("newspapers").Where(sq.Eq{"id": id})))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("newspaper %s: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to read error history: %w", err)
		}

		history, err := appendHistory(raw, rec, keep)
		if err != nil {
			return err
		}

		_, err = r.s.exec(ctx, r.s.sb.Update("newspapers").
			Set("status", string(core.StatusFailed)).
			Set("error_history", history).
			Set("updated_at", r.s.timestamp()).
			Where(sq.Eq{"id": id, "status": statusStrings([]core.ProcessingStatus{core.StatusPending, core.StatusProcessing})}))
		if err != nil {
			return fmt.Errorf("failed to mark newspaper failed: %w", err)
		}
		return nil
	})
}

func (r *sqlNewspaperRepo) SetVisibility(ctx context.Context, id string, v core.Visibility) error {
	n, err := r.s.exec(ctx, r.s.sb.Update("newspapers").
		Set("visibility", string(v)).
		Set("updated_at", r.s.timestamp()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to update visibility: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("newspaper %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *sqlNewspaperRepo) IncrementViewCount(ctx context.Context, id string) error {
	n, err := r.s.exec(ctx, r.s.sb.Update("newspapers").
		Set("view_count", sq.Expr("view_count + 1")).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("newspaper %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *sqlNewspaperRepo) Delete(ctx context.Context, id string) error {
	n, err := r.s.exec(ctx, r.s.sb.Delete("newspapers").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to delete newspaper: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("newspaper %s: %w", id, core.ErrNotFound)
	}
	return nil
}
