package persistence

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"papertimes/internal/core"
)

type accountRow struct {
	ID              string    `db:"id"`
	MembershipTier  string    `db:"membership_tier"`
	GenerationCount int       `db:"generation_count"`
	PeriodStart     time.Time `db:"period_start"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// sqlAccountRepo implements AccountRepository
type sqlAccountRepo struct {
	s *SQLDB
}

func (r *sqlAccountRepo) GetOrCreate(ctx context.Context, id string, periodStart time.Time) (*core.Account, error) {
	_, err := r.s.exec(ctx, r.s.sb.Insert("accounts").
		Columns("id", "membership_tier", "generation_count", "period_start", "updated_at").
		Values(id, string(core.TierFree), 0, periodStart.UTC(), r.s.timestamp()).
		Suffix("ON CONFLICT (id) DO NOTHING"))
	if err != nil {
		return nil, fmt.Errorf("failed to provision account: %w", err)
	}

	var row accountRow
	err = r.s.get(ctx, &row, r.s.forUpdate(r.s.sb.
		Select("id", "membership_tier", "generation_count", "period_start", "updated_at").
		From("accounts").
		Where(sq.Eq{"id": id})))
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &core.Account{
		ID:              row.ID,
		Tier:            core.MembershipTier(row.MembershipTier),
		GenerationCount: row.GenerationCount,
		PeriodStart:     row.PeriodStart.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}, nil
}

func (r *sqlAccountRepo) ResetPeriod(ctx context.Context, id string, periodStart time.Time) error {
	n, err := r.s.exec(ctx, r.s.sb.Update("accounts").
		Set("generation_count", 0).
		Set("period_start", periodStart.UTC()).
		Set("updated_at", r.s.timestamp()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to reset account period: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *sqlAccountRepo) ReserveGeneration(ctx context.Context, id string, limit int) (bool, error) {
	n, err := r.s.exec(ctx, r.s.sb.Update("accounts").
		Set("generation_count", sq.Expr("generation_count + 1")).
		Set("updated_at", r.s.timestamp()).
		Where(sq.Eq{"id": id}).
		Where(sq.Or{
			sq.Eq{"membership_tier": string(core.TierPremium)},
			sq.Lt{"generation_count": limit},
		}))
	if err != nil {
		return false, fmt.Errorf("failed to reserve generation: %w", err)
	}
	return n > 0, nil
}

func (r *sqlAccountRepo) SetTier(ctx context.Context, id string, tier core.MembershipTier) error {
	_, err := r.s.exec(ctx, r.s.sb.Insert("accounts").
		Columns("id", "membership_tier", "generation_count", "period_start", "updated_at").
		Values(id, string(tier), 0, r.s.timestamp(), r.s.timestamp()).
		Suffix("ON CONFLICT (id) DO UPDATE SET membership_tier = EXCLUDED.membership_tier, updated_at = EXCLUDED.updated_at"))
	if err != nil {
		return fmt.Errorf("failed to set membership tier: %w", err)
	}
	return nil
}
