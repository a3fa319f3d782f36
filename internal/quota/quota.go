// Package quota enforces per-account generation limits.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"papertimes/internal/core"
	"papertimes/internal/logger"
	"papertimes/internal/persistence"
)

// DefaultFreeLimit is the number of generations a free account gets per period.
const DefaultFreeLimit = 3

// Guard checks and consumes generation quota. TryReserve must run inside the
// same transaction as the newspaper insert it pays for.
type Guard struct {
	accounts persistence.AccountRepository
	limit    int
	now      func() time.Time
	log      *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock overrides the time source used to detect period rollover.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// NewGuard creates a guard allowing free accounts limit generations per calendar month.
func NewGuard(accounts persistence.AccountRepository, limit int, opts ...Option) *Guard {
	g := &Guard{
		accounts: accounts,
		limit:    limit,
		now:      time.Now,
		log:      logger.Get().With("component", "quota"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// PeriodStart returns the first instant of the calendar month containing t, in UTC.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// TryReserve counts one generation against accountID. It returns a
// *core.QuotaDeniedError when the account may not generate, in which case
// nothing is counted.
func (g *Guard) TryReserve(ctx context.Context, accountID string, premiumTemplate bool) error {
	period := PeriodStart(g.now())

	acct, err := g.accounts.GetOrCreate(ctx, accountID, period)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	if PeriodStart(acct.PeriodStart).Before(period) {
		if err := g.accounts.ResetPeriod(ctx, accountID, period); err != nil {
			return fmt.Errorf("failed to start new quota period: %w", err)
		}
		g.log.Info("Quota period reset", "account_id", accountID, "period_start", period)
		acct.GenerationCount = 0
	}

	if acct.Tier != core.TierPremium {
		if acct.GenerationCount >= g.limit {
			return g.deny(accountID, core.DenyQuotaExceeded, acct.GenerationCount)
		}
		if premiumTemplate {
			return g.deny(accountID, core.DenyPremiumTemplate, acct.GenerationCount)
		}
	}

	ok, err := g.accounts.ReserveGeneration(ctx, accountID, g.limit)
	if err != nil {
		return err
	}
	if !ok {
		// Lost a race with a concurrent reservation.
		return g.deny(accountID, core.DenyQuotaExceeded, acct.GenerationCount)
	}

	g.log.Debug("Generation reserved", "account_id", accountID, "tier", acct.Tier, "count", acct.GenerationCount+1)
	return nil
}

func (g *Guard) deny(accountID string, reason core.DenyReason, count int) error {
	g.log.Info("Generation denied", "account_id", accountID, "reason", reason, "count", count, "limit", g.limit)
	return &core.QuotaDeniedError{Reason: reason}
}
