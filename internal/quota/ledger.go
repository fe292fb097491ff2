// Package quota enforces per-plan usage caps over daily usage records.
//
// Storage granularity is always one record per (user, date). Daily plans
// compare today's counter against the cap; monthly plans compare the sum of
// counters since the 1st of the current month. In both cases the comparison
// uses the pre-increment value and the increment lands on today's record.
//
// The check and the increment are separate statements on purpose: two truly
// concurrent requests for the same user can both read a stale counter and
// both be admitted, overshooting the cap by at most the number of in-flight
// requests. That bounded race is accepted at this service's scale.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"server/internal/analytics"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// Ledger tracks and enforces per-user consumption counters.
type Ledger struct {
	db      infra.SQLExecutor
	emitter analytics.Emitter
	logger  zerolog.Logger
	now     func() time.Time
}

func NewLedger(db infra.SQLExecutor, emitter analytics.Emitter, logger zerolog.Logger) *Ledger {
	return &Ledger{db: db, emitter: emitter, logger: logger, now: time.Now}
}

// CheckAndConsume admits or rejects one chat request. On admission it
// increments today's counter and returns the new counter alongside the cap.
// On rejection it returns a *domain.QuotaExceededError carrying the exact
// pre-increment value that was compared.
func (l *Ledger) CheckAndConsume(ctx context.Context, userID, plan string) (int, int, error) {
	policy := domain.PolicyFor(plan)
	today := dateOf(l.now().UTC())

	created, err := l.ensureRecord(ctx, userID, today)
	if err != nil {
		return 0, policy.Cap, fmt.Errorf("quota: ensure record: %w", err)
	}
	if created {
		l.emitter.Emit(ctx, userID, "usage_record_created", map[string]any{"plan": plan})
	}

	used, err := l.comparisonValue(ctx, userID, today, policy.Period)
	if err != nil {
		return 0, policy.Cap, fmt.Errorf("quota: read usage: %w", err)
	}

	if used >= policy.Cap {
		l.emitter.Emit(ctx, userID, "quota_exceeded", map[string]any{
			"plan":         plan,
			"prompt_count": used,
			"cap":          policy.Cap,
			"period":       string(policy.Period),
		})
		return used, policy.Cap, &domain.QuotaExceededError{Used: used, Cap: policy.Cap, Period: policy.Period}
	}

	var newCount int
	if err := l.db.QueryRow(ctx, sqlinline.QIncrementUsage, userID, today).Scan(&newCount); err != nil {
		return 0, policy.Cap, fmt.Errorf("quota: increment usage: %w", err)
	}

	l.emitter.Emit(ctx, userID, "message_sent", map[string]any{
		"plan":             plan,
		"new_prompt_count": newCount,
		"cap":              policy.Cap,
		"period":           string(policy.Period),
		"remaining_quota":  policy.Cap - used - 1,
	})

	return newCount, policy.Cap, nil
}

// Snapshot returns the usage view for the usage endpoint. PromptCount is
// always today's counter; Remaining is derived from the period's comparison
// value, so monthly plans report month-to-date headroom.
func (l *Ledger) Snapshot(ctx context.Context, userID, plan string) (domain.UsageSnapshot, error) {
	policy := domain.PolicyFor(plan)
	today := dateOf(l.now().UTC())

	todayCount, err := l.countForDate(ctx, userID, today)
	if err != nil {
		return domain.UsageSnapshot{}, fmt.Errorf("quota: read usage: %w", err)
	}

	used := todayCount
	if policy.Period == domain.PeriodMonthly {
		used, err = l.sumSince(ctx, userID, firstOfMonth(today))
		if err != nil {
			return domain.UsageSnapshot{}, fmt.Errorf("quota: sum usage: %w", err)
		}
	}

	remaining := policy.Cap - used
	if remaining < 0 {
		remaining = 0
	}

	return domain.UsageSnapshot{
		UserID:      userID,
		Date:        today,
		PromptCount: todayCount,
		Cap:         policy.Cap,
		Period:      policy.Period,
		Remaining:   remaining,
		Plan:        plan,
	}, nil
}

// ResetToday zeroes the counter for the current date only. Past records stay
// untouched; consumption history is retained indefinitely.
func (l *Ledger) ResetToday(ctx context.Context, userID string) error {
	today := dateOf(l.now().UTC())
	if _, err := l.db.Exec(ctx, sqlinline.QResetUsageForDate, userID, today); err != nil {
		return fmt.Errorf("quota: reset usage: %w", err)
	}
	return nil
}

func (l *Ledger) ensureRecord(ctx context.Context, userID string, day time.Time) (bool, error) {
	tag, err := l.db.Exec(ctx, sqlinline.QEnsureUsageRecord, userID, day)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (l *Ledger) comparisonValue(ctx context.Context, userID string, today time.Time, period domain.Period) (int, error) {
	if period == domain.PeriodMonthly {
		return l.sumSince(ctx, userID, firstOfMonth(today))
	}
	return l.countForDate(ctx, userID, today)
}

func (l *Ledger) countForDate(ctx context.Context, userID string, day time.Time) (int, error) {
	var count int
	err := l.db.QueryRow(ctx, sqlinline.QSelectUsageCount, userID, day).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (l *Ledger) sumSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var sum int
	if err := l.db.QueryRow(ctx, sqlinline.QSumUsageSince, userID, since).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func firstOfMonth(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
}
