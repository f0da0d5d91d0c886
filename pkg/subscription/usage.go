package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// UsageCounter reads raw usage from the product tables.
type UsageCounter interface {
	CountPortfolios(ctx context.Context, userID uuid.UUID) (int64, error)
	CountAIGenerationsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
	SumAITokensSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
}

// UsageOption configures Usage.
type UsageOption func(*Usage)

// WithUsageClock overrides the time source used to compute the monthly window.
func WithUsageClock(now func() time.Time) UsageOption {
	return func(u *Usage) {
		u.now = now
	}
}

// Usage computes per-action usage for the current accounting window.
type Usage struct {
	counter UsageCounter
	now     func() time.Time
}

// NewUsage creates usage accounting over the given counter.
func NewUsage(counter UsageCounter, opts ...UsageOption) *Usage {
	if counter == nil {
		panic("subscription: usage counter cannot be nil")
	}
	u := &Usage{
		counter: counter,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// StartOfMonth returns midnight UTC on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// CountUsageThisMonth returns the usage relevant to the action. AI
// generations are counted since the start of the calendar month, portfolios
// are a standing total and flag actions always report zero.
func (u *Usage) CountUsageThisMonth(ctx context.Context, userID uuid.UUID, action Action) (int64, error) {
	var (
		n   int64
		err error
	)
	switch action {
	case ActionGenerateAI:
		n, err = u.counter.CountAIGenerationsSince(ctx, userID, StartOfMonth(u.now()))
	case ActionCreatePortfolio:
		n, err = u.counter.CountPortfolios(ctx, userID)
	default:
		return 0, nil
	}
	if err != nil {
		return 0, errors.Join(ErrFailedToCountUsage, err)
	}
	return n, nil
}

// AITokensThisMonth returns the number of AI tokens consumed this month.
func (u *Usage) AITokensThisMonth(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := u.counter.SumAITokensSince(ctx, userID, StartOfMonth(u.now()))
	if err != nil {
		return 0, errors.Join(ErrFailedToCountUsage, err)
	}
	return n, nil
}
