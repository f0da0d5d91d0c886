package billing

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/smartfolio/smartfolio/pkg/pg"
	"github.com/smartfolio/smartfolio/pkg/subscription"
)

// UsageCounter counts product usage straight from the portfolios and
// ai_generations tables.
type UsageCounter struct {
	db pg.DB
}

var _ subscription.UsageCounter = (*UsageCounter)(nil)

func NewUsageCounter(db pg.DB) *UsageCounter {
	return &UsageCounter{db: db}
}

func (u *UsageCounter) CountPortfolios(ctx context.Context, userID uuid.UUID) (int64, error) {
	return u.scalar(ctx, psql.
		Select("COUNT(*)").
		From("portfolios").
		Where(sq.Eq{"user_id": userID}))
}

func (u *UsageCounter) CountAIGenerationsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	return u.scalar(ctx, psql.
		Select("COUNT(*)").
		From("ai_generations").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"created_at": since}))
}

func (u *UsageCounter) SumAITokensSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	return u.scalar(ctx, psql.
		Select("COALESCE(SUM(tokens_used), 0)").
		From("ai_generations").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"created_at": since}))
}

func (u *UsageCounter) scalar(ctx context.Context, b sq.SelectBuilder) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build usage query: %w", err)
	}
	var n int64
	if err := u.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count usage: %w", err)
	}
	return n, nil
}
