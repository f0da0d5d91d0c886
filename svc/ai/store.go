package ai

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/smartfolio/smartfolio/pkg/pg"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store keeps the generation log that AI quotas are counted from.
type Store struct {
	db pg.DB
}

func NewStore(db pg.DB) *Store {
	return &Store{db: db}
}

// Record inserts g and fills its creation time.
func (s *Store) Record(ctx context.Context, g *Generation) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO ai_generations (id, user_id, type, prompt, response, tokens_used, provider, model)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		g.ID, g.UserID, string(g.Type), g.Prompt, g.Content, g.TokensUsed, g.Provider, g.Model,
	).Scan(&g.CreatedAt)
	if err != nil {
		return fmt.Errorf("record ai generation: %w", err)
	}
	return nil
}

// History returns the user's most recent generations, newest first.
func (s *Store) History(ctx context.Context, userID uuid.UUID, limit uint64) ([]Generation, error) {
	query, args, err := psql.
		Select("id", "user_id", "type", "prompt", "response", "tokens_used", "provider", "model", "created_at").
		From("ai_generations").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ai generations: %w", err)
	}
	defer rows.Close()

	out := make([]Generation, 0)
	for rows.Next() {
		var (
			g   Generation
			typ string
		)
		if err := rows.Scan(&g.ID, &g.UserID, &typ, &g.Prompt, &g.Content, &g.TokensUsed, &g.Provider, &g.Model, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ai generation: %w", err)
		}
		g.Type = Type(typ)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ai generations: %w", err)
	}
	return out, nil
}
