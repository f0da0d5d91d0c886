package portfolio

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/smartfolio/smartfolio/pkg/pg"
)

var (
	// ErrDuplicateSlug is returned by Create when the slug is in use.
	ErrDuplicateSlug = errors.New("portfolio slug already exists")
	ErrNotFound      = errors.New("portfolio not found")
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store persists portfolios in Postgres.
type Store struct {
	db pg.DB
}

func NewStore(db pg.DB) *Store {
	return &Store{db: db}
}

// Create inserts p and fills its creation time. A slug collision returns
// ErrDuplicateSlug.
func (s *Store) Create(ctx context.Context, p *Portfolio) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO portfolios (id, user_id, title, slug) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		p.ID, p.UserID, p.Title, p.Slug,
	).Scan(&p.CreatedAt)
	if pg.IsDuplicateKeyError(err) {
		return ErrDuplicateSlug
	}
	if err != nil {
		return fmt.Errorf("create portfolio: %w", err)
	}
	return nil
}

func (s *Store) GetBySlug(ctx context.Context, slug string) (*Portfolio, error) {
	var p Portfolio
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, title, slug, created_at FROM portfolios WHERE slug = $1`, slug,
	).Scan(&p.ID, &p.UserID, &p.Title, &p.Slug, &p.CreatedAt)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get portfolio: %w", err)
	}
	return &p, nil
}

// ListByUser returns the user's portfolios, newest first.
func (s *Store) ListByUser(ctx context.Context, userID uuid.UUID) ([]Portfolio, error) {
	query, args, err := psql.
		Select("id", "user_id", "title", "slug", "created_at").
		From("portfolios").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build portfolios query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	defer rows.Close()

	out := make([]Portfolio, 0)
	for rows.Next() {
		var p Portfolio
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Slug, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan portfolio: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	return out, nil
}
