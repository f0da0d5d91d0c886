// Package portfolio serves the /portfolios routes. Creating a portfolio is
// gated by the owner's plan quota.
package portfolio

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/smartfolio/smartfolio/handler"
)

// Portfolio is a user's published site.
type Portfolio struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrSlugTaken         = handler.NewHTTPError(http.StatusConflict, "slug_taken")
	ErrPortfolioNotFound = handler.NewHTTPError(http.StatusNotFound, "portfolio_not_found")
)
