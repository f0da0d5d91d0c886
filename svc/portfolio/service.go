package portfolio

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/smartfolio/smartfolio/handler"
	"github.com/smartfolio/smartfolio/pkg/binder"
	"github.com/smartfolio/smartfolio/pkg/logger"
	"github.com/smartfolio/smartfolio/pkg/slug"
	"github.com/smartfolio/smartfolio/pkg/subscription"
	"github.com/smartfolio/smartfolio/svc/auth"
	"github.com/smartfolio/smartfolio/svc/billing"
)

const slugAttempts = 3

// Repository is the portfolio persistence used by Service.
type Repository interface {
	Create(ctx context.Context, p *Portfolio) error
	GetBySlug(ctx context.Context, slug string) (*Portfolio, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Portfolio, error)
}

// Gate decides whether a user may perform a gated action.
// *subscription.Gate implements it.
type Gate interface {
	Check(ctx context.Context, userID uuid.UUID, action subscription.Action) error
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithAuth(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Service) { s.auth = append(s.auth, mw...) }
}

type Service struct {
	repo      Repository
	gate      Gate
	log       *slog.Logger
	auth      []func(http.Handler) http.Handler
	validator *handler.Validator
	errors    handler.ErrorHandler[handler.Context]
}

func NewService(repo Repository, gate Gate, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		gate:      gate,
		log:       logger.Discard(),
		validator: handler.NewValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("portfolio"))
	s.errors = handler.NewErrorHandler(s.log, billing.HTTPErrors)
	return s
}

func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(s.auth...)

	r.Post("/", handler.Wrap(s.create,
		handler.WithBinders[handler.Context, CreateRequest](binder.JSON()),
		handler.WithDecorators(handler.Validate[handler.Context, CreateRequest](s.validator)),
		handler.WithErrorHandler[handler.Context, CreateRequest](s.errors),
	))
	r.Get("/", handler.Wrap(s.list,
		handler.WithErrorHandler[handler.Context, struct{}](s.errors),
	))
	r.Get("/{slug}", handler.Wrap(s.show,
		handler.WithBinders[handler.Context, ShowRequest](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[handler.Context, ShowRequest](s.errors),
	))
	return r
}

// CreateRequest creates a portfolio. Without a slug one is derived from the
// title.
type CreateRequest struct {
	Title string `json:"title" validate:"required,max=120"`
	Slug  string `json:"slug" validate:"omitempty,max=60,slug"`
}

func (s *Service) create(ctx handler.Context, req CreateRequest) handler.Response {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if err := s.gate.Check(ctx, user.ID, subscription.ActionCreatePortfolio); err != nil {
		return handler.Error(err)
	}

	p := &Portfolio{ID: uuid.New(), UserID: user.ID, Title: req.Title}
	if req.Slug != "" {
		p.Slug = req.Slug
		if err := s.repo.Create(ctx, p); err != nil {
			if errors.Is(err, ErrDuplicateSlug) {
				return handler.Error(ErrSlugTaken.WithMessage("slug is already in use"))
			}
			return handler.Error(err)
		}
	} else if err := s.createWithGeneratedSlug(ctx, p); err != nil {
		return handler.Error(err)
	}

	s.log.InfoContext(ctx, "portfolio created",
		logger.UserID(user.ID), slog.String("slug", p.Slug))
	return handler.JSON(p)
}

// createWithGeneratedSlug tries the plain title slug first and then random
// suffixes.
func (s *Service) createWithGeneratedSlug(ctx context.Context, p *Portfolio) error {
	base := slug.Make(p.Title, slug.MaxLength(50))
	if base == "" {
		base = "portfolio"
	}
	p.Slug = base
	for range slugAttempts {
		err := s.repo.Create(ctx, p)
		if !errors.Is(err, ErrDuplicateSlug) {
			return err
		}
		p.Slug = slug.Make(base, slug.WithSuffix(6))
	}
	return ErrSlugTaken.WithMessage("could not allocate a unique slug, pick one")
}

type ShowRequest struct {
	Slug string `path:"slug"`
}

// show answers 404 for portfolios owned by someone else.
func (s *Service) show(ctx handler.Context, req ShowRequest) handler.Response {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	p, err := s.repo.GetBySlug(ctx, req.Slug)
	if errors.Is(err, ErrNotFound) || (err == nil && p.UserID != user.ID) {
		return handler.Error(ErrPortfolioNotFound)
	}
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(p)
}

func (s *Service) list(ctx handler.Context, _ struct{}) handler.Response {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	portfolios, err := s.repo.ListByUser(ctx, user.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(portfolios)
}
