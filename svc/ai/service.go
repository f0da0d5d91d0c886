// Package ai serves AI writing assistance. Each generation is checked
// against the plan's monthly quota and logged with the tokens it used.
package ai

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/smartfolio/smartfolio/handler"
	"github.com/smartfolio/smartfolio/pkg/binder"
	"github.com/smartfolio/smartfolio/pkg/logger"
	"github.com/smartfolio/smartfolio/pkg/subscription"
	"github.com/smartfolio/smartfolio/svc/auth"
	"github.com/smartfolio/smartfolio/svc/billing"
)

// Repository persists generations.
type Repository interface {
	Record(ctx context.Context, g *Generation) error
	History(ctx context.Context, userID uuid.UUID, limit uint64) ([]Generation, error)
}

// Gate decides whether a user may perform a gated action.
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
	cfg       Config
	completer Completer
	repo      Repository
	gate      Gate
	log       *slog.Logger
	auth      []func(http.Handler) http.Handler
	validator *handler.Validator
	errors    handler.ErrorHandler[handler.Context]
}

func NewService(cfg Config, completer Completer, repo Repository, gate Gate, opts ...Option) *Service {
	s := &Service{
		cfg:       cfg.withDefaults(),
		completer: completer,
		repo:      repo,
		gate:      gate,
		log:       logger.Discard(),
		validator: handler.NewValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("ai"))
	s.errors = handler.NewErrorHandler(s.log, billing.HTTPErrors, HTTPErrors)
	return s
}

func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(s.auth...)

	r.Post("/generate", handler.Wrap(s.generate,
		handler.WithBinders[handler.Context, GenerateRequest](binder.JSON()),
		handler.WithDecorators(handler.Validate[handler.Context, GenerateRequest](s.validator)),
		handler.WithErrorHandler[handler.Context, GenerateRequest](s.errors),
	))
	r.Get("/history", handler.Wrap(s.history,
		handler.WithBinders[handler.Context, HistoryRequest](binder.Query()),
		handler.WithErrorHandler[handler.Context, HistoryRequest](s.errors),
	))
	return r
}

// GenerateRequest asks for content of one type. MaxTokens defaults to the
// configured value and is capped by the configured maximum.
type GenerateRequest struct {
	Type      Type   `json:"type" validate:"required,oneof=PORTFOLIO_CONTENT PROJECT_DESCRIPTION ABOUT_SECTION SKILLS_SUMMARY SEO_META IMAGE_ALT_TEXT"`
	Prompt    string `json:"prompt" validate:"required,max=4000"`
	MaxTokens int    `json:"max_tokens" validate:"omitempty,min=1"`
}

func (s *Service) generate(ctx handler.Context, req GenerateRequest) handler.Response {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if err := s.gate.Check(ctx, user.ID, subscription.ActionGenerateAI); err != nil {
		return handler.Error(err)
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = s.cfg.DefaultMaxTokens
	}
	maxTokens = min(maxTokens, s.cfg.MaxTokens)

	cctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	result, err := s.completer.Complete(cctx, Completion{
		System:    req.Type.SystemPrompt(),
		Prompt:    req.Prompt,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return handler.Error(err)
	}

	g := &Generation{
		ID:         uuid.New(),
		UserID:     user.ID,
		Type:       req.Type,
		Prompt:     req.Prompt,
		Content:    result.Content,
		TokensUsed: result.TokensUsed,
		Provider:   result.Provider,
		Model:      result.Model,
	}
	if err := s.repo.Record(ctx, g); err != nil {
		return handler.Error(err)
	}

	s.log.InfoContext(ctx, "ai content generated",
		logger.UserID(user.ID),
		slog.String("type", string(req.Type)),
		slog.Int64("tokens_used", g.TokensUsed))
	return handler.JSON(g)
}

// HistoryRequest limits the history page. The configured limit is the maximum.
type HistoryRequest struct {
	Limit uint64 `query:"limit"`
}

func (s *Service) history(ctx handler.Context, req HistoryRequest) handler.Response {
	user, err := auth.RequireUser(ctx)
	if err != nil {
		return handler.Error(err)
	}
	limit := s.cfg.HistoryLimit
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}
	items, err := s.repo.History(ctx, user.ID, limit)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(items, handler.WithJSONMeta(map[string]any{"limit": limit}))
}
