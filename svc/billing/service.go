package billing

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/smartfolio/smartfolio/handler"
	"github.com/smartfolio/smartfolio/pkg/binder"
	"github.com/smartfolio/smartfolio/pkg/logger"
	"github.com/smartfolio/smartfolio/pkg/subscription"
)

// PaymentLister reads a user's payment history.
type PaymentLister interface {
	ListPayments(ctx context.Context, userID uuid.UUID, limit uint64) ([]subscription.Payment, error)
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuth sets the middlewares guarding every route except the plan list.
func WithAuth(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Service) { s.auth = append(s.auth, mw...) }
}

// WithPublic sets the middlewares of the public plan list.
func WithPublic(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Service) { s.public = append(s.public, mw...) }
}

// WithClock overrides the time source of the subscription view.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service serves the /billing routes.
type Service struct {
	cfg       Config
	gateway   *subscription.Gateway
	gate      *subscription.Gate
	catalog   *subscription.Catalog
	payments  PaymentLister
	metrics   *Metrics
	log       *slog.Logger
	auth      []func(http.Handler) http.Handler
	public    []func(http.Handler) http.Handler
	now       func() time.Time
	validator *handler.Validator
	errors    handler.ErrorHandler[handler.Context]
}

func NewService(
	cfg Config,
	gateway *subscription.Gateway,
	gate *subscription.Gate,
	catalog *subscription.Catalog,
	payments PaymentLister,
	opts ...Option,
) *Service {
	s := &Service{
		cfg:       cfg.withDefaults(),
		gateway:   gateway,
		gate:      gate,
		catalog:   catalog,
		payments:  payments,
		log:       logger.Discard(),
		now:       time.Now,
		validator: handler.NewValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.errors = handler.NewErrorHandler(s.log.With(logger.Component("billing")), HTTPErrors)
	return s
}

func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.With(s.public...).Get("/plans", handler.Wrap(s.listPlans,
		handler.WithErrorHandler[handler.Context, empty](s.errors),
	))

	r.Group(func(r chi.Router) {
		r.Use(s.auth...)

		r.Get("/subscription", handler.Wrap(s.getSubscription,
			handler.WithErrorHandler[handler.Context, empty](s.errors),
		))
		r.Post("/checkout", handler.Wrap(s.createCheckout,
			handler.WithBinders[handler.Context, CheckoutRequest](binder.JSON()),
			handler.WithDecorators(handler.Validate[handler.Context, CheckoutRequest](s.validator)),
			handler.WithErrorHandler[handler.Context, CheckoutRequest](s.errors),
		))
		r.Post("/portal", handler.Wrap(s.createPortal,
			handler.WithErrorHandler[handler.Context, empty](s.errors),
		))
		r.Post("/cancel", handler.Wrap(s.cancel,
			handler.WithErrorHandler[handler.Context, empty](s.errors),
		))
		r.Post("/resume", handler.Wrap(s.resume,
			handler.WithErrorHandler[handler.Context, empty](s.errors),
		))
		r.Get("/payments", handler.Wrap(s.listPayments,
			handler.WithBinders[handler.Context, ListRequest](binder.Query()),
			handler.WithErrorHandler[handler.Context, ListRequest](s.errors),
		))
		r.Get("/usage", handler.Wrap(s.usage,
			handler.WithErrorHandler[handler.Context, empty](s.errors),
		))
	})

	return r
}
