package subscription

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartfolio/smartfolio/pkg/logger"
)

// GatewayConfig holds settings for outbound billing calls.
type GatewayConfig struct {
	AppURL    string        `env:"APP_URL,required"`
	TrialDays int           `env:"BILLING_TRIAL_DAYS" envDefault:"14"`
	Timeout   time.Duration `env:"BILLING_PROVIDER_TIMEOUT" envDefault:"15s"`
}

// Customer identifies the user a billing call is made for.
type Customer struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

// CheckoutRequest asks for a checkout of a paid plan.
type CheckoutRequest struct {
	Customer Customer
	PriceRef string
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayLogger sets the logger.
func WithGatewayLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithErrorObserver is called with every failed provider call, for metrics.
func WithErrorObserver(fn func(op string, err error)) GatewayOption {
	return func(g *Gateway) {
		g.observe = fn
	}
}

// Gateway performs user-initiated billing operations. Remote calls always
// happen first; local state changes only after the provider confirmed.
type Gateway struct {
	cfg      GatewayConfig
	provider BillingProvider
	store    Store
	catalog  *Catalog
	logger   *slog.Logger
	observe  func(op string, err error)
}

// NewGateway creates a gateway. All dependencies are required.
func NewGateway(cfg GatewayConfig, provider BillingProvider, store Store, catalog *Catalog, opts ...GatewayOption) *Gateway {
	if provider == nil {
		panic("subscription: billing provider cannot be nil")
	}
	if store == nil {
		panic("subscription: store cannot be nil")
	}
	if catalog == nil {
		panic("subscription: catalog cannot be nil")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")

	g := &Gateway{
		cfg:      cfg,
		provider: provider,
		store:    store,
		catalog:  catalog,
		logger:   logger.Discard(),
		observe:  func(string, error) {},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreateCheckoutSession starts a hosted checkout for a paid plan.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	plan, ok := g.catalog.PlanForPrice(req.PriceRef)
	if !ok || !plan.IsPaid() {
		return nil, ErrUnknownPrice
	}

	customerRef, err := g.resolveCustomer(ctx, req.Customer)
	if err != nil {
		return nil, err
	}

	var session *CheckoutSession
	err = g.call(ctx, "create_checkout_session", func(ctx context.Context) error {
		var err error
		session, err = g.provider.CreateCheckoutSession(ctx, CheckoutParams{
			UserID:      req.Customer.UserID,
			CustomerRef: customerRef,
			PriceRef:    req.PriceRef,
			SuccessURL:  g.cfg.AppURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:   g.cfg.AppURL + "/billing/cancel",
			TrialDays:   max(g.cfg.TrialDays, 0),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if session.URL == "" {
		return nil, errors.Join(ErrProviderError, ErrNoCheckoutURL)
	}

	g.logger.InfoContext(ctx, "checkout session created",
		logger.UserID(req.Customer.UserID), logger.Plan(string(plan)))
	return session, nil
}

// CreatePortalSession returns a customer portal link for the user.
func (g *Gateway) CreatePortalSession(ctx context.Context, c Customer) (*PortalSession, error) {
	customerRef, err := g.resolveCustomer(ctx, c)
	if err != nil {
		return nil, err
	}

	var subscriptionRef string
	if sub, err := g.store.GetByUser(ctx, c.UserID); err == nil {
		subscriptionRef = sub.SubscriptionRef
	}

	var session *PortalSession
	err = g.call(ctx, "create_portal_session", func(ctx context.Context) error {
		var err error
		session, err = g.provider.CreatePortalSession(ctx, PortalParams{
			CustomerRef:     customerRef,
			SubscriptionRef: subscriptionRef,
			ReturnURL:       g.cfg.AppURL + "/billing",
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if session.URL == "" {
		return nil, errors.Join(ErrProviderError, ErrNoPortalURL)
	}
	return session, nil
}

// CancelSubscription schedules cancellation at the end of the period.
func (g *Gateway) CancelSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return g.setCancelAtPeriodEnd(ctx, userID, true)
}

// ResumeSubscription undoes a scheduled cancellation.
func (g *Gateway) ResumeSubscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return g.setCancelAtPeriodEnd(ctx, userID, false)
}

func (g *Gateway) setCancelAtPeriodEnd(ctx context.Context, userID uuid.UUID, cancel bool) (*Subscription, error) {
	sub, err := g.store.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.SubscriptionRef == "" {
		return nil, ErrSubscriptionNotFound
	}

	op := "resume_subscription"
	if cancel {
		op = "cancel_subscription"
	}
	if err := g.call(ctx, op, func(ctx context.Context) error {
		return g.provider.SetCancelAtPeriodEnd(ctx, sub.SubscriptionRef, cancel)
	}); err != nil {
		return nil, err
	}

	if err := g.store.SetCancelAtPeriodEnd(ctx, userID, cancel); err != nil {
		return nil, err
	}
	sub.CancelAtPeriodEnd = cancel

	g.logger.InfoContext(ctx, "subscription cancellation updated",
		logger.UserID(userID), slog.Bool("cancel_at_period_end", cancel))
	return sub, nil
}

// resolveCustomer returns the stored customer ref or creates one. Concurrent
// callers converge on the ref stored first.
func (g *Gateway) resolveCustomer(ctx context.Context, c Customer) (string, error) {
	sub, err := g.store.GetByUser(ctx, c.UserID)
	switch {
	case err == nil && sub.CustomerRef != "":
		return sub.CustomerRef, nil
	case err != nil && !errors.Is(err, ErrSubscriptionNotFound):
		return "", err
	}

	var customerRef string
	if err := g.call(ctx, "create_customer", func(ctx context.Context) error {
		var err error
		customerRef, err = g.provider.CreateCustomer(ctx, CustomerParams{
			UserID: c.UserID,
			Email:  c.Email,
			Name:   c.Name,
		})
		return err
	}); err != nil {
		return "", err
	}
	if customerRef == "" {
		return "", errors.Join(ErrProviderError, ErrMissingCustomerRef)
	}

	return g.store.AttachCustomer(ctx, c.UserID, customerRef, c.Email)
}

// call runs a provider call under the configured timeout and wraps failures
// in ErrProviderError.
func (g *Gateway) call(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		g.observe(op, err)
		g.logger.ErrorContext(ctx, "billing provider call failed",
			slog.String("operation", op),
			logger.Provider(g.provider.Name()),
			logger.Error(err))
		return errors.Join(ErrProviderError, err)
	}
	return nil
}
