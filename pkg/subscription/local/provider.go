// Package local implements subscription.BillingProvider without a remote
// service. Checkout and portal pages are served by Handler, and provider
// events are delivered as signed webhooks to the application itself.
package local

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartfolio/smartfolio/pkg/subscription"
	"github.com/smartfolio/smartfolio/pkg/webhook"
)

const providerName = "local"

// Config configures the local provider. BaseURL is the origin of the API
// that mounts Handler under /local-billing and serves /webhooks/billing. It
// differs from APP_URL, the front-end origin used for redirects.
type Config struct {
	WebhookSecret string        `env:"LOCAL_BILLING_WEBHOOK_SECRET" envDefault:"local_billing_secret"`
	// WebhookURL defaults to BaseURL + "/webhooks/billing".
	WebhookURL    string        `env:"LOCAL_BILLING_WEBHOOK_URL"`
	BaseURL       string        `env:"LOCAL_BILLING_BASE_URL,required"`
	Period        time.Duration `env:"LOCAL_BILLING_PERIOD" envDefault:"720h"`
	Amount        int64         `env:"LOCAL_BILLING_AMOUNT" envDefault:"1900"`
}

// Option configures a Provider.
type Option func(*Provider)

// WithSender overrides the webhook sender used to deliver events.
func WithSender(s *webhook.Sender) Option {
	return func(p *Provider) {
		if s != nil {
			p.sender = s
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

type checkoutSession struct {
	params    subscription.CheckoutParams
	completed string // subscription ref once completed
}

type localSubscription struct {
	ref               string
	userID            uuid.UUID
	customerRef       string
	priceRef          string
	cancelAtPeriodEnd bool
}

// Provider keeps customers, sessions and subscriptions in memory and hands
// out sequential refs.
type Provider struct {
	cfg    Config
	sender *webhook.Sender
	now    func() time.Time

	mu            sync.Mutex
	seq           int
	customers     map[string]subscription.CustomerParams
	sessions      map[string]*checkoutSession
	subscriptions map[string]*localSubscription
}

var _ subscription.BillingProvider = (*Provider)(nil)

// New creates a local provider.
func New(cfg Config, opts ...Option) (*Provider, error) {
	if cfg.WebhookSecret == "" {
		return nil, subscription.ErrMissingWebhookSecret
	}
	if cfg.Period <= 0 {
		cfg.Period = 30 * 24 * time.Hour
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.WebhookURL == "" && cfg.BaseURL != "" {
		cfg.WebhookURL = cfg.BaseURL + "/webhooks/billing"
	}

	p := &Provider{
		cfg:           cfg,
		now:           time.Now,
		customers:     make(map[string]subscription.CustomerParams),
		sessions:      make(map[string]*checkoutSession),
		subscriptions: make(map[string]*localSubscription),
	}
	p.sender = webhook.NewSender(
		webhook.WithSecret(cfg.WebhookSecret),
		webhook.WithRetries(2, webhook.FixedBackoff{Interval: 100 * time.Millisecond}),
	)
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) SignatureHeader() string { return webhook.SignatureHeader }

func (p *Provider) nextRef(prefix string) string {
	p.seq++
	return prefix + "_local_" + strconv.Itoa(p.seq)
}

func (p *Provider) CreateCustomer(ctx context.Context, params subscription.CustomerParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	ref := p.nextRef("cus")
	p.customers[ref] = params
	return ref, nil
}

func (p *Provider) CreateCheckoutSession(ctx context.Context, params subscription.CheckoutParams) (*subscription.CheckoutSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if params.PriceRef == "" {
		return nil, subscription.ErrMissingPriceRef
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.customers[params.CustomerRef]; !ok {
		return nil, subscription.ErrMissingCustomerRef
	}
	id := p.nextRef("cs")
	p.sessions[id] = &checkoutSession{params: params}
	return &subscription.CheckoutSession{
		SessionID: id,
		URL:       p.cfg.BaseURL + "/local-billing/checkout/" + id,
	}, nil
}

func (p *Provider) CreatePortalSession(ctx context.Context, params subscription.PortalParams) (*subscription.PortalSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.customers[params.CustomerRef]; !ok {
		return nil, subscription.ErrMissingCustomerRef
	}
	return &subscription.PortalSession{URL: p.cfg.BaseURL + "/local-billing/portal/" + params.CustomerRef}, nil
}

func (p *Provider) SetCancelAtPeriodEnd(ctx context.Context, subscriptionRef string, cancel bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	sub, ok := p.subscriptions[subscriptionRef]
	if !ok {
		return fmt.Errorf("no such subscription: %s", subscriptionRef)
	}
	sub.cancelAtPeriodEnd = cancel
	return nil
}

// ParseEvent verifies the X-Webhook-Signature header and decodes the event.
func (p *Provider) ParseEvent(_ context.Context, payload []byte, signature string) (subscription.Event, error) {
	if err := webhook.Verify(p.cfg.WebhookSecret, payload, signature, webhook.DefaultTolerance); err != nil {
		return nil, errors.Join(subscription.ErrWebhookVerificationFailed, err)
	}
	ev, err := decode(payload)
	if err != nil {
		return nil, errors.Join(subscription.ErrMalformedEvent, err)
	}
	return ev, nil
}

// CompleteCheckout turns a checkout session into an active subscription and
// delivers the checkout and first invoice events. It returns the success URL.
func (p *Provider) CompleteCheckout(ctx context.Context, sessionID string) (string, error) {
	p.mu.Lock()
	session, ok := p.sessions[sessionID]
	if !ok {
		p.mu.Unlock()
		return "", fmt.Errorf("no such checkout session: %s", sessionID)
	}
	if session.completed == "" {
		sub := &localSubscription{
			ref:         p.nextRef("sub"),
			userID:      session.params.UserID,
			customerRef: session.params.CustomerRef,
			priceRef:    session.params.PriceRef,
		}
		p.subscriptions[sub.ref] = sub
		session.completed = sub.ref
	}
	subRef := session.completed
	invoiceRef := p.nextRef("in")
	params := session.params
	p.mu.Unlock()

	start := p.now().UTC().Truncate(time.Second)
	end := start.Add(p.cfg.Period)
	checkout := subscription.CheckoutCompleted{
		ID:              "evt_" + uuid.NewString(),
		ProviderName:    providerName,
		UserID:          params.UserID.String(),
		CustomerRef:     params.CustomerRef,
		SubscriptionRef: subRef,
		PriceRef:        params.PriceRef,
		PeriodStart:     &start,
		PeriodEnd:       &end,
	}
	if params.TrialDays > 0 {
		trialEnd := start.AddDate(0, 0, params.TrialDays)
		checkout.TrialEnd = &trialEnd
	}
	if err := p.Emit(ctx, checkout); err != nil {
		return "", err
	}

	paid := subscription.InvoicePaid{
		ID:              "evt_" + uuid.NewString(),
		ProviderName:    providerName,
		SubscriptionRef: subRef,
		InvoiceRef:      invoiceRef,
		Amount:          p.cfg.Amount,
		Currency:        "usd",
	}
	if err := p.Emit(ctx, paid); err != nil {
		return "", err
	}

	return strings.ReplaceAll(params.SuccessURL, "{CHECKOUT_SESSION_ID}", sessionID), nil
}

// Simulate emits a lifecycle event for an existing subscription. Supported
// actions: payment_failed, payment_succeeded, delete.
func (p *Provider) Simulate(ctx context.Context, subscriptionRef, action string) error {
	p.mu.Lock()
	_, ok := p.subscriptions[subscriptionRef]
	invoiceRef := p.nextRef("in")
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("no such subscription: %s", subscriptionRef)
	}

	ev, err := p.lifecycleEvent("evt_"+uuid.NewString(), subscriptionRef, invoiceRef, action)
	if err != nil {
		return err
	}
	return p.Emit(ctx, ev)
}

func (p *Provider) lifecycleEvent(id, subscriptionRef, invoiceRef, action string) (subscription.Event, error) {
	switch action {
	case "payment_failed":
		return subscription.InvoicePaymentFailed{ID: id, ProviderName: providerName, SubscriptionRef: subscriptionRef, InvoiceRef: invoiceRef, Amount: p.cfg.Amount, Currency: "usd"}, nil
	case "payment_succeeded":
		return subscription.InvoicePaid{ID: id, ProviderName: providerName, SubscriptionRef: subscriptionRef, InvoiceRef: invoiceRef, Amount: p.cfg.Amount, Currency: "usd"}, nil
	case "delete":
		return subscription.SubscriptionDeleted{ID: id, ProviderName: providerName, SubscriptionRef: subscriptionRef}, nil
	default:
		return nil, fmt.Errorf("unknown action: %s", action)
	}
}

// Emit signs and delivers an event to the configured webhook URL.
func (p *Provider) Emit(ctx context.Context, ev subscription.Event) error {
	if p.cfg.WebhookURL == "" {
		return errors.New("local billing webhook URL is not configured")
	}
	payload, err := Encode(ev)
	if err != nil {
		return err
	}
	return p.sender.Send(ctx, p.cfg.WebhookURL, payload)
}
