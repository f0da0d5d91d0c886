// Package stripe implements subscription.BillingProvider on Stripe Checkout,
// the Stripe billing portal and Stripe webhooks.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/smartfolio/smartfolio/pkg/subscription"
)

const providerName = "stripe"

// Provider talks to the Stripe API.
type Provider struct {
	api           *client.API
	webhookSecret string
}

var _ subscription.BillingProvider = (*Provider)(nil)

// New creates a Stripe provider.
func New(cfg Config) (*Provider, error) {
	if cfg.SecretKey == "" {
		return nil, subscription.ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, subscription.ErrMissingWebhookSecret
	}

	var backends *stripego.Backends
	if cfg.APIURL != "" {
		backendCfg := &stripego.BackendConfig{
			URL:           stripego.String(cfg.APIURL),
			LeveledLogger: &stripego.LeveledLogger{Level: stripego.LevelNull},
		}
		backends = &stripego.Backends{
			API:     stripego.GetBackendWithConfig(stripego.APIBackend, backendCfg),
			Connect: stripego.GetBackendWithConfig(stripego.ConnectBackend, backendCfg),
			Uploads: stripego.GetBackendWithConfig(stripego.UploadsBackend, backendCfg),
		}
	}

	return &Provider{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
	}, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) SignatureHeader() string { return "Stripe-Signature" }

// CreateCustomer creates a Stripe customer tagged with the user id. The
// idempotency key makes concurrent calls for one user return one customer.
func (p *Provider) CreateCustomer(ctx context.Context, params subscription.CustomerParams) (string, error) {
	cp := &stripego.CustomerParams{}
	cp.Context = ctx
	if params.Email != "" {
		cp.Email = stripego.String(params.Email)
	}
	if params.Name != "" {
		cp.Name = stripego.String(params.Name)
	}
	cp.AddMetadata("user_id", params.UserID.String())
	cp.SetIdempotencyKey("customer-" + params.UserID.String())

	c, err := p.api.Customers.New(cp)
	if err != nil {
		return "", fmt.Errorf("failed to create stripe customer: %w", err)
	}
	return c.ID, nil
}

// CreateCheckoutSession creates a subscription-mode Checkout session.
func (p *Provider) CreateCheckoutSession(ctx context.Context, params subscription.CheckoutParams) (*subscription.CheckoutSession, error) {
	if params.PriceRef == "" {
		return nil, subscription.ErrMissingPriceRef
	}
	if params.CustomerRef == "" {
		return nil, subscription.ErrMissingCustomerRef
	}

	userID := params.UserID.String()
	sp := &stripego.CheckoutSessionParams{
		Customer:          stripego.String(params.CustomerRef),
		ClientReferenceID: stripego.String(userID),
		Mode:              stripego.String(string(stripego.CheckoutSessionModeSubscription)),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{
				Price:    stripego.String(params.PriceRef),
				Quantity: stripego.Int64(1),
			},
		},
		SuccessURL:       stripego.String(params.SuccessURL),
		CancelURL:        stripego.String(params.CancelURL),
		SubscriptionData: &stripego.CheckoutSessionSubscriptionDataParams{},
	}
	sp.Context = ctx
	sp.AddMetadata("user_id", userID)
	sp.SubscriptionData.AddMetadata("user_id", userID)
	if params.TrialDays > 0 {
		sp.SubscriptionData.TrialPeriodDays = stripego.Int64(int64(params.TrialDays))
	}
	sp.SetIdempotencyKey("checkout-" + uuid.NewString())

	s, err := p.api.CheckoutSessions.New(sp)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe checkout session: %w", err)
	}
	if s.URL == "" {
		return nil, subscription.ErrNoCheckoutURL
	}
	return &subscription.CheckoutSession{SessionID: s.ID, URL: s.URL}, nil
}

// CreatePortalSession creates a billing portal session.
func (p *Provider) CreatePortalSession(ctx context.Context, params subscription.PortalParams) (*subscription.PortalSession, error) {
	if params.CustomerRef == "" {
		return nil, subscription.ErrMissingCustomerRef
	}

	pp := &stripego.BillingPortalSessionParams{
		Customer:  stripego.String(params.CustomerRef),
		ReturnURL: stripego.String(params.ReturnURL),
	}
	pp.Context = ctx

	s, err := p.api.BillingPortalSessions.New(pp)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe portal session: %w", err)
	}
	if s.URL == "" {
		return nil, subscription.ErrNoPortalURL
	}
	return &subscription.PortalSession{URL: s.URL}, nil
}

// SetCancelAtPeriodEnd updates cancel_at_period_end on the subscription.
func (p *Provider) SetCancelAtPeriodEnd(ctx context.Context, subscriptionRef string, cancel bool) error {
	sp := &stripego.SubscriptionParams{
		CancelAtPeriodEnd: stripego.Bool(cancel),
	}
	sp.Context = ctx

	if _, err := p.api.Subscriptions.Update(subscriptionRef, sp); err != nil {
		return fmt.Errorf("failed to update stripe subscription: %w", err)
	}
	return nil
}

// ParseEvent verifies the Stripe-Signature header and decodes the event.
// Completed checkouts are enriched with the subscription's price and period,
// which Stripe does not include in the session object.
func (p *Provider) ParseEvent(ctx context.Context, payload []byte, signature string) (subscription.Event, error) {
	if signature == "" {
		return nil, subscription.ErrWebhookVerificationFailed
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return nil, errors.Join(subscription.ErrWebhookVerificationFailed, err)
		}
		return nil, errors.Join(subscription.ErrMalformedEvent, err)
	}
	if ev.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", subscription.ErrMalformedEvent, ev.ID)
	}

	switch ev.Type {
	case stripego.EventTypeCheckoutSessionCompleted:
		return p.checkoutCompleted(ctx, ev)

	case stripego.EventTypeInvoicePaymentSucceeded, stripego.EventTypeInvoicePaymentFailed:
		var inv stripego.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return nil, errors.Join(subscription.ErrMalformedEvent, err)
		}
		var subRef string
		if inv.Subscription != nil {
			subRef = inv.Subscription.ID
		}
		if ev.Type == stripego.EventTypeInvoicePaymentFailed {
			return subscription.InvoicePaymentFailed{
				ID:              ev.ID,
				ProviderName:    providerName,
				SubscriptionRef: subRef,
				InvoiceRef:      inv.ID,
				Amount:          inv.AmountDue,
				Currency:        string(inv.Currency),
			}, nil
		}
		return subscription.InvoicePaid{
			ID:              ev.ID,
			ProviderName:    providerName,
			SubscriptionRef: subRef,
			InvoiceRef:      inv.ID,
			Amount:          inv.AmountPaid,
			Currency:        string(inv.Currency),
		}, nil

	case stripego.EventTypeCustomerSubscriptionDeleted:
		var sub stripego.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &sub); err != nil {
			return nil, errors.Join(subscription.ErrMalformedEvent, err)
		}
		return subscription.SubscriptionDeleted{
			ID:              ev.ID,
			ProviderName:    providerName,
			SubscriptionRef: sub.ID,
		}, nil

	default:
		return subscription.UnhandledEvent{ID: ev.ID, ProviderName: providerName, Type: string(ev.Type)}, nil
	}
}

func (p *Provider) checkoutCompleted(ctx context.Context, ev stripego.Event) (subscription.Event, error) {
	var session stripego.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &session); err != nil {
		return nil, errors.Join(subscription.ErrMalformedEvent, err)
	}

	out := subscription.CheckoutCompleted{
		ID:           ev.ID,
		ProviderName: providerName,
		UserID:       session.ClientReferenceID,
	}
	if out.UserID == "" {
		out.UserID = session.Metadata["user_id"]
	}
	if session.Customer != nil {
		out.CustomerRef = session.Customer.ID
	}
	if session.Subscription == nil || session.Subscription.ID == "" {
		return out, nil
	}
	out.SubscriptionRef = session.Subscription.ID

	params := &stripego.SubscriptionParams{}
	params.Context = ctx
	sub, err := p.api.Subscriptions.Get(out.SubscriptionRef, params)
	if err != nil {
		return nil, errors.Join(subscription.ErrProviderError, err)
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceRef = sub.Items.Data[0].Price.ID
	}
	if out.UserID == "" {
		out.UserID = sub.Metadata["user_id"]
	}
	out.PeriodStart = unixTime(sub.CurrentPeriodStart)
	out.PeriodEnd = unixTime(sub.CurrentPeriodEnd)
	out.TrialEnd = unixTime(sub.TrialEnd)
	out.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	return out, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
