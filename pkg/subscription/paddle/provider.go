// Package paddle implements subscription.BillingProvider on Paddle Billing.
package paddle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paddlesdk "github.com/PaddleHQ/paddle-go-sdk/v4"

	"github.com/smartfolio/smartfolio/pkg/subscription"
)

const providerName = "paddle"

// Config holds Paddle credentials.
type Config struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// Provider talks to the Paddle API.
type Provider struct {
	client   *paddlesdk.SDK
	verifier *paddlesdk.WebhookVerifier
}

var _ subscription.BillingProvider = (*Provider)(nil)

// New creates a Paddle provider for the configured environment.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, subscription.ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, subscription.ErrMissingWebhookSecret
	}

	var (
		client *paddlesdk.SDK
		err    error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddlesdk.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddlesdk.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", subscription.ErrInvalidProviderEnvironment, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &Provider{
		client:   client,
		verifier: paddlesdk.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) SignatureHeader() string { return "Paddle-Signature" }

// CreateCustomer creates a Paddle customer. Paddle requires an email.
func (p *Provider) CreateCustomer(ctx context.Context, params subscription.CustomerParams) (string, error) {
	if params.Email == "" {
		return "", errors.New("paddle customer requires an email")
	}

	req := &paddlesdk.CreateCustomerRequest{
		Email: params.Email,
		CustomData: paddlesdk.CustomData{
			"user_id": params.UserID.String(),
		},
	}
	if params.Name != "" {
		req.Name = paddlesdk.PtrTo(params.Name)
	}

	customer, err := p.client.CustomersClient.CreateCustomer(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create paddle customer: %w", err)
	}
	return customer.ID, nil
}

// CreateCheckoutSession creates a draft transaction and returns its hosted
// checkout link. Trials are configured on the Paddle price itself.
func (p *Provider) CreateCheckoutSession(ctx context.Context, params subscription.CheckoutParams) (*subscription.CheckoutSession, error) {
	if params.PriceRef == "" {
		return nil, subscription.ErrMissingPriceRef
	}
	if params.CustomerRef == "" {
		return nil, subscription.ErrMissingCustomerRef
	}

	item := paddlesdk.NewCreateTransactionItemsTransactionItemFromCatalog(&paddlesdk.TransactionItemFromCatalog{
		PriceID:  params.PriceRef,
		Quantity: 1,
	})

	req := &paddlesdk.CreateTransactionRequest{
		Items:      []paddlesdk.CreateTransactionItems{*item},
		CustomerID: paddlesdk.PtrTo(params.CustomerRef),
		CustomData: paddlesdk.CustomData{
			"user_id": params.UserID.String(),
		},
	}
	if params.SuccessURL != "" {
		req.Checkout = &paddlesdk.TransactionCheckout{
			URL: paddlesdk.PtrTo(params.SuccessURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle transaction: %w", err)
	}
	if transaction.Checkout == nil || transaction.Checkout.URL == nil || *transaction.Checkout.URL == "" {
		return nil, subscription.ErrNoCheckoutURL
	}

	return &subscription.CheckoutSession{
		SessionID: transaction.ID,
		URL:       *transaction.Checkout.URL,
	}, nil
}

// CreatePortalSession creates an authenticated customer portal session.
func (p *Provider) CreatePortalSession(ctx context.Context, params subscription.PortalParams) (*subscription.PortalSession, error) {
	if params.CustomerRef == "" {
		return nil, subscription.ErrMissingCustomerRef
	}

	req := &paddlesdk.CreateCustomerPortalSessionRequest{
		CustomerID: params.CustomerRef,
	}
	if params.SubscriptionRef != "" {
		req.SubscriptionIDs = []string{params.SubscriptionRef}
	}

	session, err := p.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle customer portal session: %w", err)
	}
	if session.URLs.General.Overview == "" {
		return nil, subscription.ErrNoPortalURL
	}
	return &subscription.PortalSession{URL: session.URLs.General.Overview}, nil
}

// SetCancelAtPeriodEnd schedules cancellation for the next billing period,
// or removes the scheduled change to resume.
func (p *Provider) SetCancelAtPeriodEnd(ctx context.Context, subscriptionRef string, cancel bool) error {
	if cancel {
		_, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddlesdk.CancelSubscriptionRequest{
			SubscriptionID: subscriptionRef,
			EffectiveFrom:  paddlesdk.PtrTo(paddlesdk.EffectiveFromNextBillingPeriod),
		})
		if err != nil {
			return fmt.Errorf("failed to cancel paddle subscription: %w", err)
		}
		return nil
	}

	_, err := p.client.SubscriptionsClient.UpdateSubscription(ctx, &paddlesdk.UpdateSubscriptionRequest{
		SubscriptionID:  subscriptionRef,
		ScheduledChange: paddlesdk.NewNullPatchField[*paddlesdk.SubscriptionScheduledChange](),
	})
	if err != nil {
		return fmt.Errorf("failed to resume paddle subscription: %w", err)
	}
	return nil
}

// ParseEvent verifies the Paddle-Signature header and decodes the event.
func (p *Provider) ParseEvent(ctx context.Context, payload []byte, signature string) (subscription.Event, error) {
	if signature == "" {
		return nil, subscription.ErrWebhookVerificationFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhooks/billing", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set(p.SignatureHeader(), signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(subscription.ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return nil, subscription.ErrWebhookVerificationFailed
	}

	return decodeEvent(payload)
}

type notification struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

type subscriptionData struct {
	ID                   string             `json:"id"`
	Status               string             `json:"status"`
	CustomerID           string             `json:"customer_id"`
	CustomData           map[string]any     `json:"custom_data"`
	CurrentBillingPeriod *billingPeriod     `json:"current_billing_period"`
	ScheduledChange      *scheduledChange   `json:"scheduled_change"`
	Items                []subscriptionItem `json:"items"`
}

type billingPeriod struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

type scheduledChange struct {
	Action      string    `json:"action"`
	EffectiveAt time.Time `json:"effective_at"`
}

type subscriptionItem struct {
	Status string `json:"status"`
	Price  struct {
		ID string `json:"id"`
	} `json:"price"`
	TrialDates *billingPeriod `json:"trial_dates"`
}

type transactionData struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	CurrencyCode   string `json:"currency_code"`
	Details        struct {
		Totals struct {
			GrandTotal string `json:"grand_total"`
		} `json:"totals"`
	} `json:"details"`
}

func decodeEvent(payload []byte) (subscription.Event, error) {
	var n notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, errors.Join(subscription.ErrMalformedEvent, err)
	}

	switch n.EventType {
	case "subscription.created", "subscription.activated":
		var s subscriptionData
		if err := json.Unmarshal(n.Data, &s); err != nil {
			return nil, errors.Join(subscription.ErrMalformedEvent, err)
		}
		ev := subscription.CheckoutCompleted{
			ID:              n.EventID,
			ProviderName:    providerName,
			CustomerRef:     s.CustomerID,
			SubscriptionRef: s.ID,
		}
		if uid, ok := s.CustomData["user_id"].(string); ok {
			ev.UserID = uid
		}
		if len(s.Items) > 0 {
			ev.PriceRef = s.Items[0].Price.ID
			if td := s.Items[0].TrialDates; td != nil && s.Status == "trialing" {
				ev.TrialEnd = timePtr(td.EndsAt)
			}
		}
		if s.CurrentBillingPeriod != nil {
			ev.PeriodStart = timePtr(s.CurrentBillingPeriod.StartsAt)
			ev.PeriodEnd = timePtr(s.CurrentBillingPeriod.EndsAt)
		}
		ev.CancelAtPeriodEnd = s.ScheduledChange != nil && s.ScheduledChange.Action == "cancel"
		return ev, nil

	case "transaction.completed", "transaction.payment_failed":
		var t transactionData
		if err := json.Unmarshal(n.Data, &t); err != nil {
			return nil, errors.Join(subscription.ErrMalformedEvent, err)
		}
		if t.SubscriptionID == "" {
			return subscription.UnhandledEvent{ID: n.EventID, ProviderName: providerName, Type: n.EventType}, nil
		}
		amount, _ := strconv.ParseInt(t.Details.Totals.GrandTotal, 10, 64)
		currency := strings.ToLower(t.CurrencyCode)
		if n.EventType == "transaction.payment_failed" {
			return subscription.InvoicePaymentFailed{
				ID:              n.EventID,
				ProviderName:    providerName,
				SubscriptionRef: t.SubscriptionID,
				InvoiceRef:      t.ID,
				Amount:          amount,
				Currency:        currency,
			}, nil
		}
		return subscription.InvoicePaid{
			ID:              n.EventID,
			ProviderName:    providerName,
			SubscriptionRef: t.SubscriptionID,
			InvoiceRef:      t.ID,
			Amount:          amount,
			Currency:        currency,
		}, nil

	case "subscription.canceled":
		var s subscriptionData
		if err := json.Unmarshal(n.Data, &s); err != nil {
			return nil, errors.Join(subscription.ErrMalformedEvent, err)
		}
		return subscription.SubscriptionDeleted{ID: n.EventID, ProviderName: providerName, SubscriptionRef: s.ID}, nil

	default:
		return subscription.UnhandledEvent{ID: n.EventID, ProviderName: providerName, Type: n.EventType}, nil
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}
