package subscription

import (
	"context"

	"github.com/google/uuid"
)

// BillingProvider is the minimal surface of a hosted billing provider.
// Payment details never touch this service: customers pay on the provider's
// checkout page and manage billing in its portal.
type BillingProvider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// CreateCustomer registers a customer and returns the provider's reference.
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)

	// CreateCheckoutSession creates a hosted checkout for a subscription.
	// The user id must travel in the session metadata so the completion
	// event can be matched back to the user.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)

	// CreatePortalSession returns a short-lived customer portal link.
	CreatePortalSession(ctx context.Context, params PortalParams) (*PortalSession, error)

	// SetCancelAtPeriodEnd schedules or unschedules cancellation at the end
	// of the current billing period.
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionRef string, cancel bool) error

	// ParseEvent verifies the signature over the raw payload and decodes it.
	// Returns ErrWebhookVerificationFailed before decoding anything when the
	// signature does not match.
	ParseEvent(ctx context.Context, payload []byte, signature string) (Event, error)

	// SignatureHeader is the HTTP header carrying the webhook signature.
	SignatureHeader() string
}

// CustomerParams describes a customer to create at the provider.
type CustomerParams struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

// CheckoutParams describes a checkout session.
type CheckoutParams struct {
	UserID      uuid.UUID
	CustomerRef string
	PriceRef    string
	SuccessURL  string
	CancelURL   string
	TrialDays   int // 0 disables the trial
}

// PortalParams describes a customer portal session.
type PortalParams struct {
	CustomerRef     string
	SubscriptionRef string // optional, narrows the portal to one subscription
	ReturnURL       string
}

// CheckoutSession is a hosted checkout page.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// PortalSession is a pre-authenticated customer portal link.
type PortalSession struct {
	URL string `json:"url"`
}
