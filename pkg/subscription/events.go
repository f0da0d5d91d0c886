package subscription

import "time"

// Event is a verified billing notification. Implementations are limited to
// the types in this file.
type Event interface {
	EventID() string
	Provider() string
	isEvent()
}

// CheckoutCompleted reports a paid subscription created through checkout.
type CheckoutCompleted struct {
	ID                string
	ProviderName      string
	UserID            string // as sent in metadata, validated by the processor
	CustomerRef       string
	SubscriptionRef   string
	PriceRef          string
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	CancelAtPeriodEnd bool
	TrialEnd          *time.Time
}

// InvoicePaid reports a successful renewal or first payment.
type InvoicePaid struct {
	ID              string
	ProviderName    string
	SubscriptionRef string
	InvoiceRef      string
	Amount          int64
	Currency        string
}

// InvoicePaymentFailed reports a failed renewal attempt.
type InvoicePaymentFailed struct {
	ID              string
	ProviderName    string
	SubscriptionRef string
	InvoiceRef      string
	Amount          int64
	Currency        string
}

// SubscriptionDeleted reports a subscription that ended at the provider.
type SubscriptionDeleted struct {
	ID              string
	ProviderName    string
	SubscriptionRef string
}

// UnhandledEvent is any verified notification the processor does not act on.
type UnhandledEvent struct {
	ID           string
	ProviderName string
	Type         string
}

func (e CheckoutCompleted) EventID() string    { return e.ID }
func (e InvoicePaid) EventID() string          { return e.ID }
func (e InvoicePaymentFailed) EventID() string { return e.ID }
func (e SubscriptionDeleted) EventID() string  { return e.ID }
func (e UnhandledEvent) EventID() string       { return e.ID }

func (e CheckoutCompleted) Provider() string    { return e.ProviderName }
func (e InvoicePaid) Provider() string          { return e.ProviderName }
func (e InvoicePaymentFailed) Provider() string { return e.ProviderName }
func (e SubscriptionDeleted) Provider() string  { return e.ProviderName }
func (e UnhandledEvent) Provider() string       { return e.ProviderName }

func (CheckoutCompleted) isEvent()    {}
func (InvoicePaid) isEvent()          {}
func (InvoicePaymentFailed) isEvent() {}
func (SubscriptionDeleted) isEvent()  {}
func (UnhandledEvent) isEvent()       {}

// Kind returns a stable, low-cardinality name for the event type.
func Kind(ev Event) string {
	switch ev.(type) {
	case CheckoutCompleted:
		return "checkout_completed"
	case InvoicePaid:
		return "invoice_paid"
	case InvoicePaymentFailed:
		return "invoice_payment_failed"
	case SubscriptionDeleted:
		return "subscription_deleted"
	default:
		return "unhandled"
	}
}
