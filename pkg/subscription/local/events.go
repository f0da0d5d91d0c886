package local

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/smartfolio/smartfolio/pkg/subscription"
)

// Event types of the local wire format.
const (
	TypeCheckoutCompleted    = "checkout.completed"
	TypeInvoicePaid          = "invoice.paid"
	TypeInvoicePaymentFailed = "invoice.payment_failed"
	TypeSubscriptionDeleted  = "subscription.deleted"
)

type wireEvent struct {
	ID   string   `json:"id"`
	Type string   `json:"type"`
	Data wireData `json:"data"`
}

type wireData struct {
	UserID            string     `json:"user_id,omitempty"`
	CustomerRef       string     `json:"customer_ref,omitempty"`
	SubscriptionRef   string     `json:"subscription_ref,omitempty"`
	PriceRef          string     `json:"price_ref,omitempty"`
	InvoiceRef        string     `json:"invoice_ref,omitempty"`
	Amount            int64      `json:"amount,omitempty"`
	Currency          string     `json:"currency,omitempty"`
	PeriodStart       *time.Time `json:"period_start,omitempty"`
	PeriodEnd         *time.Time `json:"period_end,omitempty"`
	TrialEnd          *time.Time `json:"trial_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end,omitempty"`
}

// Encode serializes an event to the local wire format.
func Encode(ev subscription.Event) ([]byte, error) {
	w := wireEvent{ID: ev.EventID()}
	switch e := ev.(type) {
	case subscription.CheckoutCompleted:
		w.Type = TypeCheckoutCompleted
		w.Data = wireData{
			UserID:            e.UserID,
			CustomerRef:       e.CustomerRef,
			SubscriptionRef:   e.SubscriptionRef,
			PriceRef:          e.PriceRef,
			PeriodStart:       e.PeriodStart,
			PeriodEnd:         e.PeriodEnd,
			TrialEnd:          e.TrialEnd,
			CancelAtPeriodEnd: e.CancelAtPeriodEnd,
		}
	case subscription.InvoicePaid:
		w.Type = TypeInvoicePaid
		w.Data = wireData{SubscriptionRef: e.SubscriptionRef, InvoiceRef: e.InvoiceRef, Amount: e.Amount, Currency: e.Currency}
	case subscription.InvoicePaymentFailed:
		w.Type = TypeInvoicePaymentFailed
		w.Data = wireData{SubscriptionRef: e.SubscriptionRef, InvoiceRef: e.InvoiceRef, Amount: e.Amount, Currency: e.Currency}
	case subscription.SubscriptionDeleted:
		w.Type = TypeSubscriptionDeleted
		w.Data = wireData{SubscriptionRef: e.SubscriptionRef}
	case subscription.UnhandledEvent:
		w.Type = e.Type
	default:
		return nil, fmt.Errorf("unsupported event %T", ev)
	}
	return json.Marshal(w)
}

func decode(payload []byte) (subscription.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, err
	}
	if w.ID == "" || w.Type == "" {
		return nil, fmt.Errorf("event id and type are required")
	}

	d := w.Data
	switch w.Type {
	case TypeCheckoutCompleted:
		return subscription.CheckoutCompleted{
			ID:                w.ID,
			ProviderName:      providerName,
			UserID:            d.UserID,
			CustomerRef:       d.CustomerRef,
			SubscriptionRef:   d.SubscriptionRef,
			PriceRef:          d.PriceRef,
			PeriodStart:       d.PeriodStart,
			PeriodEnd:         d.PeriodEnd,
			TrialEnd:          d.TrialEnd,
			CancelAtPeriodEnd: d.CancelAtPeriodEnd,
		}, nil
	case TypeInvoicePaid:
		return subscription.InvoicePaid{
			ID:              w.ID,
			ProviderName:    providerName,
			SubscriptionRef: d.SubscriptionRef,
			InvoiceRef:      d.InvoiceRef,
			Amount:          d.Amount,
			Currency:        d.Currency,
		}, nil
	case TypeInvoicePaymentFailed:
		return subscription.InvoicePaymentFailed{
			ID:              w.ID,
			ProviderName:    providerName,
			SubscriptionRef: d.SubscriptionRef,
			InvoiceRef:      d.InvoiceRef,
			Amount:          d.Amount,
			Currency:        d.Currency,
		}, nil
	case TypeSubscriptionDeleted:
		return subscription.SubscriptionDeleted{ID: w.ID, ProviderName: providerName, SubscriptionRef: d.SubscriptionRef}, nil
	default:
		return subscription.UnhandledEvent{ID: w.ID, ProviderName: providerName, Type: w.Type}, nil
	}
}
