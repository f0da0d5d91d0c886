package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/smartfolio/smartfolio/pkg/logger"
)

// Outcome is the result of processing an event.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeIgnored Outcome = "ignored"
)

// Notifier is told about state changes worth a message to the user.
// Errors are logged and never fail processing.
type Notifier interface {
	SubscriptionActivated(ctx context.Context, sub *Subscription) error
	PaymentFailed(ctx context.Context, sub *Subscription) error
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithPaymentRecorder records invoice outcomes as payments.
func WithPaymentRecorder(r PaymentRecorder) ProcessorOption {
	return func(p *Processor) {
		p.payments = r
	}
}

// WithNotifier sets the notifier called after activation and payment failure.
func WithNotifier(n Notifier) ProcessorOption {
	return func(p *Processor) {
		p.notifier = n
	}
}

// WithProcessorLogger sets the logger.
func WithProcessorLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// Processor applies verified billing events to the store. All writes are
// absolute so reprocessing an event yields the same state.
type Processor struct {
	store    Store
	catalog  *Catalog
	payments PaymentRecorder
	notifier Notifier
	logger   *slog.Logger
}

// NewProcessor creates a processor. Store and catalog are required.
func NewProcessor(store Store, catalog *Catalog, opts ...ProcessorOption) *Processor {
	if store == nil {
		panic("subscription: store cannot be nil")
	}
	if catalog == nil {
		panic("subscription: catalog cannot be nil")
	}
	p := &Processor{
		store:   store,
		catalog: catalog,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process applies the event. Events without a matching subscription, with
// missing identifiers or of an unhandled type are ignored without error.
// Store failures are returned so the sender can redeliver.
func (p *Processor) Process(ctx context.Context, ev Event) (Outcome, error) {
	log := p.logger.With(
		logger.Component("subscription.processor"),
		logger.EventID(ev.EventID()),
		logger.EventType(Kind(ev)),
	)

	switch e := ev.(type) {
	case CheckoutCompleted:
		return p.checkoutCompleted(ctx, log, e)
	case InvoicePaid:
		return p.invoicePaid(ctx, log, e)
	case InvoicePaymentFailed:
		return p.invoicePaymentFailed(ctx, log, e)
	case SubscriptionDeleted:
		return p.subscriptionDeleted(ctx, log, e)
	case UnhandledEvent:
		log.InfoContext(ctx, "billing event ignored", slog.String("provider_type", e.Type))
		return OutcomeIgnored, nil
	default:
		return OutcomeIgnored, fmt.Errorf("%w: unsupported event %T", ErrMalformedEvent, ev)
	}
}

func (p *Processor) checkoutCompleted(ctx context.Context, log *slog.Logger, e CheckoutCompleted) (Outcome, error) {
	userID, err := uuid.Parse(e.UserID)
	if err != nil || e.SubscriptionRef == "" || e.CustomerRef == "" {
		log.InfoContext(ctx, "checkout event without user or subscription reference ignored")
		return OutcomeIgnored, nil
	}

	plan, ok := p.catalog.PlanForPrice(e.PriceRef)
	if !ok {
		log.WarnContext(ctx, "checkout with unknown price, assuming pro",
			slog.String("price_ref", e.PriceRef))
		plan = PlanPro
	}

	prev, err := p.store.GetByUser(ctx, userID)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return "", err
	}

	sub, err := p.store.UpsertCheckout(ctx, CheckoutRecord{
		UserID:             userID,
		Plan:               plan,
		Status:             StatusActive,
		CustomerRef:        e.CustomerRef,
		SubscriptionRef:    e.SubscriptionRef,
		PriceRef:           e.PriceRef,
		CurrentPeriodStart: e.PeriodStart,
		CurrentPeriodEnd:   e.PeriodEnd,
		CancelAtPeriodEnd:  e.CancelAtPeriodEnd,
		TrialEnd:           e.TrialEnd,
	})
	if err != nil {
		return "", err
	}

	log.InfoContext(ctx, "subscription activated",
		logger.UserID(userID), logger.Plan(string(plan)), logger.SubscriptionRef(e.SubscriptionRef))

	alreadyActive := prev != nil &&
		prev.SubscriptionRef == e.SubscriptionRef &&
		prev.Status == StatusActive &&
		prev.Plan == plan
	if !alreadyActive {
		p.notify(ctx, log, "activation", func(ctx context.Context) error {
			return p.notifier.SubscriptionActivated(ctx, sub)
		})
	}
	return OutcomeApplied, nil
}

func (p *Processor) invoicePaid(ctx context.Context, log *slog.Logger, e InvoicePaid) (Outcome, error) {
	sub, ok, err := p.lookup(ctx, log, e.SubscriptionRef)
	if !ok || err != nil {
		return OutcomeIgnored, err
	}

	if err := p.recordPayment(ctx, sub, e.InvoiceRef, e.Amount, e.Currency, PaymentSucceeded); err != nil {
		return "", err
	}

	if sub.Status != StatusActive {
		if err := p.store.SetStatus(ctx, sub.UserID, StatusActive); err != nil {
			return "", err
		}
		log.InfoContext(ctx, "subscription reactivated after payment", logger.UserID(sub.UserID))
	}
	return OutcomeApplied, nil
}

func (p *Processor) invoicePaymentFailed(ctx context.Context, log *slog.Logger, e InvoicePaymentFailed) (Outcome, error) {
	sub, ok, err := p.lookup(ctx, log, e.SubscriptionRef)
	if !ok || err != nil {
		return OutcomeIgnored, err
	}

	if err := p.recordPayment(ctx, sub, e.InvoiceRef, e.Amount, e.Currency, PaymentFailed); err != nil {
		return "", err
	}

	wasPastDue := sub.Status == StatusPastDue
	if err := p.store.SetStatus(ctx, sub.UserID, StatusPastDue); err != nil {
		return "", err
	}
	log.InfoContext(ctx, "subscription marked past due", logger.UserID(sub.UserID))

	if !wasPastDue {
		sub.Status = StatusPastDue
		p.notify(ctx, log, "payment failure", func(ctx context.Context) error {
			return p.notifier.PaymentFailed(ctx, sub)
		})
	}
	return OutcomeApplied, nil
}

func (p *Processor) subscriptionDeleted(ctx context.Context, log *slog.Logger, e SubscriptionDeleted) (Outcome, error) {
	sub, ok, err := p.lookup(ctx, log, e.SubscriptionRef)
	if !ok || err != nil {
		return OutcomeIgnored, err
	}

	if err := p.store.SetStatus(ctx, sub.UserID, StatusCanceled); err != nil {
		return "", err
	}
	log.InfoContext(ctx, "subscription canceled", logger.UserID(sub.UserID))
	return OutcomeApplied, nil
}

// lookup finds the row of a subscription ref. ok is false when the event
// should be ignored.
func (p *Processor) lookup(ctx context.Context, log *slog.Logger, ref string) (*Subscription, bool, error) {
	if ref == "" {
		log.InfoContext(ctx, "billing event without subscription reference ignored")
		return nil, false, nil
	}
	sub, err := p.store.GetBySubscriptionRef(ctx, ref)
	if errors.Is(err, ErrSubscriptionNotFound) {
		log.InfoContext(ctx, "billing event for unknown subscription ignored", logger.SubscriptionRef(ref))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return sub, true, nil
}

func (p *Processor) recordPayment(ctx context.Context, sub *Subscription, invoiceRef string, amount int64, currency string, status PaymentStatus) error {
	if p.payments == nil || invoiceRef == "" {
		return nil
	}
	return p.payments.RecordPayment(ctx, Payment{
		UserID:      sub.UserID,
		InvoiceRef:  invoiceRef,
		Amount:      amount,
		Currency:    currency,
		Status:      status,
		Description: fmt.Sprintf("%s subscription", p.catalog.Info(sub.Plan).Name),
	})
}

func (p *Processor) notify(ctx context.Context, log *slog.Logger, what string, fn func(context.Context) error) {
	if p.notifier == nil {
		return
	}
	if err := fn(ctx); err != nil {
		log.ErrorContext(ctx, "failed to send "+what+" notification", logger.Error(err))
	}
}
