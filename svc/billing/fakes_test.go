package billing_test

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartfolio/smartfolio/pkg/email"
	"github.com/smartfolio/smartfolio/pkg/subscription"
)

// memStore is an in-memory subscription store with payment history.
type memStore struct {
	mu       sync.Mutex
	subs     map[uuid.UUID]subscription.Subscription
	payments map[string]subscription.Payment
}

func newMemStore() *memStore {
	return &memStore{
		subs:     make(map[uuid.UUID]subscription.Subscription),
		payments: make(map[string]subscription.Payment),
	}
}

func (s *memStore) GetByUser(_ context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[userID]
	if !ok {
		return nil, subscription.ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (s *memStore) GetBySubscriptionRef(_ context.Context, ref string) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if ref != "" && sub.SubscriptionRef == ref {
			return &sub, nil
		}
	}
	return nil, subscription.ErrSubscriptionNotFound
}

func (s *memStore) UpsertCheckout(_ context.Context, rec subscription.CheckoutRecord) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[rec.UserID]
	if !ok {
		sub = subscription.Subscription{UserID: rec.UserID, CreatedAt: time.Now()}
	}
	sub.Plan = rec.Plan
	sub.Status = rec.Status
	sub.CustomerRef = rec.CustomerRef
	sub.SubscriptionRef = rec.SubscriptionRef
	sub.PriceRef = rec.PriceRef
	sub.CurrentPeriodStart = rec.CurrentPeriodStart
	sub.CurrentPeriodEnd = rec.CurrentPeriodEnd
	sub.CancelAtPeriodEnd = rec.CancelAtPeriodEnd
	sub.TrialEnd = rec.TrialEnd
	sub.UpdatedAt = time.Now()
	s.subs[rec.UserID] = sub
	return &sub, nil
}

func (s *memStore) AttachCustomer(_ context.Context, userID uuid.UUID, customerRef, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[userID]
	if !ok {
		sub = *subscription.DefaultSubscription(userID)
	}
	if sub.CustomerRef == "" {
		sub.CustomerRef = customerRef
	}
	if email != "" {
		sub.CustomerEmail = email
	}
	s.subs[userID] = sub
	return sub.CustomerRef, nil
}

func (s *memStore) SetStatus(_ context.Context, userID uuid.UUID, status subscription.Status) error {
	return s.mutate(userID, func(sub *subscription.Subscription) { sub.Status = status })
}

func (s *memStore) SetCancelAtPeriodEnd(_ context.Context, userID uuid.UUID, cancel bool) error {
	return s.mutate(userID, func(sub *subscription.Subscription) { sub.CancelAtPeriodEnd = cancel })
}

func (s *memStore) mutate(userID uuid.UUID, fn func(*subscription.Subscription)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[userID]
	if !ok {
		return subscription.ErrSubscriptionNotFound
	}
	fn(&sub)
	s.subs[userID] = sub
	return nil
}

func (s *memStore) RecordPayment(_ context.Context, p subscription.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.payments[p.InvoiceRef]; ok {
		p.ID, p.CreatedAt = prev.ID, prev.CreatedAt
	} else {
		p.ID, p.CreatedAt = uuid.New(), time.Now()
	}
	s.payments[p.InvoiceRef] = p
	return nil
}

func (s *memStore) ListPayments(_ context.Context, userID uuid.UUID, limit uint64) ([]subscription.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]subscription.Payment, 0)
	for _, p := range s.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b subscription.Payment) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if uint64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fixedUsage reports the same usage for every user.
type fixedUsage struct {
	portfolios, generations, tokens int64
}

func (u fixedUsage) CountPortfolios(context.Context, uuid.UUID) (int64, error) {
	return u.portfolios, nil
}

func (u fixedUsage) CountAIGenerationsSince(context.Context, uuid.UUID, time.Time) (int64, error) {
	return u.generations, nil
}

func (u fixedUsage) SumAITokensSince(context.Context, uuid.UUID, time.Time) (int64, error) {
	return u.tokens, nil
}

// outbox records sent emails.
type outbox struct {
	mu   sync.Mutex
	sent []email.Message
}

func (o *outbox) Send(_ context.Context, msg email.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) tags() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	tags := make([]string, 0, len(o.sent))
	for _, m := range o.sent {
		tags = append(tags, m.Tag)
	}
	return tags
}
