package subscription_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/smartfolio/smartfolio/pkg/subscription"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) SignatureHeader() string { return "X-Mock-Signature" }

func (m *mockProvider) CreateCustomer(ctx context.Context, params subscription.CustomerParams) (string, error) {
	args := m.Called(ctx, params)
	if fn, ok := args.Get(0).(func(context.Context, subscription.CustomerParams) string); ok {
		return fn(ctx, params), args.Error(1)
	}
	return args.String(0), args.Error(1)
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, params subscription.CheckoutParams) (*subscription.CheckoutSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.CheckoutSession), args.Error(1)
}

func (m *mockProvider) CreatePortalSession(ctx context.Context, params subscription.PortalParams) (*subscription.PortalSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.PortalSession), args.Error(1)
}

func (m *mockProvider) SetCancelAtPeriodEnd(ctx context.Context, subscriptionRef string, cancel bool) error {
	args := m.Called(ctx, subscriptionRef, cancel)
	return args.Error(0)
}

func (m *mockProvider) ParseEvent(ctx context.Context, payload []byte, signature string) (subscription.Event, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(subscription.Event), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SubscriptionActivated(ctx context.Context, sub *subscription.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockNotifier) PaymentFailed(ctx context.Context, sub *subscription.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

type mockCounter struct {
	mock.Mock
}

func (m *mockCounter) CountPortfolios(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCounter) CountAIGenerationsSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	args := m.Called(ctx, userID, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockCounter) SumAITokensSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	args := m.Called(ctx, userID, since)
	return args.Get(0).(int64), args.Error(1)
}

// memStore is an in-memory subscription store with the same overwrite
// semantics as the Postgres store.
type memStore struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]subscription.Subscription
	payments map[string]subscription.Payment
	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		rows:     make(map[uuid.UUID]subscription.Subscription),
		payments: make(map[string]subscription.Payment),
	}
}

func (s *memStore) put(sub subscription.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[sub.UserID] = sub
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

func (s *memStore) GetByUser(_ context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	sub, ok := s.rows[userID]
	if !ok {
		return nil, subscription.ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (s *memStore) GetBySubscriptionRef(_ context.Context, ref string) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	for _, sub := range s.rows {
		if sub.SubscriptionRef == ref {
			return &sub, nil
		}
	}
	return nil, subscription.ErrSubscriptionNotFound
}

func (s *memStore) UpsertCheckout(_ context.Context, rec subscription.CheckoutRecord) (*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	sub := s.rows[rec.UserID]
	sub.UserID = rec.UserID
	sub.Plan = rec.Plan
	sub.Status = rec.Status
	sub.CustomerRef = rec.CustomerRef
	sub.SubscriptionRef = rec.SubscriptionRef
	sub.PriceRef = rec.PriceRef
	sub.CurrentPeriodStart = rec.CurrentPeriodStart
	sub.CurrentPeriodEnd = rec.CurrentPeriodEnd
	sub.CancelAtPeriodEnd = rec.CancelAtPeriodEnd
	sub.TrialEnd = rec.TrialEnd
	s.rows[rec.UserID] = sub
	return &sub, nil
}

func (s *memStore) AttachCustomer(_ context.Context, userID uuid.UUID, customerRef, email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return "", s.failWith
	}
	sub, ok := s.rows[userID]
	if !ok {
		sub = *subscription.DefaultSubscription(userID)
	}
	if sub.CustomerRef == "" {
		sub.CustomerRef = customerRef
		sub.CustomerEmail = email
	}
	s.rows[userID] = sub
	return sub.CustomerRef, nil
}

func (s *memStore) SetStatus(_ context.Context, userID uuid.UUID, status subscription.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	sub, ok := s.rows[userID]
	if !ok {
		return subscription.ErrSubscriptionNotFound
	}
	sub.Status = status
	s.rows[userID] = sub
	return nil
}

func (s *memStore) SetCancelAtPeriodEnd(_ context.Context, userID uuid.UUID, cancel bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	sub, ok := s.rows[userID]
	if !ok {
		return subscription.ErrSubscriptionNotFound
	}
	sub.CancelAtPeriodEnd = cancel
	s.rows[userID] = sub
	return nil
}

func (s *memStore) RecordPayment(_ context.Context, p subscription.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.InvoiceRef] = p
	return nil
}

func testCatalog() *subscription.Catalog {
	return subscription.MustNewCatalog(subscription.PriceRefs{
		Pro:        "price_pro",
		Enterprise: "price_enterprise",
	})
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
