package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/smartfolio/smartfolio/pkg/subscription"
)

func checkoutEvent(userID uuid.UUID, priceRef string) subscription.CheckoutCompleted {
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	return subscription.CheckoutCompleted{
		ID:              "evt_checkout",
		ProviderName:    "mock",
		UserID:          userID.String(),
		CustomerRef:     "cus_1",
		SubscriptionRef: "sub_1",
		PriceRef:        priceRef,
		PeriodStart:     ptrTime(start),
		PeriodEnd:       ptrTime(start.AddDate(0, 1, 0)),
	}
}

func TestProcessor_CheckoutCompleted(t *testing.T) {
	t.Parallel()

	t.Run("creates an active subscription for the mapped plan", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		p := subscription.NewProcessor(store, testCatalog())
		userID := uuid.New()

		outcome, err := p.Process(context.Background(), checkoutEvent(userID, "price_enterprise"))
		require.NoError(t, err)
		assert.Equal(t, subscription.OutcomeApplied, outcome)

		sub, err := store.GetByUser(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, subscription.PlanEnterprise, sub.Plan)
		assert.Equal(t, subscription.StatusActive, sub.Status)
		assert.Equal(t, "cus_1", sub.CustomerRef)
		assert.Equal(t, "sub_1", sub.SubscriptionRef)
		assert.Equal(t, "price_enterprise", sub.PriceRef)
		require.NotNil(t, sub.CurrentPeriodEnd)
	})

	t.Run("unknown price falls back to pro", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		p := subscription.NewProcessor(store, testCatalog())
		userID := uuid.New()

		_, err := p.Process(context.Background(), checkoutEvent(userID, "price_legacy"))
		require.NoError(t, err)

		sub, err := store.GetByUser(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, subscription.PlanPro, sub.Plan)
	})

	t.Run("replay yields the same state", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		p := subscription.NewProcessor(store, testCatalog())
		userID := uuid.New()
		ev := checkoutEvent(userID, "price_pro")

		_, err := p.Process(context.Background(), ev)
		require.NoError(t, err)
		first, err := store.GetByUser(context.Background(), userID)
		require.NoError(t, err)

		for range 3 {
			outcome, err := p.Process(context.Background(), ev)
			require.NoError(t, err)
			assert.Equal(t, subscription.OutcomeApplied, outcome)
		}

		again, err := store.GetByUser(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, first, again)
		assert.Equal(t, 1, store.count())
	})

	t.Run("overwrites an existing row and keeps a single row per user", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		userID := uuid.New()
		store.put(subscription.Subscription{
			UserID:            userID,
			Plan:              subscription.PlanPro,
			Status:            subscription.StatusCanceled,
			CustomerRef:       "cus_1",
			SubscriptionRef:   "sub_old",
			CancelAtPeriodEnd: true,
		})
		p := subscription.NewProcessor(store, testCatalog())

		ev := checkoutEvent(userID, "price_enterprise")
		ev.SubscriptionRef = "sub_new"
		_, err := p.Process(context.Background(), ev)
		require.NoError(t, err)

		sub, err := store.GetByUser(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, userID, sub.UserID)
		assert.Equal(t, subscription.PlanEnterprise, sub.Plan)
		assert.Equal(t, subscription.StatusActive, sub.Status)
		assert.Equal(t, "sub_new", sub.SubscriptionRef)
		assert.False(t, sub.CancelAtPeriodEnd)
		assert.Equal(t, ev.PeriodStart, sub.CurrentPeriodStart)
		assert.Equal(t, 1, store.count())
	})

	t.Run("ignores events without user id", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		p := subscription.NewProcessor(store, testCatalog())

		ev := checkoutEvent(uuid.New(), "price_pro")
		ev.UserID = "not-a-uuid"
		outcome, err := p.Process(context.Background(), ev)
		require.NoError(t, err)
		assert.Equal(t, subscription.OutcomeIgnored, outcome)
		assert.Equal(t, 0, store.count())
	})

	t.Run("ignores events without subscription ref", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		p := subscription.NewProcessor(store, testCatalog())

		ev := checkoutEvent(uuid.New(), "price_pro")
		ev.SubscriptionRef = ""
		outcome, err := p.Process(context.Background(), ev)
		require.NoError(t, err)
		assert.Equal(t, subscription.OutcomeIgnored, outcome)
	})

	t.Run("notifies once per activation", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		notifier := &mockNotifier{}
		notifier.On("SubscriptionActivated", mock.Anything, mock.AnythingOfType("*subscription.Subscription")).Return(nil).Once()
		p := subscription.NewProcessor(store, testCatalog(), subscription.WithNotifier(notifier))

		ev := checkoutEvent(uuid.New(), "price_pro")
		_, err := p.Process(context.Background(), ev)
		require.NoError(t, err)
		_, err = p.Process(context.Background(), ev)
		require.NoError(t, err)

		notifier.AssertNumberOfCalls(t, "SubscriptionActivated", 1)
	})

	t.Run("notifier failure does not fail processing", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		notifier := &mockNotifier{}
		notifier.On("SubscriptionActivated", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
		p := subscription.NewProcessor(store, testCatalog(), subscription.WithNotifier(notifier))

		outcome, err := p.Process(context.Background(), checkoutEvent(uuid.New(), "price_pro"))
		require.NoError(t, err)
		assert.Equal(t, subscription.OutcomeApplied, outcome)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		store.failWith = errors.New("connection refused")
		p := subscription.NewProcessor(store, testCatalog())

		_, err := p.Process(context.Background(), checkoutEvent(uuid.New(), "price_pro"))
		assert.Error(t, err)
	})
}

func TestProcessor_PaymentEventsConverge(t *testing.T) {
	t.Parallel()

	sequences := map[string][]subscription.Event{
		"failed then paid": {
			subscription.InvoicePaymentFailed{ID: "evt_1", SubscriptionRef: "sub_1", InvoiceRef: "in_1"},
			subscription.InvoicePaid{ID: "evt_2", SubscriptionRef: "sub_1", InvoiceRef: "in_1"},
		},
		"repeated failures then repeated payments": {
			subscription.InvoicePaymentFailed{ID: "evt_1", SubscriptionRef: "sub_1", InvoiceRef: "in_1"},
			subscription.InvoicePaymentFailed{ID: "evt_1", SubscriptionRef: "sub_1", InvoiceRef: "in_1"},
			subscription.InvoicePaymentFailed{ID: "evt_3", SubscriptionRef: "sub_1", InvoiceRef: "in_1"},
			subscription.InvoicePaid{ID: "evt_2", SubscriptionRef: "sub_1", InvoiceRef: "in_1"},
			subscription.InvoicePaid{ID: "evt_2", SubscriptionRef: "sub_1", InvoiceRef: "in_1"},
		},
	}

	for name, events := range sequences {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := newMemStore()
			userID := uuid.New()
			store.put(subscription.Subscription{
				UserID:          userID,
				Plan:            subscription.PlanPro,
				Status:          subscription.StatusActive,
				SubscriptionRef: "sub_1",
			})
			p := subscription.NewProcessor(store, testCatalog(), subscription.WithPaymentRecorder(store))

			for _, ev := range events {
				outcome, err := p.Process(context.Background(), ev)
				require.NoError(t, err)
				assert.Equal(t, subscription.OutcomeApplied, outcome)
			}

			sub, err := store.GetByUser(context.Background(), userID)
			require.NoError(t, err)
			assert.Equal(t, subscription.StatusActive, sub.Status)
			require.Len(t, store.payments, 1)
			assert.Equal(t, subscription.PaymentSucceeded, store.payments["in_1"].Status)
		})
	}
}

func TestProcessor_InvoicePaymentFailed(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	userID := uuid.New()
	store.put(subscription.Subscription{
		UserID:          userID,
		Plan:            subscription.PlanPro,
		Status:          subscription.StatusActive,
		SubscriptionRef: "sub_1",
	})
	notifier := &mockNotifier{}
	notifier.On("PaymentFailed", mock.Anything, mock.MatchedBy(func(s *subscription.Subscription) bool {
		return s.Status == subscription.StatusPastDue
	})).Return(nil)
	p := subscription.NewProcessor(store, testCatalog(),
		subscription.WithPaymentRecorder(store),
		subscription.WithNotifier(notifier),
	)

	ev := subscription.InvoicePaymentFailed{ID: "evt_1", SubscriptionRef: "sub_1", InvoiceRef: "in_9", Amount: 1900, Currency: "usd"}
	_, err := p.Process(context.Background(), ev)
	require.NoError(t, err)
	_, err = p.Process(context.Background(), ev)
	require.NoError(t, err)

	sub, err := store.GetByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusPastDue, sub.Status)
	assert.Equal(t, subscription.PaymentFailed, store.payments["in_9"].Status)
	assert.Equal(t, int64(1900), store.payments["in_9"].Amount)
	notifier.AssertNumberOfCalls(t, "PaymentFailed", 1)
}

func TestProcessor_SubscriptionDeleted(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	userID := uuid.New()
	store.put(subscription.Subscription{
		UserID:          userID,
		Plan:            subscription.PlanEnterprise,
		Status:          subscription.StatusActive,
		SubscriptionRef: "sub_1",
	})
	p := subscription.NewProcessor(store, testCatalog())

	outcome, err := p.Process(context.Background(), subscription.SubscriptionDeleted{ID: "evt_1", SubscriptionRef: "sub_1"})
	require.NoError(t, err)
	assert.Equal(t, subscription.OutcomeApplied, outcome)

	sub, err := store.GetByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCanceled, sub.Status)
	assert.Equal(t, subscription.PlanEnterprise, sub.Plan)
}

func TestProcessor_IgnoredEvents(t *testing.T) {
	t.Parallel()

	events := []subscription.Event{
		subscription.UnhandledEvent{ID: "evt_1", Type: "customer.updated"},
		subscription.InvoicePaid{ID: "evt_2", SubscriptionRef: "sub_missing", InvoiceRef: "in_1"},
		subscription.InvoicePaymentFailed{ID: "evt_3", SubscriptionRef: "sub_missing", InvoiceRef: "in_2"},
		subscription.SubscriptionDeleted{ID: "evt_4", SubscriptionRef: "sub_missing"},
		subscription.SubscriptionDeleted{ID: "evt_5"},
	}

	store := newMemStore()
	p := subscription.NewProcessor(store, testCatalog(), subscription.WithPaymentRecorder(store))

	for _, ev := range events {
		outcome, err := p.Process(context.Background(), ev)
		require.NoError(t, err, ev.EventID())
		assert.Equal(t, subscription.OutcomeIgnored, outcome, ev.EventID())
	}
	assert.Equal(t, 0, store.count())
	assert.Empty(t, store.payments)
}

func TestKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "checkout_completed", subscription.Kind(subscription.CheckoutCompleted{}))
	assert.Equal(t, "invoice_paid", subscription.Kind(subscription.InvoicePaid{}))
	assert.Equal(t, "invoice_payment_failed", subscription.Kind(subscription.InvoicePaymentFailed{}))
	assert.Equal(t, "subscription_deleted", subscription.Kind(subscription.SubscriptionDeleted{}))
	assert.Equal(t, "unhandled", subscription.Kind(subscription.UnhandledEvent{}))
}
