package subscription_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/smartfolio/smartfolio/pkg/subscription"
)

func TestSubscription_DaysUntilRenewal(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("without a period end", func(t *testing.T) {
		t.Parallel()
		_, ok := subscription.DefaultSubscription(uuid.New()).DaysUntilRenewal(now)
		assert.False(t, ok)
	})

	t.Run("partial days round up", func(t *testing.T) {
		t.Parallel()
		sub := &subscription.Subscription{CurrentPeriodEnd: ptrTime(now.Add(36 * time.Hour))}
		days, ok := sub.DaysUntilRenewal(now)
		assert.True(t, ok)
		assert.Equal(t, 2, days)
	})

	t.Run("past period end is zero", func(t *testing.T) {
		t.Parallel()
		sub := &subscription.Subscription{CurrentPeriodEnd: ptrTime(now.Add(-72 * time.Hour))}
		days, ok := sub.DaysUntilRenewal(now)
		assert.True(t, ok)
		assert.Equal(t, 0, days)
	})
}

func TestSubscription_IsTrialActive(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	sub := &subscription.Subscription{Status: subscription.StatusTrialing, TrialEnd: ptrTime(now.Add(time.Hour))}
	assert.True(t, sub.IsTrialActive(now))
	assert.False(t, sub.IsTrialActive(now.Add(2*time.Hour)))

	sub.Status = subscription.StatusActive
	assert.False(t, sub.IsTrialActive(now))
	assert.True(t, sub.IsUsable(now))

	t.Run("trial without an end date is not active but usable", func(t *testing.T) {
		t.Parallel()
		sub := &subscription.Subscription{Status: subscription.StatusTrialing}
		assert.False(t, sub.IsTrialActive(now))
		assert.True(t, sub.IsUsable(now))
	})
}

func TestStatusLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Active", subscription.StatusLabel(subscription.StatusActive))
	assert.Equal(t, "Trial", subscription.StatusLabel(subscription.StatusTrialing))
	assert.Equal(t, "Past Due", subscription.StatusLabel(subscription.StatusPastDue))
	assert.Equal(t, "Canceled", subscription.StatusLabel(subscription.StatusCanceled))
	assert.Equal(t, "Incomplete", subscription.StatusLabel(subscription.StatusIncomplete))
	assert.Equal(t, "Unknown", subscription.StatusLabel("paused"))
}
