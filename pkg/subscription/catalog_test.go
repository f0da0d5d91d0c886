package subscription_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartfolio/smartfolio/pkg/subscription"
)

func TestCatalog_Monotonicity(t *testing.T) {
	t.Parallel()

	catalog := testCatalog()
	plans := catalog.Plans()
	require.Len(t, plans, 3)

	for i := 1; i < len(plans); i++ {
		prev, cur := plans[i-1].Entitlements, plans[i].Entitlements
		assert.True(t, cur.Covers(prev), "%s must cover %s", plans[i].Plan, plans[i-1].Plan)
		assert.GreaterOrEqual(t, cur.Portfolios, prev.Portfolios)
		assert.GreaterOrEqual(t, cur.AIGenerations, prev.AIGenerations)
		assert.GreaterOrEqual(t, cur.AITokens, prev.AITokens)
	}
	assert.NoError(t, catalog.Validate())
}

func TestCatalog_Entitlements(t *testing.T) {
	t.Parallel()

	catalog := testCatalog()

	t.Run("free plan defaults", func(t *testing.T) {
		t.Parallel()
		ent := catalog.Entitlements(subscription.PlanFree)
		assert.Equal(t, int64(1), ent.Portfolios)
		assert.Equal(t, int64(10), ent.AIGenerations)
		assert.Equal(t, int64(10_000), ent.AITokens)
		assert.False(t, ent.CustomDomain)
		assert.False(t, ent.RemoveWatermark)
	})

	t.Run("enterprise plan defaults", func(t *testing.T) {
		t.Parallel()
		ent := catalog.Entitlements(subscription.PlanEnterprise)
		assert.Equal(t, int64(100), ent.Portfolios)
		assert.Equal(t, int64(1000), ent.AIGenerations)
		assert.True(t, ent.Analytics)
	})

	t.Run("unknown plan resolves to free", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, catalog.Entitlements(subscription.PlanFree), catalog.Entitlements("platinum"))
	})
}

func TestCatalog_PlanForPrice(t *testing.T) {
	t.Parallel()

	catalog := testCatalog()

	plan, ok := catalog.PlanForPrice("price_pro")
	assert.True(t, ok)
	assert.Equal(t, subscription.PlanPro, plan)

	plan, ok = catalog.PlanForPrice("price_enterprise")
	assert.True(t, ok)
	assert.Equal(t, subscription.PlanEnterprise, plan)

	_, ok = catalog.PlanForPrice("price_unknown")
	assert.False(t, ok)

	_, ok = catalog.PlanForPrice("")
	assert.False(t, ok)

	assert.Equal(t, "price_pro", catalog.PriceRef(subscription.PlanPro))
	assert.Empty(t, catalog.PriceRef(subscription.PlanFree))
}

func TestNewCatalog_Validation(t *testing.T) {
	t.Parallel()

	t.Run("rejects duplicate price refs", func(t *testing.T) {
		t.Parallel()
		_, err := subscription.NewCatalog(subscription.PriceRefs{Pro: "price_x", Enterprise: "price_x"})
		assert.ErrorIs(t, err, subscription.ErrInvalidPlanConfiguration)
	})

	t.Run("rejects overrides that break dominance", func(t *testing.T) {
		t.Parallel()
		limit := int64(500)
		_, err := subscription.NewCatalog(subscription.PriceRefs{}, subscription.WithOverrides(
			map[subscription.Plan]subscription.PlanOverride{
				subscription.PlanPro: {Portfolios: &limit},
			},
		))
		assert.ErrorIs(t, err, subscription.ErrInvalidPlanConfiguration)
	})

	t.Run("accepts overrides that keep dominance", func(t *testing.T) {
		t.Parallel()
		limit := int64(25)
		catalog, err := subscription.NewCatalog(subscription.PriceRefs{}, subscription.WithOverrides(
			map[subscription.Plan]subscription.PlanOverride{
				subscription.PlanPro: {Portfolios: &limit},
			},
		))
		require.NoError(t, err)
		assert.Equal(t, int64(25), catalog.Entitlements(subscription.PlanPro).Portfolios)
	})
}

func TestParseOverrides(t *testing.T) {
	t.Parallel()

	t.Run("decodes per plan fields", func(t *testing.T) {
		t.Parallel()
		doc := `
PRO:
  portfolios: 20
  price_amount: 2900
enterprise:
  custom_domain: true
`
		overrides, err := subscription.ParseOverrides(strings.NewReader(doc))
		require.NoError(t, err)
		require.Contains(t, overrides, subscription.PlanPro)
		assert.Equal(t, int64(20), *overrides[subscription.PlanPro].Portfolios)
		assert.Equal(t, int64(2900), *overrides[subscription.PlanPro].PriceAmount)
		assert.Nil(t, overrides[subscription.PlanPro].AITokens)
		assert.True(t, *overrides[subscription.PlanEnterprise].CustomDomain)
	})

	t.Run("rejects unknown plan", func(t *testing.T) {
		t.Parallel()
		_, err := subscription.ParseOverrides(strings.NewReader("gold:\n  portfolios: 3\n"))
		assert.ErrorIs(t, err, subscription.ErrInvalidPlanConfiguration)
	})

	t.Run("rejects unknown field", func(t *testing.T) {
		t.Parallel()
		_, err := subscription.ParseOverrides(strings.NewReader("pro:\n  seats: 3\n"))
		assert.ErrorIs(t, err, subscription.ErrInvalidPlanConfiguration)
	})

	t.Run("empty document yields no overrides", func(t *testing.T) {
		t.Parallel()
		overrides, err := subscription.ParseOverrides(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, overrides)
	})
}

func TestParsePlan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want subscription.Plan
		ok   bool
	}{
		{"free", subscription.PlanFree, true},
		{"PRO", subscription.PlanPro, true},
		{" Enterprise ", subscription.PlanEnterprise, true},
		{"platinum", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := subscription.ParsePlan(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	assert.Less(t, subscription.PlanFree.Rank(), subscription.PlanPro.Rank())
	assert.Less(t, subscription.PlanPro.Rank(), subscription.PlanEnterprise.Rank())
}
