package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Gate guards product actions with the user's entitlements.
type Gate struct {
	store     Store
	evaluator *Evaluator
	usage     *Usage
}

// NewGate creates a gate. All dependencies are required.
func NewGate(store Store, evaluator *Evaluator, usage *Usage) *Gate {
	if store == nil {
		panic("subscription: store cannot be nil")
	}
	if evaluator == nil {
		panic("subscription: evaluator cannot be nil")
	}
	if usage == nil {
		panic("subscription: usage cannot be nil")
	}
	return &Gate{store: store, evaluator: evaluator, usage: usage}
}

// Subscription returns the user's subscription, or the free default when
// the user never subscribed.
func (g *Gate) Subscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	sub, err := g.store.GetByUser(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return DefaultSubscription(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Evaluator returns the evaluator used by the gate.
func (g *Gate) Evaluator() *Evaluator {
	return g.evaluator
}

// Check returns nil when the user may perform the action, ErrQuotaExceeded
// when a countable limit is reached and ErrFeatureNotAvailable when the plan
// lacks the feature.
func (g *Gate) Check(ctx context.Context, userID uuid.UUID, action Action) error {
	sub, err := g.Subscription(ctx, userID)
	if err != nil {
		return err
	}

	if !action.Countable() {
		if g.evaluator.CanPerform(sub, action, 0) {
			return nil
		}
		return fmt.Errorf("%w: %s requires a paid plan, upgrade to unlock it",
			ErrFeatureNotAvailable, actionTitle(action))
	}

	used, err := g.usage.CountUsageThisMonth(ctx, userID, action)
	if err != nil {
		return err
	}
	if g.evaluator.CanPerform(sub, action, used) {
		return nil
	}

	limit := g.evaluator.Limit(sub, action)
	plan := g.evaluator.EffectivePlan(sub)
	switch action {
	case ActionGenerateAI:
		return fmt.Errorf("%w: %d of %d AI generations used this month on the %s plan, upgrade for more",
			ErrQuotaExceeded, used, limit, plan)
	default:
		return fmt.Errorf("%w: %d of %d portfolios used on the %s plan, upgrade for more",
			ErrQuotaExceeded, used, limit, plan)
	}
}

// UsageItem is the usage of one quota.
type UsageItem struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
}

// UsageReport summarizes a user's consumption against the effective plan.
type UsageReport struct {
	Plan          Plan      `json:"plan"`
	Portfolios    UsageItem `json:"portfolios"`
	AIGenerations UsageItem `json:"ai_generations"`
	AITokens      UsageItem `json:"ai_tokens"`
}

// Report returns the user's usage for the current window.
func (g *Gate) Report(ctx context.Context, userID uuid.UUID) (*UsageReport, error) {
	sub, err := g.Subscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	portfolios, err := g.usage.CountUsageThisMonth(ctx, userID, ActionCreatePortfolio)
	if err != nil {
		return nil, err
	}
	generations, err := g.usage.CountUsageThisMonth(ctx, userID, ActionGenerateAI)
	if err != nil {
		return nil, err
	}
	tokens, err := g.usage.AITokensThisMonth(ctx, userID)
	if err != nil {
		return nil, err
	}

	ent := g.evaluator.EffectiveEntitlements(sub)
	return &UsageReport{
		Plan: g.evaluator.EffectivePlan(sub),
		Portfolios: UsageItem{
			Used:      portfolios,
			Limit:     ent.Portfolios,
			Remaining: g.evaluator.RemainingQuota(sub, ActionCreatePortfolio, portfolios),
		},
		AIGenerations: UsageItem{
			Used:      generations,
			Limit:     ent.AIGenerations,
			Remaining: g.evaluator.RemainingQuota(sub, ActionGenerateAI, generations),
		},
		AITokens: UsageItem{
			Used:      tokens,
			Limit:     ent.AITokens,
			Remaining: max(ent.AITokens-tokens, 0),
		},
	}, nil
}

func actionTitle(a Action) string {
	switch a {
	case ActionCustomDomain:
		return "custom domain"
	case ActionAnalytics:
		return "analytics"
	case ActionCustomThemes:
		return "custom themes"
	case ActionPrioritySupport:
		return "priority support"
	case ActionRemoveWatermark:
		return "watermark removal"
	default:
		return string(a)
	}
}
