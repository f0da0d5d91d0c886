package subscription

import "time"

// Action is a gated product action. The set is closed.
type Action string

const (
	ActionCreatePortfolio Action = "create_portfolio"
	ActionGenerateAI      Action = "generate_ai"
	ActionCustomDomain    Action = "custom_domain"
	ActionAnalytics       Action = "analytics"
	ActionCustomThemes    Action = "custom_themes"
	ActionPrioritySupport Action = "priority_support"
	ActionRemoveWatermark Action = "remove_watermark"
)

// Countable reports whether the action is limited by a usage quota rather
// than a boolean flag.
func (a Action) Countable() bool {
	switch a {
	case ActionCreatePortfolio, ActionGenerateAI:
		return true
	default:
		return false
	}
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithEvaluatorClock overrides the time source used to judge trials.
func WithEvaluatorClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) {
		e.now = now
	}
}

// Evaluator answers entitlement questions. It is pure: no I/O, no errors.
type Evaluator struct {
	catalog *Catalog
	now     func() time.Time
}

// NewEvaluator creates an evaluator over the given catalog.
func NewEvaluator(catalog *Catalog, opts ...EvaluatorOption) *Evaluator {
	if catalog == nil {
		panic("subscription: catalog cannot be nil")
	}
	e := &Evaluator{
		catalog: catalog,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EffectivePlan returns the plan whose entitlements apply. Subscriptions
// that are not usable fall back to free regardless of the stored plan.
func (e *Evaluator) EffectivePlan(sub *Subscription) Plan {
	if sub == nil {
		return PlanFree
	}
	if !sub.Plan.Valid() || !sub.IsUsable(e.now()) {
		return PlanFree
	}
	return sub.Plan
}

// EffectiveEntitlements returns the entitlements of the effective plan.
func (e *Evaluator) EffectiveEntitlements(sub *Subscription) Entitlements {
	return e.catalog.Entitlements(e.EffectivePlan(sub))
}

// Limit returns the quota of a countable action, or 1/0 for a granted/denied
// flag. Unknown actions have a limit of 0.
func (e *Evaluator) Limit(sub *Subscription, action Action) int64 {
	ent := e.EffectiveEntitlements(sub)
	switch action {
	case ActionCreatePortfolio:
		return ent.Portfolios
	case ActionGenerateAI:
		return ent.AIGenerations
	case ActionCustomDomain:
		return flag(ent.CustomDomain)
	case ActionAnalytics:
		return flag(ent.Analytics)
	case ActionCustomThemes:
		return flag(ent.CustomThemes)
	case ActionPrioritySupport:
		return flag(ent.PrioritySupport)
	case ActionRemoveWatermark:
		return flag(ent.RemoveWatermark)
	default:
		return 0
	}
}

// CanPerform reports whether the action is allowed given the current usage.
// Usage is ignored for flag actions.
func (e *Evaluator) CanPerform(sub *Subscription, action Action, usage int64) bool {
	limit := e.Limit(sub, action)
	if !action.Countable() {
		return limit > 0
	}
	return usage < limit
}

// RemainingQuota returns how many more times the action may be performed,
// clamped at zero.
func (e *Evaluator) RemainingQuota(sub *Subscription, action Action, usage int64) int64 {
	limit := e.Limit(sub, action)
	if !action.Countable() {
		return limit
	}
	if usage < 0 {
		usage = 0
	}
	return max(limit-usage, 0)
}

func flag(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
