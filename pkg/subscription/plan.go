package subscription

import "strings"

// Plan is a subscription tier. The set is closed: free, pro and enterprise.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// AllPlans returns every plan in dominance order, cheapest first.
func AllPlans() []Plan {
	return []Plan{PlanFree, PlanPro, PlanEnterprise}
}

// ParsePlan accepts the canonical lowercase name as well as the upper case
// form used in provider metadata ("PRO", "ENTERPRISE").
func ParsePlan(s string) (Plan, bool) {
	switch p := Plan(strings.ToLower(strings.TrimSpace(s))); p {
	case PlanFree, PlanPro, PlanEnterprise:
		return p, true
	default:
		return "", false
	}
}

// Valid reports whether p is one of the known plans.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	default:
		return false
	}
}

// Rank returns the position of the plan in dominance order.
// Unknown plans rank as free.
func (p Plan) Rank() int {
	switch p {
	case PlanPro:
		return 1
	case PlanEnterprise:
		return 2
	default:
		return 0
	}
}

// IsPaid reports whether the plan is billed through the provider.
func (p Plan) IsPaid() bool {
	switch p {
	case PlanPro, PlanEnterprise:
		return true
	default:
		return false
	}
}

func (p Plan) String() string {
	return string(p)
}

// Entitlements lists the limits and capabilities a plan grants.
// Countable limits are per user; AI limits are per calendar month.
type Entitlements struct {
	Portfolios      int64 `json:"portfolios" yaml:"portfolios"`
	AIGenerations   int64 `json:"ai_generations" yaml:"ai_generations"`
	AITokens        int64 `json:"ai_tokens" yaml:"ai_tokens"`
	CustomDomain    bool  `json:"custom_domain" yaml:"custom_domain"`
	Analytics       bool  `json:"analytics" yaml:"analytics"`
	CustomThemes    bool  `json:"custom_themes" yaml:"custom_themes"`
	PrioritySupport bool  `json:"priority_support" yaml:"priority_support"`
	RemoveWatermark bool  `json:"remove_watermark" yaml:"remove_watermark"`
}

// Covers reports whether e grants at least everything other grants.
func (e Entitlements) Covers(other Entitlements) bool {
	if e.Portfolios < other.Portfolios ||
		e.AIGenerations < other.AIGenerations ||
		e.AITokens < other.AITokens {
		return false
	}
	return covers(e.CustomDomain, other.CustomDomain) &&
		covers(e.Analytics, other.Analytics) &&
		covers(e.CustomThemes, other.CustomThemes) &&
		covers(e.PrioritySupport, other.PrioritySupport) &&
		covers(e.RemoveWatermark, other.RemoveWatermark)
}

func covers(have, want bool) bool {
	return have || !want
}

// Money represents a monetary amount in the smallest currency unit.
// For example, $19.00 USD is Amount: 1900, Currency: "USD".
type Money struct {
	Amount   int64  `json:"amount" yaml:"amount"`
	Currency string `json:"currency" yaml:"currency"`
}
