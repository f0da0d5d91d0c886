package subscription

import (
	"errors"
	"fmt"
)

// PlanInfo describes a plan as offered to customers.
type PlanInfo struct {
	Plan         Plan         `json:"plan"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	PriceRef     string       `json:"price_ref,omitempty"` // provider's price identifier, empty for free
	Price        Money        `json:"price"`
	Entitlements Entitlements `json:"entitlements"`
}

// PriceRefs maps paid plans to the billing provider's price identifiers.
type PriceRefs struct {
	Pro        string `env:"BILLING_PRICE_PRO"`
	Enterprise string `env:"BILLING_PRICE_ENTERPRISE"`
}

// DefaultPlans returns the built-in plan table.
func DefaultPlans() map[Plan]PlanInfo {
	return map[Plan]PlanInfo{
		PlanFree: {
			Plan:        PlanFree,
			Name:        "Free",
			Description: "One portfolio and a taste of AI writing",
			Price:       Money{Amount: 0, Currency: "USD"},
			Entitlements: Entitlements{
				Portfolios:    1,
				AIGenerations: 10,
				AITokens:      10_000,
			},
		},
		PlanPro: {
			Plan:        PlanPro,
			Name:        "Pro",
			Description: "For professionals growing their presence",
			Price:       Money{Amount: 1900, Currency: "USD"},
			Entitlements: Entitlements{
				Portfolios:      10,
				AIGenerations:   100,
				AITokens:        100_000,
				CustomDomain:    true,
				Analytics:       true,
				CustomThemes:    true,
				PrioritySupport: true,
				RemoveWatermark: true,
			},
		},
		PlanEnterprise: {
			Plan:        PlanEnterprise,
			Name:        "Enterprise",
			Description: "For agencies and teams",
			Price:       Money{Amount: 9900, Currency: "USD"},
			Entitlements: Entitlements{
				Portfolios:      100,
				AIGenerations:   1000,
				AITokens:        1_000_000,
				CustomDomain:    true,
				Analytics:       true,
				CustomThemes:    true,
				PrioritySupport: true,
				RemoveWatermark: true,
			},
		},
	}
}

// Catalog is the immutable registry of plans and their price mapping.
// It is safe for concurrent use.
type Catalog struct {
	plans   map[Plan]PlanInfo
	byPrice map[string]Plan
}

// CatalogOption adjusts the plan table before validation.
type CatalogOption func(map[Plan]PlanInfo) error

// WithOverrides applies per-plan overrides, typically loaded from a plans file.
func WithOverrides(overrides map[Plan]PlanOverride) CatalogOption {
	return func(plans map[Plan]PlanInfo) error {
		for plan, o := range overrides {
			info, ok := plans[plan]
			if !ok {
				return fmt.Errorf("%w: unknown plan %q", ErrInvalidPlanConfiguration, plan)
			}
			plans[plan] = o.apply(info)
		}
		return nil
	}
}

// NewCatalog builds a catalog from the default plan table, the configured
// price refs and any options. The result must satisfy plan dominance.
func NewCatalog(prices PriceRefs, opts ...CatalogOption) (*Catalog, error) {
	plans := DefaultPlans()

	pro := plans[PlanPro]
	pro.PriceRef = prices.Pro
	plans[PlanPro] = pro

	enterprise := plans[PlanEnterprise]
	enterprise.PriceRef = prices.Enterprise
	plans[PlanEnterprise] = enterprise

	for _, opt := range opts {
		if err := opt(plans); err != nil {
			return nil, err
		}
	}

	c := &Catalog{
		plans:   plans,
		byPrice: make(map[string]Plan, len(plans)),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	for plan, info := range plans {
		if info.PriceRef != "" {
			c.byPrice[info.PriceRef] = plan
		}
	}
	return c, nil
}

// MustNewCatalog is NewCatalog that panics on an invalid configuration.
func MustNewCatalog(prices PriceRefs, opts ...CatalogOption) *Catalog {
	c, err := NewCatalog(prices, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks that every plan is present, that each plan dominates the
// previous one, and that price refs are unique and only set on paid plans.
func (c *Catalog) Validate() error {
	var errs []error
	seen := make(map[string]Plan)

	var prev *PlanInfo
	for _, plan := range AllPlans() {
		info, ok := c.plans[plan]
		if !ok {
			errs = append(errs, fmt.Errorf("plan %q is missing", plan))
			continue
		}
		if info.Plan != plan {
			errs = append(errs, fmt.Errorf("plan %q is registered as %q", info.Plan, plan))
		}
		if prev != nil && !info.Entitlements.Covers(prev.Entitlements) {
			errs = append(errs, fmt.Errorf("plan %q grants less than %q", plan, prev.Plan))
		}
		if info.PriceRef != "" {
			if !plan.IsPaid() {
				errs = append(errs, fmt.Errorf("plan %q cannot have a price ref", plan))
			}
			if other, dup := seen[info.PriceRef]; dup {
				errs = append(errs, fmt.Errorf("price ref %q used by %q and %q", info.PriceRef, other, plan))
			}
			seen[info.PriceRef] = plan
		}
		prev = &info
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidPlanConfiguration}, errs...)...)
	}
	return nil
}

// Info returns the plan description. Unknown plans resolve to free.
func (c *Catalog) Info(plan Plan) PlanInfo {
	switch plan {
	case PlanFree, PlanPro, PlanEnterprise:
		return c.plans[plan]
	default:
		return c.plans[PlanFree]
	}
}

// Entitlements returns the entitlements of a plan. Never fails: unknown
// plans get the free tier.
func (c *Catalog) Entitlements(plan Plan) Entitlements {
	return c.Info(plan).Entitlements
}

// PlanForPrice resolves a provider price ref to a plan.
func (c *Catalog) PlanForPrice(priceRef string) (Plan, bool) {
	if priceRef == "" {
		return "", false
	}
	plan, ok := c.byPrice[priceRef]
	return plan, ok
}

// PriceRef returns the price ref configured for a plan, empty when none.
func (c *Catalog) PriceRef(plan Plan) string {
	return c.Info(plan).PriceRef
}

// Plans lists all plans in dominance order.
func (c *Catalog) Plans() []PlanInfo {
	out := make([]PlanInfo, 0, len(c.plans))
	for _, plan := range AllPlans() {
		out = append(out, c.plans[plan])
	}
	return out
}
