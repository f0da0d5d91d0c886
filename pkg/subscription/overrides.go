package subscription

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// PlanOverride replaces selected fields of a built-in plan. Nil fields keep
// the default value.
type PlanOverride struct {
	Name            *string `yaml:"name"`
	Description     *string `yaml:"description"`
	PriceAmount     *int64  `yaml:"price_amount"`
	Currency        *string `yaml:"currency"`
	Portfolios      *int64  `yaml:"portfolios"`
	AIGenerations   *int64  `yaml:"ai_generations"`
	AITokens        *int64  `yaml:"ai_tokens"`
	CustomDomain    *bool   `yaml:"custom_domain"`
	Analytics       *bool   `yaml:"analytics"`
	CustomThemes    *bool   `yaml:"custom_themes"`
	PrioritySupport *bool   `yaml:"priority_support"`
	RemoveWatermark *bool   `yaml:"remove_watermark"`
}

func (o PlanOverride) apply(info PlanInfo) PlanInfo {
	setString(&info.Name, o.Name)
	setString(&info.Description, o.Description)
	setString(&info.Price.Currency, o.Currency)
	setInt(&info.Price.Amount, o.PriceAmount)
	setInt(&info.Entitlements.Portfolios, o.Portfolios)
	setInt(&info.Entitlements.AIGenerations, o.AIGenerations)
	setInt(&info.Entitlements.AITokens, o.AITokens)
	setBool(&info.Entitlements.CustomDomain, o.CustomDomain)
	setBool(&info.Entitlements.Analytics, o.Analytics)
	setBool(&info.Entitlements.CustomThemes, o.CustomThemes)
	setBool(&info.Entitlements.PrioritySupport, o.PrioritySupport)
	setBool(&info.Entitlements.RemoveWatermark, o.RemoveWatermark)
	return info
}

// ParseOverrides decodes a YAML document keyed by plan name:
//
//	pro:
//	  portfolios: 25
//	  price_amount: 2900
func ParseOverrides(r io.Reader) (map[Plan]PlanOverride, error) {
	var raw map[string]PlanOverride
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return map[Plan]PlanOverride{}, nil
		}
		return nil, errors.Join(ErrInvalidPlanConfiguration, err)
	}

	out := make(map[Plan]PlanOverride, len(raw))
	for name, o := range raw {
		plan, ok := ParsePlan(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown plan %q", ErrInvalidPlanConfiguration, name)
		}
		out[plan] = o
	}
	return out, nil
}

// LoadOverridesFile reads plan overrides from a YAML file.
func LoadOverridesFile(path string) (map[Plan]PlanOverride, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plans file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseOverrides(f)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int64, v *int64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
