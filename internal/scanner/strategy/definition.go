// Package strategy holds the declarative strategy model: indicator configs,
// ordered filter rules and scoring weights, plus their structural validation
// and evaluation. The rule set is a closed set of kinds and operators so a
// stored definition is statically checkable before any instrument work runs.
package strategy

import (
	"encoding/json"
	"fmt"

	"golang-stock-scanner/internal/scanner/indicator"
)

const (
	OpGT  = "gt"
	OpGTE = "gte"
	OpLT  = "lt"
	OpLTE = "lte"
)

// ConfigError reports a structurally invalid strategy definition. A run that
// hits it fails before any instrument is evaluated.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "strategy config error: " + e.Reason
}

// FilterRule is one boolean condition over indicator values. When CompareTo
// is set the rule compares two indicators, otherwise the indicator is
// compared against Threshold.
type FilterRule struct {
	Name      string  `json:"name"`
	Indicator string  `json:"indicator"`
	Op        string  `json:"op"`
	Threshold float64 `json:"threshold"`
	CompareTo string  `json:"compare_to,omitempty"`
}

// ScoringRule contributes one indicator to the final score: the indicator's
// deviation from Baseline is normalized by Scale, clipped to [-1, 1] and
// weighted.
type ScoringRule struct {
	Indicator string  `json:"indicator"`
	Weight    float64 `json:"weight"`
	Baseline  float64 `json:"baseline"`
	Scale     float64 `json:"scale"`
}

// Definition is one immutable strategy version.
type Definition struct {
	StrategyID string             `json:"strategy_id"`
	Version    int                `json:"version"`
	Name       string             `json:"name"`
	Indicators []indicator.Config `json:"indicators"`
	Filters    []FilterRule       `json:"filters"`
	Scoring    []ScoringRule      `json:"scoring"`
}

// Parse unmarshals a stored definition body. Structural validity is checked
// separately by Validate.
func Parse(raw []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("failed to parse strategy definition: %w", err)
	}
	return &def, nil
}

func knownOp(op string) bool {
	switch op {
	case OpGT, OpGTE, OpLT, OpLTE:
		return true
	}
	return false
}

// Validate checks the definition for structural validity: known indicator
// kinds and sources, positive periods, unique names, a non-empty filter
// list referencing declared indicators, and usable scoring weights.
func (d *Definition) Validate() error {
	if d.StrategyID == "" {
		return &ConfigError{Reason: "strategy id is empty"}
	}
	if len(d.Indicators) == 0 {
		return &ConfigError{Reason: "no indicators configured"}
	}

	names := make(map[string]bool, len(d.Indicators))
	for _, cfg := range d.Indicators {
		if cfg.Name == "" {
			return &ConfigError{Reason: "indicator with empty name"}
		}
		if names[cfg.Name] {
			return &ConfigError{Reason: fmt.Sprintf("duplicate indicator name %q", cfg.Name)}
		}
		names[cfg.Name] = true

		if !indicator.KnownKind(cfg.Kind) {
			return &ConfigError{Reason: fmt.Sprintf("indicator %q has unknown kind %q", cfg.Name, cfg.Kind)}
		}
		if cfg.Kind != indicator.KindATR && !indicator.KnownSource(cfg.Source) {
			return &ConfigError{Reason: fmt.Sprintf("indicator %q has unknown source %q", cfg.Name, cfg.Source)}
		}
		if cfg.Kind != indicator.KindPrice && cfg.Period < 1 {
			return &ConfigError{Reason: fmt.Sprintf("indicator %q requires a positive period", cfg.Name)}
		}
	}

	if len(d.Filters) == 0 {
		return &ConfigError{Reason: "filter list is empty"}
	}
	ruleNames := make(map[string]bool, len(d.Filters))
	for _, rule := range d.Filters {
		if rule.Name == "" {
			return &ConfigError{Reason: "filter rule with empty name"}
		}
		if ruleNames[rule.Name] {
			return &ConfigError{Reason: fmt.Sprintf("duplicate filter rule name %q", rule.Name)}
		}
		ruleNames[rule.Name] = true

		if !names[rule.Indicator] {
			return &ConfigError{Reason: fmt.Sprintf("filter rule %q references unknown indicator %q", rule.Name, rule.Indicator)}
		}
		if !knownOp(rule.Op) {
			return &ConfigError{Reason: fmt.Sprintf("filter rule %q has unknown operator %q", rule.Name, rule.Op)}
		}
		if rule.CompareTo != "" && !names[rule.CompareTo] {
			return &ConfigError{Reason: fmt.Sprintf("filter rule %q compares against unknown indicator %q", rule.Name, rule.CompareTo)}
		}
	}

	if len(d.Scoring) == 0 {
		return &ConfigError{Reason: "scoring rule list is empty"}
	}
	var weightSum float64
	for _, rule := range d.Scoring {
		if !names[rule.Indicator] {
			return &ConfigError{Reason: fmt.Sprintf("scoring rule references unknown indicator %q", rule.Indicator)}
		}
		if rule.Weight < 0 {
			return &ConfigError{Reason: fmt.Sprintf("scoring rule for %q has negative weight", rule.Indicator)}
		}
		if rule.Scale <= 0 {
			return &ConfigError{Reason: fmt.Sprintf("scoring rule for %q requires a positive scale", rule.Indicator)}
		}
		weightSum += rule.Weight
	}
	if weightSum == 0 {
		return &ConfigError{Reason: "scoring weights are all zero"}
	}

	return nil
}
