package strategy

import (
	"fmt"
	"math"

	"golang-stock-scanner/internal/scanner/indicator"
)

// Score reduces indicator strength into an integer in [0, 100]. Each scoring
// rule contributes clip((value-baseline)/scale, [-1, 1]); the weighted mean
// of contributions is rescaled linearly so a fully neutral instrument scores
// 50. It must only be called for instruments whose filters all passed.
//
// An unavailable scoring input is an error, not a neutral default; the
// caller records it as a data failure for the instrument.
func Score(rules []ScoringRule, values map[string]indicator.Value) (int, error) {
	var weightSum, weighted float64
	for _, rule := range rules {
		v, ok := values[rule.Indicator]
		if !ok || !v.Valid {
			return 0, fmt.Errorf("scoring input %q unavailable", rule.Indicator)
		}

		strength := (v.Num - rule.Baseline) / rule.Scale
		if strength > 1 {
			strength = 1
		} else if strength < -1 {
			strength = -1
		}

		weighted += rule.Weight * strength
		weightSum += rule.Weight
	}
	if weightSum == 0 {
		return 0, fmt.Errorf("scoring weights sum to zero")
	}

	mean := weighted / weightSum
	score := int(math.Round((mean + 1) / 2 * 100))
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}
	return score, nil
}
