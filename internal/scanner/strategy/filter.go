package strategy

import "golang-stock-scanner/internal/scanner/indicator"

// FilterOutcome is the result of evaluating a strategy's filter list for one
// instrument. FailedRule names the first failing rule for audit; it is empty
// when all rules passed.
type FilterOutcome struct {
	Passed     bool
	FailedRule string
}

// EvaluateFilters applies the ordered, AND-composed rule list to the
// instrument's latest indicator values. Evaluation short-circuits on the
// first failing rule. An unavailable indicator value fails the rule that
// references it; it is never coerced to a passing default.
func EvaluateFilters(rules []FilterRule, values map[string]indicator.Value) FilterOutcome {
	for _, rule := range rules {
		lhs, ok := values[rule.Indicator]
		if !ok || !lhs.Valid {
			return FilterOutcome{FailedRule: rule.Name}
		}

		rhs := rule.Threshold
		if rule.CompareTo != "" {
			other, ok := values[rule.CompareTo]
			if !ok || !other.Valid {
				return FilterOutcome{FailedRule: rule.Name}
			}
			rhs = other.Num
		}

		if !compare(lhs.Num, rule.Op, rhs) {
			return FilterOutcome{FailedRule: rule.Name}
		}
	}
	return FilterOutcome{Passed: true}
}

func compare(lhs float64, op string, rhs float64) bool {
	switch op {
	case OpGT:
		return lhs > rhs
	case OpGTE:
		return lhs >= rhs
	case OpLT:
		return lhs < rhs
	case OpLTE:
		return lhs <= rhs
	}
	return false
}
