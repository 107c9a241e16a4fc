package strategy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-stock-scanner/internal/scanner/indicator"
)

func validDefinition() *Definition {
	return &Definition{
		StrategyID: "momentum-breakout",
		Version:    1,
		Name:       "Momentum Breakout",
		Indicators: []indicator.Config{
			{Name: "close", Kind: indicator.KindPrice, Source: indicator.SourceClose},
			{Name: "sma20", Kind: indicator.KindSMA, Period: 20, Source: indicator.SourceClose},
			{Name: "rsi14", Kind: indicator.KindRSI, Period: 14, Source: indicator.SourceClose},
		},
		Filters: []FilterRule{
			{Name: "close_above_sma", Indicator: "close", Op: OpGT, CompareTo: "sma20"},
			{Name: "rsi_not_overbought", Indicator: "rsi14", Op: OpLT, Threshold: 70},
		},
		Scoring: []ScoringRule{
			{Indicator: "rsi14", Weight: 1, Baseline: 50, Scale: 25},
		},
	}
}

func TestValidateAcceptsWellFormedDefinition(t *testing.T) {
	require.NoError(t, validDefinition().Validate())
}

func TestValidateRejectsStructuralErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Definition)
	}{
		{"empty strategy id", func(d *Definition) { d.StrategyID = "" }},
		{"no indicators", func(d *Definition) { d.Indicators = nil }},
		{"unknown indicator kind", func(d *Definition) { d.Indicators[1].Kind = "macd" }},
		{"unknown source", func(d *Definition) { d.Indicators[1].Source = "typical" }},
		{"non-positive period", func(d *Definition) { d.Indicators[1].Period = 0 }},
		{"duplicate indicator name", func(d *Definition) { d.Indicators[1].Name = "close" }},
		{"empty filter list", func(d *Definition) { d.Filters = nil }},
		{"filter on unknown indicator", func(d *Definition) { d.Filters[0].Indicator = "ema50" }},
		{"unknown operator", func(d *Definition) { d.Filters[0].Op = "between" }},
		{"compare against unknown indicator", func(d *Definition) { d.Filters[0].CompareTo = "ema50" }},
		{"empty scoring list", func(d *Definition) { d.Scoring = nil }},
		{"scoring on unknown indicator", func(d *Definition) { d.Scoring[0].Indicator = "ema50" }},
		{"negative weight", func(d *Definition) { d.Scoring[0].Weight = -1 }},
		{"zero weights", func(d *Definition) { d.Scoring[0].Weight = 0 }},
		{"non-positive scale", func(d *Definition) { d.Scoring[0].Scale = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			def := validDefinition()
			tc.mutate(def)

			err := def.Validate()
			require.Error(t, err)

			var cfgErr *ConfigError
			assert.True(t, errors.As(err, &cfgErr), "expected *ConfigError, got %T", err)
		})
	}
}

func TestEvaluateFiltersInOrderWithShortCircuit(t *testing.T) {
	rules := []FilterRule{
		{Name: "first", Indicator: "a", Op: OpGT, Threshold: 10},
		{Name: "second", Indicator: "b", Op: OpGT, Threshold: 10},
	}
	values := map[string]indicator.Value{
		"a": {Num: 5, Valid: true},
		"b": {Num: 5, Valid: true},
	}

	outcome := EvaluateFilters(rules, values)
	assert.False(t, outcome.Passed)
	assert.Equal(t, "first", outcome.FailedRule, "must report the first failing rule in declared order")
}

func TestEvaluateFiltersAllPassed(t *testing.T) {
	def := validDefinition()
	values := map[string]indicator.Value{
		"close": {Num: 105, Valid: true},
		"sma20": {Num: 100, Valid: true},
		"rsi14": {Num: 55, Valid: true},
	}

	outcome := EvaluateFilters(def.Filters, values)
	assert.True(t, outcome.Passed)
	assert.Empty(t, outcome.FailedRule)
}

func TestEvaluateFiltersUnavailableValueFailsDeterministically(t *testing.T) {
	rules := []FilterRule{
		{Name: "rsi_low", Indicator: "rsi14", Op: OpLT, Threshold: 70},
	}
	values := map[string]indicator.Value{
		"rsi14": {Valid: false},
	}

	outcome := EvaluateFilters(rules, values)
	assert.False(t, outcome.Passed)
	assert.Equal(t, "rsi_low", outcome.FailedRule)
}

func TestEvaluateFiltersUnavailableCompareToFails(t *testing.T) {
	rules := []FilterRule{
		{Name: "close_above_sma", Indicator: "close", Op: OpGT, CompareTo: "sma20"},
	}
	values := map[string]indicator.Value{
		"close": {Num: 100, Valid: true},
		"sma20": {Valid: false},
	}

	outcome := EvaluateFilters(rules, values)
	assert.False(t, outcome.Passed)
	assert.Equal(t, "close_above_sma", outcome.FailedRule)
}

func TestScoreNeutralIsFifty(t *testing.T) {
	rules := []ScoringRule{{Indicator: "rsi14", Weight: 1, Baseline: 50, Scale: 25}}
	values := map[string]indicator.Value{"rsi14": {Num: 50, Valid: true}}

	score, err := Score(rules, values)
	require.NoError(t, err)
	assert.Equal(t, 50, score)
}

func TestScoreClipsExtremeDeviation(t *testing.T) {
	rules := []ScoringRule{{Indicator: "roc", Weight: 1, Baseline: 0, Scale: 5}}

	score, err := Score(rules, map[string]indicator.Value{"roc": {Num: 500, Valid: true}})
	require.NoError(t, err)
	assert.Equal(t, 100, score)

	score, err = Score(rules, map[string]indicator.Value{"roc": {Num: -500, Valid: true}})
	require.NoError(t, err)
	assert.Equal(t, 0, score)
}

func TestScoreWeightedCombination(t *testing.T) {
	rules := []ScoringRule{
		{Indicator: "a", Weight: 3, Baseline: 0, Scale: 10},
		{Indicator: "b", Weight: 1, Baseline: 0, Scale: 10},
	}
	values := map[string]indicator.Value{
		"a": {Num: 10, Valid: true},  // strength +1
		"b": {Num: -10, Valid: true}, // strength -1
	}

	// Weighted mean = (3*1 + 1*(-1)) / 4 = 0.5 -> 75.
	score, err := Score(rules, values)
	require.NoError(t, err)
	assert.Equal(t, 75, score)
}

func TestScoreBoundsHold(t *testing.T) {
	rules := []ScoringRule{{Indicator: "a", Weight: 2, Baseline: 50, Scale: 25}}
	for _, num := range []float64{-1000, 0, 12.5, 50, 87.5, 100, 1000} {
		score, err := Score(rules, map[string]indicator.Value{"a": {Num: num, Valid: true}})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, score, 0)
		assert.LessOrEqual(t, score, 100)
	}
}

func TestScoreUnavailableInputIsAnError(t *testing.T) {
	rules := []ScoringRule{{Indicator: "rsi14", Weight: 1, Baseline: 50, Scale: 25}}

	_, err := Score(rules, map[string]indicator.Value{"rsi14": {Valid: false}})
	assert.Error(t, err)

	_, err = Score(rules, map[string]indicator.Value{})
	assert.Error(t, err)
}

func TestParseRoundTrip(t *testing.T) {
	raw := []byte(`{
		"strategy_id": "s1",
		"version": 2,
		"name": "Test",
		"indicators": [{"name": "close", "kind": "price", "source": "close"}],
		"filters": [{"name": "gt", "indicator": "close", "op": "gt", "threshold": 1}],
		"scoring": [{"indicator": "close", "weight": 1, "baseline": 0, "scale": 100}]
	}`)

	def, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "s1", def.StrategyID)
	assert.Equal(t, 2, def.Version)
	require.NoError(t, def.Validate())
}
