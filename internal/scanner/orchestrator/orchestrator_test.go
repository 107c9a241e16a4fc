package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-stock-scanner/internal/entity"
	"golang-stock-scanner/internal/scanner/indicator"
	"golang-stock-scanner/internal/scanner/strategy"
	"golang-stock-scanner/pkg/logger"
)

type fakeUniverse struct {
	instruments []entity.Instrument
	err         error
}

func (f *fakeUniverse) GetUniverse(_ context.Context) ([]entity.Instrument, error) {
	return f.instruments, f.err
}

type fakePrices struct {
	bars map[string][]entity.PriceBar
	errs map[string]error
}

func (f *fakePrices) GetHistory(ctx context.Context, symbol string, _ time.Time) ([]entity.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	return f.bars[symbol], nil
}

type fakeRunRepo struct {
	mu          sync.Mutex
	runs        map[string]entity.ScanRun
	results     map[string][]entity.ScanResult
	transitions []string
	createCalls int
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{
		runs:    make(map[string]entity.ScanRun),
		results: make(map[string][]entity.ScanResult),
	}
}

func (f *fakeRunRepo) CreateRun(_ context.Context, run *entity.ScanRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.runs[run.ID] = *run
	f.transitions = append(f.transitions, run.Status)
	return nil
}

func (f *fakeRunRepo) MarkRunning(_ context.Context, run *entity.ScanRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.ID] = *run
	f.transitions = append(f.transitions, run.Status)
	return nil
}

func (f *fakeRunRepo) AppendResults(_ context.Context, results []entity.ScanResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, res := range results {
		f.results[res.RunID] = append(f.results[res.RunID], res)
	}
	return nil
}

func (f *fakeRunRepo) CompleteRun(_ context.Context, run *entity.ScanRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.ID] = *run
	f.transitions = append(f.transitions, run.Status)
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "json")
	require.NoError(t, err)
	return log
}

func trendBars(closes ...float64) []entity.PriceBar {
	bars := make([]entity.PriceBar, len(closes))
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		d := decimal.NewFromFloat(c)
		bars[i] = entity.PriceBar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      d,
			High:      d,
			Low:       d,
			Close:     d,
			Volume:    1000,
		}
	}
	return bars
}

func testDefinition() *strategy.Definition {
	return &strategy.Definition{
		StrategyID: "trend-follow",
		Version:    1,
		Name:       "Trend Follow",
		Indicators: []indicator.Config{
			{Name: "close", Kind: indicator.KindPrice, Source: indicator.SourceClose},
			{Name: "sma2", Kind: indicator.KindSMA, Period: 2, Source: indicator.SourceClose},
		},
		Filters: []strategy.FilterRule{
			{Name: "close_above_sma", Indicator: "close", Op: strategy.OpGT, CompareTo: "sma2"},
		},
		Scoring: []strategy.ScoringRule{
			{Indicator: "close", Weight: 1, Baseline: 100, Scale: 10},
		},
	}
}

func instruments(symbols ...string) []entity.Instrument {
	out := make([]entity.Instrument, len(symbols))
	for i, s := range symbols {
		out[i] = entity.Instrument{ID: uint(i + 1), Symbol: s, Exchange: "IDX", Currency: "IDR"}
	}
	return out
}

func TestScanEvaluatesPassFailAndScore(t *testing.T) {
	universe := &fakeUniverse{instruments: instruments("AAA", "BBB")}
	prices := &fakePrices{bars: map[string][]entity.PriceBar{
		"AAA": trendBars(100, 102, 105),
		"BBB": trendBars(100, 98, 95),
	}}
	repo := newFakeRunRepo()

	o := New(NewRegistry(), universe, prices, repo, testLogger(t), Options{Workers: 2, FailureRateThreshold: 0.1})
	run, err := o.Scan(context.Background(), testDefinition(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, entity.ScanRunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.TotalInstruments)
	assert.Equal(t, 0, run.FailedInstruments)

	byScore := map[string]entity.ScanResult{}
	for _, res := range repo.results[run.ID] {
		byScore[res.Symbol] = res
	}
	require.Len(t, byScore, 2)

	aaa := byScore["AAA"]
	assert.True(t, aaa.FiltersPassed)
	// strength = (105-100)/10 = 0.5 -> score 75
	assert.Equal(t, 75, aaa.Score)
	assert.NotEmpty(t, aaa.Indicators)

	bbb := byScore["BBB"]
	assert.False(t, bbb.FiltersPassed)
	assert.Equal(t, 0, bbb.Score, "score must be zero when filters fail")
	require.True(t, bbb.FailedRule.Valid)
	assert.Equal(t, "close_above_sma", bbb.FailedRule.String)
}

func TestScanCompletesWithPartialFailures(t *testing.T) {
	var symbols []string
	bars := map[string][]entity.PriceBar{}
	for i := 0; i < 10; i++ {
		sym := fmt.Sprintf("S%02d", i)
		symbols = append(symbols, sym)
		bars[sym] = trendBars(100, 102, 105)
	}
	prices := &fakePrices{
		bars: bars,
		errs: map[string]error{"S03": errors.New("price history gap")},
	}
	repo := newFakeRunRepo()

	o := New(NewRegistry(), &fakeUniverse{instruments: instruments(symbols...)}, prices, repo, testLogger(t), Options{Workers: 4, FailureRateThreshold: 0.2})
	run, err := o.Scan(context.Background(), testDefinition(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, entity.ScanRunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.FailedInstruments)
	require.Len(t, repo.results[run.ID], 10)

	var failure entity.ScanResult
	for _, res := range repo.results[run.ID] {
		if res.Symbol == "S03" {
			failure = res
		}
	}
	require.True(t, failure.FailureReason.Valid)
	assert.Contains(t, failure.FailureReason.String, "price history gap")
	assert.False(t, failure.FiltersPassed)
	assert.Equal(t, 0, failure.Score)
}

func TestScanFailsWhenFailureRateExceeded(t *testing.T) {
	prices := &fakePrices{
		bars: map[string][]entity.PriceBar{"AAA": trendBars(100, 102, 105)},
		errs: map[string]error{
			"BBB": errors.New("gap"),
			"CCC": errors.New("gap"),
		},
	}
	repo := newFakeRunRepo()

	o := New(NewRegistry(), &fakeUniverse{instruments: instruments("AAA", "BBB", "CCC")}, prices, repo, testLogger(t), Options{Workers: 2, FailureRateThreshold: 0.5})
	run, err := o.Scan(context.Background(), testDefinition(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, entity.ScanRunStatusFailed, run.Status)
	require.True(t, run.FailureReason.Valid)
	assert.Contains(t, run.FailureReason.String, ReasonFailureRateExceeded)
	// Partial results are still recorded for audit.
	assert.Len(t, repo.results[run.ID], 3)
}

func TestScanConfigErrorFailsBeforeAnyWork(t *testing.T) {
	def := testDefinition()
	def.Filters = nil

	repo := newFakeRunRepo()
	o := New(NewRegistry(), &fakeUniverse{instruments: instruments("AAA")}, &fakePrices{}, repo, testLogger(t), Options{Workers: 2})

	run, err := o.Scan(context.Background(), def, time.Now())
	require.Error(t, err)

	var cfgErr *strategy.ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	assert.Equal(t, entity.ScanRunStatusFailed, run.Status)
	require.True(t, run.FailureReason.Valid)
	assert.Contains(t, run.FailureReason.String, ReasonStrategyConfig)
	assert.Empty(t, repo.results[run.ID], "a config error must produce no partial results")
	assert.NotContains(t, repo.transitions, entity.ScanRunStatusRunning)
}

func TestScanRejectsConcurrentRunForSameStrategy(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Acquire("trend-follow", "other-run"))

	repo := newFakeRunRepo()
	o := New(registry, &fakeUniverse{instruments: instruments("AAA")}, &fakePrices{}, repo, testLogger(t), Options{Workers: 1})

	_, err := o.Scan(context.Background(), testDefinition(), time.Now())
	require.Error(t, err)

	var inProgress *RunInProgressError
	require.True(t, errors.As(err, &inProgress))
	assert.Equal(t, "trend-follow", inProgress.StrategyID)
	assert.Equal(t, 0, repo.createCalls, "a rejected trigger must not write a run record")

	// After releasing, the strategy can run again.
	registry.Release("trend-follow")
	id, ok := registry.Running("trend-follow")
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestScanDeterministicAcrossWorkerPoolSizes(t *testing.T) {
	var symbols []string
	bars := map[string][]entity.PriceBar{}
	for i := 0; i < 20; i++ {
		sym := fmt.Sprintf("S%02d", i)
		symbols = append(symbols, sym)
		bars[sym] = trendBars(100, 100+float64(i)/2, 95+float64(i))
	}
	prices := &fakePrices{bars: bars, errs: map[string]error{"S07": errors.New("gap")}}

	type outcome struct {
		passed bool
		score  int
		rule   string
		reason string
	}
	collect := func(workers int) map[string]outcome {
		repo := newFakeRunRepo()
		o := New(NewRegistry(), &fakeUniverse{instruments: instruments(symbols...)}, prices, repo, testLogger(t), Options{Workers: workers, FailureRateThreshold: 0.5})
		run, err := o.Scan(context.Background(), testDefinition(), time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)

		out := map[string]outcome{}
		for _, res := range repo.results[run.ID] {
			out[res.Symbol] = outcome{
				passed: res.FiltersPassed,
				score:  res.Score,
				rule:   res.FailedRule.String,
				reason: res.FailureReason.String,
			}
		}
		return out
	}

	base := collect(1)
	require.Len(t, base, 20)
	for _, workers := range []int{3, 8, 16} {
		assert.Equal(t, base, collect(workers), "results must not depend on pool size %d", workers)
	}
}

func TestScanRunBudgetRecordsTimeoutsInsteadOfHanging(t *testing.T) {
	var symbols []string
	bars := map[string][]entity.PriceBar{}
	for i := 0; i < 8; i++ {
		sym := fmt.Sprintf("S%02d", i)
		symbols = append(symbols, sym)
		bars[sym] = trendBars(100, 102, 105)
	}
	repo := newFakeRunRepo()

	o := New(NewRegistry(), &fakeUniverse{instruments: instruments(symbols...)}, &fakePrices{bars: bars}, repo, testLogger(t), Options{
		Workers:              2,
		FailureRateThreshold: 0.1,
		RunBudget:            time.Nanosecond,
	})

	run, err := o.Scan(context.Background(), testDefinition(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, entity.ScanRunStatusFailed, run.Status)
	assert.Equal(t, 8, run.FailedInstruments)
	require.Len(t, repo.results[run.ID], 8)
	for _, res := range repo.results[run.ID] {
		assert.True(t, res.FailureReason.Valid, "instrument %s must carry a failure reason", res.Symbol)
	}
}
