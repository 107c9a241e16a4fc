// Package orchestrator runs one strategy over the instrument universe and
// produces an immutable scan run. Instruments are evaluated end-to-end
// (indicators, filters, score) on a bounded worker pool; workers share only
// read-only price data.
package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"golang-stock-scanner/internal/entity"
	"golang-stock-scanner/internal/scanner/indicator"
	"golang-stock-scanner/internal/scanner/strategy"
	"golang-stock-scanner/pkg/logger"
)

// Options holds the runtime tuning for one orchestrator.
type Options struct {
	// Workers bounds the evaluation pool. Values below 1 fall back to 1.
	Workers int
	// FailureRateThreshold is the fraction of per-instrument failures
	// (0..1) above which the whole run fails.
	FailureRateThreshold float64
	// RunBudget bounds the wall-clock time of one run. Zero means no
	// budget. Instruments not started when the budget expires are
	// recorded as data failures instead of hanging the run.
	RunBudget time.Duration
}

type Orchestrator struct {
	registry *Registry
	universe UniverseProvider
	prices   PriceHistoryProvider
	runs     RunRepository
	log      *logger.Logger
	opts     Options
}

func New(registry *Registry, universe UniverseProvider, prices PriceHistoryProvider, runs RunRepository, log *logger.Logger, opts Options) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Orchestrator{
		registry: registry,
		universe: universe,
		prices:   prices,
		runs:     runs,
		log:      log,
		opts:     opts,
	}
}

// Scan executes one strategy version over the universe as of the given
// timestamp. The run record is always persisted, including validation
// failures, so every outcome stays reconstructable. A strategy that already
// has a running scan is rejected with RunInProgressError before any record
// is written.
func (o *Orchestrator) Scan(ctx context.Context, def *strategy.Definition, asOf time.Time) (*entity.ScanRun, error) {
	run := &entity.ScanRun{
		ID:              uuid.NewString(),
		StrategyID:      def.StrategyID,
		StrategyVersion: def.Version,
		Status:          entity.ScanRunStatusPending,
		AsOf:            asOf,
		StartedAt:       time.Now(),
	}

	if err := o.registry.Acquire(def.StrategyID, run.ID); err != nil {
		return nil, err
	}
	defer o.registry.Release(def.StrategyID)

	if err := o.runs.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	// PENDING phase: structural validation before any instrument work.
	if err := def.Validate(); err != nil {
		o.log.ErrorContext(ctx, "Strategy validation failed",
			logger.StringField("strategy_id", def.StrategyID),
			logger.ErrorField(err))
		if finalErr := o.finalize(ctx, run, entity.ScanRunStatusFailed, ReasonStrategyConfig+": "+err.Error()); finalErr != nil {
			return run, finalErr
		}
		return run, err
	}

	instruments, err := o.universe.GetUniverse(ctx)
	if err != nil {
		if finalErr := o.finalize(ctx, run, entity.ScanRunStatusFailed, ReasonUniverseUnavailable+": "+err.Error()); finalErr != nil {
			return run, finalErr
		}
		return run, err
	}

	run.Status = entity.ScanRunStatusRunning
	run.TotalInstruments = len(instruments)
	if err := o.runs.MarkRunning(ctx, run); err != nil {
		return run, err
	}

	results := o.evaluateAll(ctx, def, instruments, asOf)
	for i := range results {
		results[i].RunID = run.ID
	}
	if err := o.runs.AppendResults(ctx, results); err != nil {
		return run, err
	}

	failed := 0
	for _, res := range results {
		if res.FailureReason.Valid {
			failed++
		}
	}
	run.FailedInstruments = failed

	status := entity.ScanRunStatusCompleted
	reason := ""
	if len(instruments) > 0 {
		failureRate := float64(failed) / float64(len(instruments))
		if failureRate > o.opts.FailureRateThreshold {
			status = entity.ScanRunStatusFailed
			reason = ReasonFailureRateExceeded
		}
	}

	if err := o.finalize(ctx, run, status, reason); err != nil {
		return run, err
	}

	o.log.InfoContext(ctx, "Scan run finalized",
		logger.StringField("run_id", run.ID),
		logger.StringField("strategy_id", def.StrategyID),
		logger.StringField("status", run.Status),
		logger.IntField("total_instruments", run.TotalInstruments),
		logger.IntField("failed_instruments", run.FailedInstruments))

	return run, nil
}

// evaluateAll fans the universe out over the worker pool. Result order is
// insignificant; results are keyed by instrument.
func (o *Orchestrator) evaluateAll(ctx context.Context, def *strategy.Definition, instruments []entity.Instrument, asOf time.Time) []entity.ScanResult {
	runCtx := ctx
	if o.opts.RunBudget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.opts.RunBudget)
		defer cancel()
	}

	jobs := make(chan entity.Instrument)
	out := make(chan entity.ScanResult, len(instruments))

	var wg sync.WaitGroup
	for i := 0; i < o.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inst := range jobs {
				out <- o.evaluate(runCtx, def, inst, asOf)
			}
		}()
	}

	for _, inst := range instruments {
		select {
		case jobs <- inst:
		case <-runCtx.Done():
			// Budget exhausted: unstarted instruments are recorded as
			// data failures, in-flight evaluations finish normally.
			out <- failedResult(inst.Symbol, &DataUnavailableError{Symbol: inst.Symbol, Reason: "timeout: not evaluated"})
		}
	}
	close(jobs)
	wg.Wait()
	close(out)

	results := make([]entity.ScanResult, 0, len(instruments))
	for res := range out {
		results = append(results, res)
	}
	return results
}

// evaluate runs one instrument end-to-end. Failures stay on this
// instrument's result and never abort the run.
func (o *Orchestrator) evaluate(ctx context.Context, def *strategy.Definition, inst entity.Instrument, asOf time.Time) entity.ScanResult {
	bars, err := o.prices.GetHistory(ctx, inst.Symbol, asOf)
	if err != nil {
		return failedResult(inst.Symbol, &DataUnavailableError{Symbol: inst.Symbol, Reason: err.Error()})
	}
	if len(bars) == 0 {
		return failedResult(inst.Symbol, &DataUnavailableError{Symbol: inst.Symbol, Reason: "no price history"})
	}

	values := make(map[string]indicator.Value, len(def.Indicators))
	for _, cfg := range def.Indicators {
		series, err := indicator.Compute(cfg, bars)
		if err != nil {
			return failedResult(inst.Symbol, &DataUnavailableError{Symbol: inst.Symbol, Reason: err.Error()})
		}
		values[cfg.Name] = series.Last()
	}

	result := entity.ScanResult{
		Symbol:     inst.Symbol,
		Indicators: marshalValues(values),
	}

	outcome := strategy.EvaluateFilters(def.Filters, values)
	if !outcome.Passed {
		result.FailedRule = sql.NullString{String: outcome.FailedRule, Valid: true}
		return result
	}

	score, err := strategy.Score(def.Scoring, values)
	if err != nil {
		return failedResult(inst.Symbol, &DataUnavailableError{Symbol: inst.Symbol, Reason: err.Error()})
	}

	result.FiltersPassed = true
	result.Score = score
	return result
}

func (o *Orchestrator) finalize(ctx context.Context, run *entity.ScanRun, status, reason string) error {
	run.Status = status
	run.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}
	if reason != "" {
		run.FailureReason = sql.NullString{String: reason, Valid: true}
	}
	return o.runs.CompleteRun(ctx, run)
}

func failedResult(symbol string, err *DataUnavailableError) entity.ScanResult {
	return entity.ScanResult{
		Symbol:        symbol,
		FailureReason: sql.NullString{String: err.Error(), Valid: true},
	}
}

// marshalValues snapshots the instrument's indicator values for audit.
// Unavailable values are stored as JSON null, never as zero.
func marshalValues(values map[string]indicator.Value) datatypes.JSON {
	snapshot := make(map[string]*float64, len(values))
	for name, v := range values {
		if v.Valid {
			num := v.Num
			snapshot[name] = &num
		} else {
			snapshot[name] = nil
		}
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
