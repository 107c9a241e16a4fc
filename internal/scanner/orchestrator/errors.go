package orchestrator

import "fmt"

// Failure reason prefixes recorded on failed runs.
const (
	ReasonStrategyConfig      = "StrategyConfigError"
	ReasonUniverseUnavailable = "UniverseUnavailable"
	ReasonFailureRateExceeded = "FailureRateExceeded"
)

// DataUnavailableError marks a single instrument that could not be
// evaluated. It is recorded on the instrument's result and counted into the
// run's failure-rate check; it never aborts the run by itself.
type DataUnavailableError struct {
	Symbol string
	Reason string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable for %s: %s", e.Symbol, e.Reason)
}

// RunInProgressError rejects a scan trigger for a strategy that already has
// a running scan. The trigger is not queued; the caller may retry later.
type RunInProgressError struct {
	StrategyID string
	RunID      string
}

func (e *RunInProgressError) Error() string {
	return fmt.Sprintf("scan run %s already in progress for strategy %s", e.RunID, e.StrategyID)
}
