package orchestrator

import (
	"context"
	"time"

	"golang-stock-scanner/internal/entity"
)

// UniverseProvider returns the current set of instruments eligible for
// scanning.
type UniverseProvider interface {
	GetUniverse(ctx context.Context) ([]entity.Instrument, error)
}

// PriceHistoryProvider returns the ordered bar sequence for an instrument up
// to and including asOf. Bars after asOf must never be returned; look-ahead
// is forbidden by contract.
type PriceHistoryProvider interface {
	GetHistory(ctx context.Context, symbol string, asOf time.Time) ([]entity.PriceBar, error)
}

// RunRepository is the orchestrator's write contract with durable storage.
// Result rows become visible to readers only once the run status is final,
// so a run is either fully observable or not observable at all.
type RunRepository interface {
	CreateRun(ctx context.Context, run *entity.ScanRun) error
	MarkRunning(ctx context.Context, run *entity.ScanRun) error
	AppendResults(ctx context.Context, results []entity.ScanResult) error
	CompleteRun(ctx context.Context, run *entity.ScanRun) error
}
