package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"golang-stock-scanner/internal/entity"
)

// RunRepository is the durable store for scan runs, scan results and
// watchlist publications. Result rows are written while a run is RUNNING but
// readers only ever go through LatestCompletedRun, so a run becomes visible
// atomically when its status flips to COMPLETED.
type RunRepository interface {
	CreateRun(ctx context.Context, run *entity.ScanRun) error
	MarkRunning(ctx context.Context, run *entity.ScanRun) error
	AppendResults(ctx context.Context, results []entity.ScanResult) error
	CompleteRun(ctx context.Context, run *entity.ScanRun) error
	LatestCompletedRun(ctx context.Context, strategyID string) (*entity.ScanRun, error)
	GetResults(ctx context.Context, runID string) ([]entity.ScanResult, error)
	PublishWatchlist(ctx context.Context, watchlist *entity.Watchlist) error
	LatestWatchlist(ctx context.Context, accountID string) (*entity.Watchlist, error)
}

type runRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) CreateRun(ctx context.Context, run *entity.ScanRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *runRepository) MarkRunning(ctx context.Context, run *entity.ScanRun) error {
	return r.db.WithContext(ctx).Model(&entity.ScanRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":            run.Status,
			"total_instruments": run.TotalInstruments,
		}).Error
}

func (r *runRepository) AppendResults(ctx context.Context, results []entity.ScanResult) error {
	if len(results) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(results, 200).Error
}

func (r *runRepository) CompleteRun(ctx context.Context, run *entity.ScanRun) error {
	return r.db.WithContext(ctx).Model(&entity.ScanRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":             run.Status,
			"completed_at":       run.CompletedAt,
			"failure_reason":     run.FailureReason,
			"total_instruments":  run.TotalInstruments,
			"failed_instruments": run.FailedInstruments,
		}).Error
}

func (r *runRepository) LatestCompletedRun(ctx context.Context, strategyID string) (*entity.ScanRun, error) {
	var run entity.ScanRun
	err := r.db.WithContext(ctx).
		Where("strategy_id = ? AND status = ?", strategyID, entity.ScanRunStatusCompleted).
		Order("completed_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *runRepository) GetResults(ctx context.Context, runID string) ([]entity.ScanResult, error) {
	var results []entity.ScanResult
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// PublishWatchlist stores the publication header and all items in one
// transaction; readers never observe a partially written set.
func (r *runRepository) PublishWatchlist(ctx context.Context, watchlist *entity.Watchlist) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(watchlist).Error
	})
}

func (r *runRepository) LatestWatchlist(ctx context.Context, accountID string) (*entity.Watchlist, error) {
	var watchlist entity.Watchlist
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		First(&watchlist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &watchlist, nil
}
