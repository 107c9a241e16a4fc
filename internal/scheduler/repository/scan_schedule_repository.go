package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"golang-stock-scanner/internal/entity"
)

// ScanScheduleRepository defines the interface for scan schedule data
// operations.
type ScanScheduleRepository interface {
	Create(ctx context.Context, schedule *entity.ScanSchedule) error
	FindAll(ctx context.Context) ([]entity.ScanSchedule, error)
	Update(ctx context.Context, schedule *entity.ScanSchedule) error
	FindSchedulesToRun(ctx context.Context) ([]entity.ScanSchedule, error)
}

// NewScanScheduleRepository creates a new GORM-based scan schedule
// repository.
func NewScanScheduleRepository(db *gorm.DB) ScanScheduleRepository {
	return &scanScheduleRepository{db: db}
}

type scanScheduleRepository struct {
	db *gorm.DB
}

func (r *scanScheduleRepository) Create(ctx context.Context, schedule *entity.ScanSchedule) error {
	return r.db.WithContext(ctx).Create(schedule).Error
}

func (r *scanScheduleRepository) FindAll(ctx context.Context) ([]entity.ScanSchedule, error) {
	var schedules []entity.ScanSchedule
	if err := r.db.WithContext(ctx).Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *scanScheduleRepository) Update(ctx context.Context, schedule *entity.ScanSchedule) error {
	return r.db.WithContext(ctx).Save(schedule).Error
}

// FindSchedulesToRun finds all active schedules that are due.
func (r *scanScheduleRepository) FindSchedulesToRun(ctx context.Context) ([]entity.ScanSchedule, error) {
	var schedules []entity.ScanSchedule
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND (next_execution IS NULL OR next_execution <= ?)", true, time.Now()).
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}
