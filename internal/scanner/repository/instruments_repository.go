package repository

import (
	"context"

	"gorm.io/gorm"

	"golang-stock-scanner/internal/entity"
)

// InstrumentsRepository provides the scan universe.
type InstrumentsRepository interface {
	GetUniverse(ctx context.Context) ([]entity.Instrument, error)
}

type instrumentsRepository struct {
	db *gorm.DB
}

func NewInstrumentsRepository(db *gorm.DB) InstrumentsRepository {
	return &instrumentsRepository{db: db}
}

func (r *instrumentsRepository) GetUniverse(ctx context.Context) ([]entity.Instrument, error) {
	var instruments []entity.Instrument
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("symbol ASC").
		Find(&instruments).Error
	if err != nil {
		return nil, err
	}
	return instruments, nil
}
