package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"golang-stock-scanner/internal/entity"
	"golang-stock-scanner/internal/scanner/strategy"
)

// StrategyRepository resolves stored strategy definitions into their parsed,
// versioned form. Definitions are immutable rows; an edit inserts a new
// version.
type StrategyRepository interface {
	GetLatestDefinition(ctx context.Context, strategyID string) (*strategy.Definition, error)
	GetDefinition(ctx context.Context, strategyID string, version int) (*strategy.Definition, error)
}

type strategyRepository struct {
	db *gorm.DB
}

func NewStrategyRepository(db *gorm.DB) StrategyRepository {
	return &strategyRepository{db: db}
}

func (r *strategyRepository) GetLatestDefinition(ctx context.Context, strategyID string) (*strategy.Definition, error) {
	var record entity.StrategyDefinition
	err := r.db.WithContext(ctx).
		Where("strategy_id = ? AND is_active = ?", strategyID, true).
		Order("version DESC").
		First(&record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load strategy %s: %w", strategyID, err)
	}
	return toDefinition(&record)
}

func (r *strategyRepository) GetDefinition(ctx context.Context, strategyID string, version int) (*strategy.Definition, error) {
	var record entity.StrategyDefinition
	err := r.db.WithContext(ctx).
		Where("strategy_id = ? AND version = ?", strategyID, version).
		First(&record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load strategy %s version %d: %w", strategyID, version, err)
	}
	return toDefinition(&record)
}

func toDefinition(record *entity.StrategyDefinition) (*strategy.Definition, error) {
	def, err := strategy.Parse(record.Definition)
	if err != nil {
		return nil, err
	}
	// The row is authoritative for identity; the body only carries rules.
	def.StrategyID = record.StrategyID
	def.Version = record.Version
	def.Name = record.Name
	return def, nil
}
