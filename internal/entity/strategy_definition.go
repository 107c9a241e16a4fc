package entity

import (
	"time"

	"gorm.io/datatypes"
)

// StrategyDefinition is one immutable version of a declarative strategy.
// Editing a strategy inserts a new row with a bumped Version; rows already
// referenced by a scan run are never updated.
type StrategyDefinition struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	StrategyID string         `gorm:"not null;uniqueIndex:idx_strategy_definitions_sid_version" json:"strategy_id"`
	Version    int            `gorm:"not null;uniqueIndex:idx_strategy_definitions_sid_version" json:"version"`
	Name       string         `gorm:"not null" json:"name"`
	Definition datatypes.JSON `gorm:"type:jsonb;not null" json:"definition"`
	IsActive   bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (StrategyDefinition) TableName() string {
	return "strategy_definitions"
}
