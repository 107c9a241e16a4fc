package entity

import (
	"database/sql"
	"time"
)

// ScanSchedule drives periodic scan triggers for one strategy.
type ScanSchedule struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	StrategyID     string       `gorm:"not null;index" json:"strategy_id"`
	CronExpression string       `gorm:"not null" json:"cron_expression"`
	IsActive       bool         `gorm:"not null;default:true" json:"is_active"`
	LastExecution  sql.NullTime `json:"last_execution"`
	NextExecution  sql.NullTime `json:"next_execution"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ScanSchedule) TableName() string {
	return "scan_schedules"
}
