package entity

import (
	"database/sql"
	"time"
)

const (
	ScanRunStatusPending   = "PENDING"
	ScanRunStatusRunning   = "RUNNING"
	ScanRunStatusCompleted = "COMPLETED"
	ScanRunStatusFailed    = "FAILED"
)

// ScanRun is one execution of one strategy version over the instrument
// universe at a point in time. Once COMPLETED or FAILED the run and its
// results are immutable.
type ScanRun struct {
	ID                string         `gorm:"primaryKey" json:"id"`
	StrategyID        string         `gorm:"not null;index" json:"strategy_id"`
	StrategyVersion   int            `gorm:"not null" json:"strategy_version"`
	Status            string         `gorm:"not null" json:"status"`
	AsOf              time.Time      `gorm:"not null" json:"as_of"`
	StartedAt         time.Time      `gorm:"not null" json:"started_at"`
	CompletedAt       sql.NullTime   `json:"completed_at"`
	FailureReason     sql.NullString `json:"failure_reason"`
	TotalInstruments  int            `gorm:"not null" json:"total_instruments"`
	FailedInstruments int            `gorm:"not null" json:"failed_instruments"`
	CreatedAt         time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (ScanRun) TableName() string {
	return "scan_runs"
}
