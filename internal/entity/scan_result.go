package entity

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

// ScanResult is the outcome for one instrument within one scan run. Score is
// non-zero only when FiltersPassed; failed instruments carry the failing
// rule or error reason so every exclusion stays explainable.
type ScanResult struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	RunID         string         `gorm:"not null;uniqueIndex:idx_scan_results_run_symbol" json:"run_id"`
	Symbol        string         `gorm:"not null;uniqueIndex:idx_scan_results_run_symbol" json:"symbol"`
	FiltersPassed bool           `gorm:"not null" json:"filters_passed"`
	Score         int            `gorm:"not null" json:"score"`
	FailedRule    sql.NullString `json:"failed_rule"`
	FailureReason sql.NullString `json:"failure_reason"`
	Indicators    datatypes.JSON `gorm:"type:jsonb" json:"indicators"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (ScanResult) TableName() string {
	return "scan_results"
}
