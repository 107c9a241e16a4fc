package entity

import "time"

const (
	PolicyUnion        = "UNION"
	PolicyIntersection = "INTERSECTION"
	PolicyWeighted     = "WEIGHTED"
)

// Account holds the aggregation configuration for one trading account.
type Account struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	AccountID          string    `gorm:"not null;uniqueIndex" json:"account_id"`
	Name               string    `json:"name"`
	PolicyKind         string    `gorm:"not null" json:"policy_kind"`
	InclusionThreshold float64   `gorm:"not null" json:"inclusion_threshold"`
	TopN               int       `gorm:"not null" json:"top_n"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// AccountStrategy is one {strategy, weight} entry in an account's configured
// strategy set.
type AccountStrategy struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AccountID  string    `gorm:"not null;index" json:"account_id"`
	StrategyID string    `gorm:"not null" json:"strategy_id"`
	Weight     float64   `gorm:"not null" json:"weight"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AccountStrategy) TableName() string {
	return "account_strategies"
}
