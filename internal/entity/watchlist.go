package entity

import "time"

const (
	SignalBuy  = "BUY"
	SignalWait = "WAIT"
	SignalSkip = "SKIP"
)

// Watchlist is one published combination result for an account. Publications
// are insert-only; the latest one per account is the live watchlist and
// older ones remain for audit.
type Watchlist struct {
	ID         string          `gorm:"primaryKey" json:"id"`
	AccountID  string          `gorm:"not null;index" json:"account_id"`
	PolicyKind string          `gorm:"not null" json:"policy_kind"`
	Items      []WatchlistItem `gorm:"foreignKey:WatchlistID" json:"items"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Watchlist) TableName() string {
	return "watchlists"
}

// WatchlistItem is one ranked instrument in a watchlist. Rank is a dense
// 1..N ordering over BUY items; WAIT and SKIP items carry rank 0.
type WatchlistItem struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	WatchlistID   string    `gorm:"not null;index" json:"watchlist_id"`
	Symbol        string    `gorm:"not null" json:"symbol"`
	CombinedScore float64   `gorm:"not null" json:"combined_score"`
	Rank          int       `gorm:"not null" json:"rank"`
	Signal        string    `gorm:"not null" json:"signal"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (WatchlistItem) TableName() string {
	return "watchlist_items"
}
