package dto

import "time"

// StreamDataScanTrigger is the payload of a scan trigger message.
type StreamDataScanTrigger struct {
	StrategyID string    `json:"strategy_id"`
	AsOf       time.Time `json:"as_of"`
}

// StreamDataWatchlistAggregate asks the aggregation consumer to rebuild one
// account's watchlist.
type StreamDataWatchlistAggregate struct {
	AccountID string `json:"account_id"`
}
