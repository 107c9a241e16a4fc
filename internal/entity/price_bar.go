package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar is one OHLCV observation. Prices are exact decimals; they are
// converted to floats only at the indicator-math boundary. Bars for one
// instrument are ordered by strictly increasing Timestamp.
type PriceBar struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}
