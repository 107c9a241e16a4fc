package indicator

import (
	"math"

	"golang-stock-scanner/internal/entity"
)

// atr computes Wilder's average true range. The first period positions are
// invalid; the seed averages the first period true ranges.
func atr(bars []entity.PriceBar, period int) Series {
	out := make(Series, len(bars))
	if period <= 0 || len(bars) < period+1 {
		return out
	}

	tr := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		high := bars[i].High.InexactFloat64()
		low := bars[i].Low.InexactFloat64()
		prevClose := bars[i-1].Close.InexactFloat64()
		tr[i] = math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
	}

	var seed float64
	for i := 1; i <= period; i++ {
		seed += tr[i]
	}
	seed /= float64(period)
	out[period] = Value{Num: seed, Valid: true}

	prev := seed
	for i := period + 1; i < len(bars); i++ {
		prev = (prev*float64(period-1) + tr[i]) / float64(period)
		out[i] = Value{Num: prev, Valid: true}
	}
	return out
}
