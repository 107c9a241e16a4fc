package indicator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-stock-scanner/internal/entity"
)

func barsFromCloses(closes ...float64) []entity.PriceBar {
	bars := make([]entity.PriceBar, len(closes))
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		d := decimal.NewFromFloat(c)
		bars[i] = entity.PriceBar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      d,
			High:      d.Add(decimal.NewFromInt(1)),
			Low:       d.Sub(decimal.NewFromInt(1)),
			Close:     d,
			Volume:    1000 + int64(i),
		}
	}
	return bars
}

func TestComputeSMA(t *testing.T) {
	bars := barsFromCloses(1, 2, 3, 4, 5)
	series, err := Compute(Config{Name: "sma3", Kind: KindSMA, Period: 3, Source: SourceClose}, bars)
	require.NoError(t, err)
	require.Len(t, series, 5)

	assert.False(t, series[0].Valid)
	assert.False(t, series[1].Valid)
	require.True(t, series[2].Valid)
	assert.InDelta(t, 2.0, series[2].Num, 1e-9)
	assert.InDelta(t, 3.0, series[3].Num, 1e-9)
	assert.InDelta(t, 4.0, series[4].Num, 1e-9)
}

func TestComputeEMASeededWithSMA(t *testing.T) {
	bars := barsFromCloses(10, 20, 30, 40)
	series, err := Compute(Config{Name: "ema3", Kind: KindEMA, Period: 3, Source: SourceClose}, bars)
	require.NoError(t, err)

	assert.False(t, series[1].Valid)
	require.True(t, series[2].Valid)
	assert.InDelta(t, 20.0, series[2].Num, 1e-9)
	// k = 2/(3+1) = 0.5 -> 20 + 0.5*(40-20)
	assert.InDelta(t, 30.0, series[3].Num, 1e-9)
}

func TestComputeRSI(t *testing.T) {
	bars := barsFromCloses(10, 11, 12, 13, 14, 15)
	series, err := Compute(Config{Name: "rsi", Kind: KindRSI, Period: 3, Source: SourceClose}, bars)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.False(t, series[i].Valid, "warm-up position %d must be unavailable", i)
	}
	require.True(t, series[3].Valid)
	// Monotonically rising closes mean no losses at all.
	assert.InDelta(t, 100.0, series[3].Num, 1e-9)
	assert.InDelta(t, 100.0, series[5].Num, 1e-9)
}

func TestComputeROC(t *testing.T) {
	bars := barsFromCloses(100, 110, 121)
	series, err := Compute(Config{Name: "roc", Kind: KindROC, Period: 2, Source: SourceClose}, bars)
	require.NoError(t, err)

	assert.False(t, series[0].Valid)
	assert.False(t, series[1].Valid)
	require.True(t, series[2].Valid)
	assert.InDelta(t, 21.0, series[2].Num, 1e-9)
}

func TestComputeROCZeroReferenceStaysUnavailable(t *testing.T) {
	bars := barsFromCloses(0, 10, 20)
	series, err := Compute(Config{Name: "roc", Kind: KindROC, Period: 2, Source: SourceClose}, bars)
	require.NoError(t, err)
	assert.False(t, series[2].Valid)
}

func TestComputeATR(t *testing.T) {
	bars := barsFromCloses(10, 10, 10, 10, 10)
	series, err := Compute(Config{Name: "atr", Kind: KindATR, Period: 3}, bars)
	require.NoError(t, err)

	assert.False(t, series[2].Valid)
	require.True(t, series[3].Valid)
	// Flat closes with a constant 2-point high/low spread.
	assert.InDelta(t, 2.0, series[3].Num, 1e-9)
	assert.InDelta(t, 2.0, series[4].Num, 1e-9)
}

func TestComputePricePassthrough(t *testing.T) {
	bars := barsFromCloses(5, 6)
	series, err := Compute(Config{Name: "vol", Kind: KindPrice, Source: SourceVolume}, bars)
	require.NoError(t, err)
	require.True(t, series[0].Valid)
	assert.Equal(t, 1000.0, series[0].Num)
	assert.Equal(t, 1001.0, series[1].Num)
}

func TestComputeRejectsUnknownKindAndSource(t *testing.T) {
	bars := barsFromCloses(1, 2, 3)

	_, err := Compute(Config{Name: "x", Kind: "macd", Period: 3, Source: SourceClose}, bars)
	assert.Error(t, err)

	_, err = Compute(Config{Name: "x", Kind: KindSMA, Period: 3, Source: "typical"}, bars)
	assert.Error(t, err)
}

func TestSeriesShorterThanLookbackIsAllUnavailable(t *testing.T) {
	bars := barsFromCloses(1, 2)
	series, err := Compute(Config{Name: "sma", Kind: KindSMA, Period: 5, Source: SourceClose}, bars)
	require.NoError(t, err)
	require.Len(t, series, 2)
	for _, v := range series {
		assert.False(t, v.Valid)
	}
	assert.False(t, series.Last().Valid)
}
