// Package indicator computes technical indicators over ordered price bars.
//
// Every indicator is a pure function from a time-ascending bar sequence to a
// value series aligned one-to-one with the input. Positions whose lookback
// window is not yet filled are explicitly invalid; an invalid value must
// never be coerced to zero downstream.
package indicator

import (
	"fmt"

	"golang-stock-scanner/internal/entity"
)

const (
	KindPrice = "price"
	KindSMA   = "sma"
	KindEMA   = "ema"
	KindRSI   = "rsi"
	KindATR   = "atr"
	KindROC   = "roc"
)

const (
	SourceOpen   = "open"
	SourceHigh   = "high"
	SourceLow    = "low"
	SourceClose  = "close"
	SourceVolume = "volume"
)

// Value is one indicator observation. Valid is false while the indicator's
// lookback window is not yet filled.
type Value struct {
	Num   float64
	Valid bool
}

// Series is an indicator value sequence aligned with the input bars.
type Series []Value

// Last returns the most recent value, invalid when the series is empty.
func (s Series) Last() Value {
	if len(s) == 0 {
		return Value{}
	}
	return s[len(s)-1]
}

// Config selects one indicator computation within a strategy.
type Config struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Period int    `json:"period"`
	Source string `json:"source"`
}

// KnownKind reports whether kind names a supported indicator.
func KnownKind(kind string) bool {
	switch kind {
	case KindPrice, KindSMA, KindEMA, KindRSI, KindATR, KindROC:
		return true
	}
	return false
}

// KnownSource reports whether source names a supported bar field.
func KnownSource(source string) bool {
	switch source {
	case SourceOpen, SourceHigh, SourceLow, SourceClose, SourceVolume:
		return true
	}
	return false
}

// Compute evaluates the configured indicator over bars. The returned series
// has exactly len(bars) entries.
func Compute(cfg Config, bars []entity.PriceBar) (Series, error) {
	if !KnownKind(cfg.Kind) {
		return nil, fmt.Errorf("unknown indicator kind %q", cfg.Kind)
	}

	switch cfg.Kind {
	case KindPrice:
		src, err := sourceSeries(cfg.Source, bars)
		if err != nil {
			return nil, err
		}
		out := make(Series, len(src))
		for i, v := range src {
			out[i] = Value{Num: v, Valid: true}
		}
		return out, nil
	case KindSMA:
		src, err := sourceSeries(cfg.Source, bars)
		if err != nil {
			return nil, err
		}
		return sma(src, cfg.Period), nil
	case KindEMA:
		src, err := sourceSeries(cfg.Source, bars)
		if err != nil {
			return nil, err
		}
		return ema(src, cfg.Period), nil
	case KindRSI:
		src, err := sourceSeries(cfg.Source, bars)
		if err != nil {
			return nil, err
		}
		return rsi(src, cfg.Period), nil
	case KindROC:
		src, err := sourceSeries(cfg.Source, bars)
		if err != nil {
			return nil, err
		}
		return roc(src, cfg.Period), nil
	case KindATR:
		// ATR derives from high/low/close directly, Source is ignored.
		return atr(bars, cfg.Period), nil
	}
	return nil, fmt.Errorf("unknown indicator kind %q", cfg.Kind)
}

func sourceSeries(source string, bars []entity.PriceBar) ([]float64, error) {
	if !KnownSource(source) {
		return nil, fmt.Errorf("unknown indicator source %q", source)
	}
	out := make([]float64, len(bars))
	for i, bar := range bars {
		switch source {
		case SourceOpen:
			out[i] = bar.Open.InexactFloat64()
		case SourceHigh:
			out[i] = bar.High.InexactFloat64()
		case SourceLow:
			out[i] = bar.Low.InexactFloat64()
		case SourceClose:
			out[i] = bar.Close.InexactFloat64()
		case SourceVolume:
			out[i] = float64(bar.Volume)
		}
	}
	return out, nil
}
