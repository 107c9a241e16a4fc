package indicator

// sma computes a simple moving average. The first period-1 positions are
// invalid.
func sma(src []float64, period int) Series {
	out := make(Series, len(src))
	if period <= 0 || len(src) < period {
		return out
	}

	var sum float64
	for i, v := range src {
		sum += v
		if i >= period {
			sum -= src[i-period]
		}
		if i >= period-1 {
			out[i] = Value{Num: sum / float64(period), Valid: true}
		}
	}
	return out
}

// ema computes an exponential moving average seeded with the SMA of the
// first period values.
func ema(src []float64, period int) Series {
	out := make(Series, len(src))
	if period <= 0 || len(src) < period {
		return out
	}

	var seed float64
	for i := 0; i < period; i++ {
		seed += src[i]
	}
	seed /= float64(period)
	out[period-1] = Value{Num: seed, Valid: true}

	k := 2.0 / float64(period+1)
	prev := seed
	for i := period; i < len(src); i++ {
		prev = prev + k*(src[i]-prev)
		out[i] = Value{Num: prev, Valid: true}
	}
	return out
}
