package indicator

// rsi computes Wilder's relative strength index. The first period positions
// are invalid; the seed averages the first period gains/losses and later
// values use Wilder smoothing.
func rsi(src []float64, period int) Series {
	out := make(Series, len(src))
	if period <= 0 || len(src) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := src[i] - src[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = Value{Num: rsiValue(avgGain, avgLoss), Valid: true}

	for i := period + 1; i < len(src); i++ {
		change := src[i] - src[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = Value{Num: rsiValue(avgGain, avgLoss), Valid: true}
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// roc computes the rate of change in percent over period bars. Positions
// whose reference value is zero stay invalid rather than dividing by zero.
func roc(src []float64, period int) Series {
	out := make(Series, len(src))
	if period <= 0 {
		return out
	}
	for i := period; i < len(src); i++ {
		ref := src[i-period]
		if ref == 0 {
			continue
		}
		out[i] = Value{Num: (src[i] - ref) / ref * 100, Valid: true}
	}
	return out
}
