package indicator

// RSI calculates the Relative Strength Index over a chronological price
// series using Wilder's smoothing method.
//
// A series shorter than period+1 cannot seed the averages; the neutral
// value 50.0 is returned instead of an error. A series with no losses
// returns 100.0 (maximal strength) rather than dividing by zero.
// The result is always within [0, 100], rounded to 2 decimals.
func RSI(prices []float64, period int) float64 {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	if len(prices) < period+1 {
		return 50.0
	}

	deltas := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		deltas[i-1] = prices[i] - prices[i-1]
	}

	// SMA seed over the first `period` deltas.
	var avgGain, avgLoss float64
	for _, d := range deltas[:period] {
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder's smoothing: avg = (avg*(period-1) + new) / period
	p := float64(period)
	for _, d := range deltas[period:] {
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return round2(100.0 - 100.0/(1.0+rs))
}
