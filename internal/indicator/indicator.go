// Package indicator computes technical indicators over numeric series.
//
// All functions are pure: no state, no I/O, deterministic for identical
// input. Degenerate input is recovered via documented fallback values
// rather than errors, so callers must treat the fallbacks as "undefined"
// when they supplied invalid input.
package indicator

import "math"

// DefaultRSIPeriod is the standard Wilder RSI lookback.
const DefaultRSIPeriod = 14

// round2 rounds to two decimals, the precision used for all published
// indicator and price values.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
