package indicator

// VWAP calculates the Volume-Weighted Average Price: Σ(price·volume)/Σ(volume).
//
// Mismatched or empty input returns 0.0 rather than an error; callers must
// treat 0.0 as undefined when the input was malformed. Rounded to 2 decimals.
func VWAP(prices, volumes []float64) float64 {
	if len(prices) != len(volumes) || len(prices) == 0 {
		return 0.0
	}

	var pvSum, vSum float64
	for i, p := range prices {
		pvSum += p * volumes[i]
		vSum += volumes[i]
	}
	if vSum == 0 {
		return 0.0
	}
	return round2(pvSum / vSum)
}
