package indicator

import "trade-assistant/internal/model"

// CPR holds the Central Pivot Range bands derived from the prior session:
// the pivot, the bottom central band (bc) and the top central band (tc).
// tc mirrors bc around the pivot, so tc-pivot == pivot-bc always holds.
type CPR struct {
	Pivot float64 `json:"pivot"`
	BC    float64 `json:"bc"`
	TC    float64 `json:"tc"`
}

// ComputeCPR derives the pivot bands from prior-session high/low/close.
// Total for finite numeric input; all values rounded to 2 decimals.
func ComputeCPR(high, low, close float64) CPR {
	pivot := (high + low + close) / 3
	bc := (high + low) / 2
	tc := 2*pivot - bc
	return CPR{
		Pivot: round2(pivot),
		BC:    round2(bc),
		TC:    round2(tc),
	}
}

// CPRFromSession is ComputeCPR over a SessionBand.
func CPRFromSession(band model.SessionBand) CPR {
	return ComputeCPR(band.High, band.Low, band.Close)
}
