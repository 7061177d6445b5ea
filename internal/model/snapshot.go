package model

import "time"

// IndicatorSnapshot is the full indicator state for one symbol at one
// instant: RSI, VWAP, the CPR bands and the last traded price.
// Produced fresh per evaluation and never mutated after creation.
type IndicatorSnapshot struct {
	Symbol    string    `json:"symbol"`
	RSI       float64   `json:"rsi"`
	VWAP      float64   `json:"vwap"`
	Pivot     float64   `json:"pivot"`
	BC        float64   `json:"bc"`  // bottom central pivot band
	TC        float64   `json:"tc"`  // top central pivot band
	LTP       float64   `json:"ltp"` // last traded price
	Timestamp time.Time `json:"timestamp"`
}
