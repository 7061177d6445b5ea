package model

// Sample is one price/volume observation in a chronological series.
type Sample struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// PriceSeries is an ordered sequence of samples for one symbol.
// Insertion order is significant; the series is supplied per call and
// never cached by the engine.
type PriceSeries []Sample

// Prices returns the price column of the series.
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s))
	for i, smp := range s {
		out[i] = smp.Price
	}
	return out
}

// Volumes returns the volume column of the series.
func (s PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, smp := range s {
		out[i] = smp.Volume
	}
	return out
}

// SessionBand holds the prior trading session's high/low/close for one
// symbol. It is the sole input to the CPR calculation.
type SessionBand struct {
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}
