package model

import "time"

// TradeStatusOpen is the initial status of a freshly logged trade idea.
const TradeStatusOpen = "OPEN"

// TradeLogEntry is one row of the persistent trade log.
type TradeLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Symbol     string    `json:"symbol"`
	Signal     Signal    `json:"signal"`
	EntryPrice float64   `json:"entry_price"`
	Target     float64   `json:"target"`
	StopLoss   float64   `json:"stop_loss"`
	LivePrice  float64   `json:"live_price"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes"`
}

// FromVerdict builds a trade log entry for an actionable verdict.
// Live price equals entry price at log time; status starts OPEN.
func FromVerdict(v SignalVerdict) TradeLogEntry {
	return TradeLogEntry{
		Timestamp:  v.Timestamp,
		Symbol:     v.Symbol,
		Signal:     v.Signal,
		EntryPrice: v.EntryPrice,
		Target:     v.Target,
		StopLoss:   v.StopLoss,
		LivePrice:  v.EntryPrice,
		Status:     TradeStatusOpen,
		Notes:      v.Notes,
	}
}
