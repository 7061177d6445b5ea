package model

import "time"

// Signal is a trading recommendation.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// SignalVerdict is the outcome of evaluating one IndicatorSnapshot:
// the recommendation plus entry, target and stop-loss levels.
// It is derived solely from the snapshot and carries no persisted identity.
type SignalVerdict struct {
	Symbol     string    `json:"symbol"`
	Signal     Signal    `json:"signal"`
	EntryPrice float64   `json:"entry_price"`
	Target     float64   `json:"target"`
	StopLoss   float64   `json:"stop_loss"`
	Notes      string    `json:"notes"`
	Timestamp  time.Time `json:"timestamp"`
}

// Actionable reports whether the verdict should be logged and alerted.
func (v SignalVerdict) Actionable() bool {
	return v.Signal != SignalHold
}
