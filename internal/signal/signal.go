// Package signal turns an indicator snapshot into a trading verdict.
//
// Decide is a pure function over one IndicatorSnapshot: no I/O, no hidden
// state, identical input gives identical output. Validation of the
// snapshot (finite values) is the caller's responsibility.
package signal

import (
	"fmt"
	"math"

	"trade-assistant/internal/model"
)

// RSI thresholds for the decision table.
const (
	OversoldRSI   = 30.0
	OverboughtRSI = 70.0
)

// Target and stop-loss multipliers. Policy constants: 1% profit target,
// 0.5% stop, mirrored for the short side. Not tunable at runtime.
const (
	buyTargetMult  = 1.01
	buyStopMult    = 0.995
	sellTargetMult = 0.99
	sellStopMult   = 1.005
)

// Decide applies the decision table to one snapshot, first match wins:
//
//  1. rsi < 30 and price above both VWAP and TC  → BUY
//     (oversold momentum confirmed by price strength)
//  2. rsi > 70 and price below both VWAP and BC  → SELL
//  3. otherwise                                  → HOLD
//
// BUY targets +1% with a 0.5% stop; SELL mirrors it. HOLD carries no
// exposure: target and stop both equal the price. Monetary outputs are
// rounded to 2 decimals. The verdict timestamp is taken from the
// snapshot so the transformation stays idempotent.
func Decide(snap model.IndicatorSnapshot) model.SignalVerdict {
	price := snap.LTP

	verdict := model.SignalVerdict{
		Symbol:     snap.Symbol,
		Signal:     model.SignalHold,
		EntryPrice: price,
		Target:     price,
		StopLoss:   price,
		Notes:      "No clear signal",
		Timestamp:  snap.Timestamp,
	}

	switch {
	case snap.RSI < OversoldRSI && price > snap.VWAP && price > snap.TC:
		verdict.Signal = model.SignalBuy
		verdict.Target = round2(price * buyTargetMult)
		verdict.StopLoss = round2(price * buyStopMult)
		verdict.Notes = fmt.Sprintf("RSI oversold (%.2f), price above VWAP and TC", snap.RSI)

	case snap.RSI > OverboughtRSI && price < snap.VWAP && price < snap.BC:
		verdict.Signal = model.SignalSell
		verdict.Target = round2(price * sellTargetMult)
		verdict.StopLoss = round2(price * sellStopMult)
		verdict.Notes = fmt.Sprintf("RSI overbought (%.2f), price below VWAP and BC", snap.RSI)
	}

	return verdict
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
