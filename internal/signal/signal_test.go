package signal

import (
	"testing"
	"time"

	"trade-assistant/internal/model"
)

func snap(rsi, ltp, vwap, tc, bc float64) model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		Symbol:    "RELIANCE",
		RSI:       rsi,
		VWAP:      vwap,
		Pivot:     (tc + bc) / 2,
		BC:        bc,
		TC:        tc,
		LTP:       ltp,
		Timestamp: time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC),
	}
}

func TestDecide_Buy(t *testing.T) {
	v := Decide(snap(25, 110, 100, 105, 95))

	if v.Signal != model.SignalBuy {
		t.Fatalf("expected BUY, got %s", v.Signal)
	}
	if v.EntryPrice != 110 {
		t.Errorf("entry: expected 110, got %.2f", v.EntryPrice)
	}
	if v.Target != 111.1 {
		t.Errorf("target: expected 111.10, got %.2f", v.Target)
	}
	if v.StopLoss != 109.45 {
		t.Errorf("stop: expected 109.45, got %.2f", v.StopLoss)
	}
	if v.Notes != "RSI oversold (25.00), price above VWAP and TC" {
		t.Errorf("unexpected notes: %q", v.Notes)
	}
	if !v.Actionable() {
		t.Error("BUY verdict should be actionable")
	}
}

func TestDecide_Sell(t *testing.T) {
	v := Decide(snap(75, 90, 100, 105, 95))

	if v.Signal != model.SignalSell {
		t.Fatalf("expected SELL, got %s", v.Signal)
	}
	if v.Target != 89.1 {
		t.Errorf("target: expected 89.10, got %.2f", v.Target)
	}
	if v.StopLoss != 90.45 {
		t.Errorf("stop: expected 90.45, got %.2f", v.StopLoss)
	}
	if v.Notes != "RSI overbought (75.00), price below VWAP and BC" {
		t.Errorf("unexpected notes: %q", v.Notes)
	}
}

func TestDecide_Hold_NoExposure(t *testing.T) {
	cases := []struct {
		name string
		s    model.IndicatorSnapshot
	}{
		{"neutral RSI", snap(50, 110, 100, 105, 95)},
		{"oversold but below TC", snap(25, 104, 100, 105, 95)},
		{"oversold but below VWAP", snap(25, 110, 120, 105, 95)},
		{"overbought but above BC", snap(75, 96, 100, 105, 95)},
	}
	for _, tc := range cases {
		v := Decide(tc.s)
		if v.Signal != model.SignalHold {
			t.Errorf("%s: expected HOLD, got %s", tc.name, v.Signal)
			continue
		}
		if v.Target != tc.s.LTP || v.StopLoss != tc.s.LTP {
			t.Errorf("%s: HOLD must carry no exposure, got target=%.2f stop=%.2f",
				tc.name, v.Target, v.StopLoss)
		}
		if v.Notes != "No clear signal" {
			t.Errorf("%s: unexpected notes %q", tc.name, v.Notes)
		}
		if v.Actionable() {
			t.Errorf("%s: HOLD verdict must not be actionable", tc.name)
		}
	}
}

func TestDecide_BoundaryRSIDoesNotTrigger(t *testing.T) {
	// Thresholds are strict inequalities.
	if v := Decide(snap(30, 110, 100, 105, 95)); v.Signal != model.SignalHold {
		t.Errorf("RSI exactly 30 should HOLD, got %s", v.Signal)
	}
	if v := Decide(snap(70, 90, 100, 105, 95)); v.Signal != model.SignalHold {
		t.Errorf("RSI exactly 70 should HOLD, got %s", v.Signal)
	}
}

func TestDecide_Idempotent(t *testing.T) {
	s := snap(25, 110, 100, 105, 95)
	a := Decide(s)
	b := Decide(s)
	if a != b {
		t.Errorf("Decide is not idempotent:\n a=%+v\n b=%+v", a, b)
	}
}
