package indicator

import (
	"math"
	"testing"
)

func TestRSI_InsufficientData_NeutralFallback(t *testing.T) {
	// period+1 samples are required; 14 closes with period 14 is one short
	prices := make([]float64, 14)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	if got := RSI(prices, 14); got != 50.0 {
		t.Errorf("expected neutral 50.0 for short series, got %.2f", got)
	}
	if got := RSI(nil, 14); got != 50.0 {
		t.Errorf("expected neutral 50.0 for nil series, got %.2f", got)
	}
}

func TestRSI_MonotonicallyIncreasing_IsMax(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 + float64(i)*0.5
	}
	if got := RSI(prices, 14); got != 100.0 {
		t.Errorf("no losses should give RSI=100.0, got %.2f", got)
	}
}

func TestRSI_MonotonicallyDecreasing_IsMin(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 200 - float64(i)*0.5
	}
	// avgGain=0 ⇒ rs=0 ⇒ RSI = 100 - 100/1 = 0
	if got := RSI(prices, 14); got != 0.0 {
		t.Errorf("no gains should give RSI=0.0, got %.2f", got)
	}
}

func TestRSI_FlatSeries_NoLossesBranch(t *testing.T) {
	// Zero deltas mean avgLoss == 0, which takes the no-losses branch.
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 150.0
	}
	if got := RSI(prices, 14); got != 100.0 {
		t.Errorf("flat series hits the avgLoss==0 branch, expected 100.0, got %.2f", got)
	}
}

func TestRSI_AlwaysInRange(t *testing.T) {
	// Oscillating series with mixed gains and losses
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + 10*math.Sin(float64(i)*0.7) + float64(i%5)
	}
	got := RSI(prices, 14)
	if got < 0 || got > 100 {
		t.Fatalf("RSI out of [0,100]: %.4f", got)
	}
}

func TestRSI_Deterministic(t *testing.T) {
	prices := []float64{100, 102, 101, 103, 105, 104, 106, 108, 107, 109,
		111, 110, 112, 114, 113, 115, 117, 116, 118, 120}
	a := RSI(prices, 14)
	b := RSI(prices, 14)
	if a != b {
		t.Errorf("RSI not deterministic: %.4f vs %.4f", a, b)
	}
}
