package indicator

import (
	"math"
	"testing"
)

func TestVWAP_Basic(t *testing.T) {
	prices := []float64{10, 20}
	volumes := []float64{1, 3}
	// (10*1 + 20*3) / 4 = 17.5
	if got := VWAP(prices, volumes); math.Abs(got-17.5) > 0.001 {
		t.Errorf("expected 17.5, got %.4f", got)
	}
}

func TestVWAP_Rounding(t *testing.T) {
	prices := []float64{100, 101, 102}
	volumes := []float64{3, 3, 3}
	// mean = 101.00
	if got := VWAP(prices, volumes); got != 101.0 {
		t.Errorf("expected 101.00, got %.4f", got)
	}
}

func TestVWAP_DegenerateInput_ZeroFallback(t *testing.T) {
	if got := VWAP(nil, nil); got != 0.0 {
		t.Errorf("empty input should give 0.0, got %.4f", got)
	}
	if got := VWAP([]float64{1, 2}, []float64{1}); got != 0.0 {
		t.Errorf("mismatched lengths should give 0.0, got %.4f", got)
	}
	if got := VWAP([]float64{1, 2}, []float64{0, 0}); got != 0.0 {
		t.Errorf("zero total volume should give 0.0, got %.4f", got)
	}
}
