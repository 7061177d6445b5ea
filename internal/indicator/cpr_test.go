package indicator

import (
	"math"
	"testing"

	"trade-assistant/internal/model"
)

func TestComputeCPR_KnownValues(t *testing.T) {
	cpr := ComputeCPR(110, 90, 106)
	// pivot = 306/3 = 102, bc = 200/2 = 100, tc = 2*102 - 100 = 104
	if cpr.Pivot != 102.0 {
		t.Errorf("pivot: expected 102.00, got %.2f", cpr.Pivot)
	}
	if cpr.BC != 100.0 {
		t.Errorf("bc: expected 100.00, got %.2f", cpr.BC)
	}
	if cpr.TC != 104.0 {
		t.Errorf("tc: expected 104.00, got %.2f", cpr.TC)
	}
}

func TestComputeCPR_Symmetry(t *testing.T) {
	cases := []struct{ high, low, close float64 }{
		{110, 90, 106},
		{2510.55, 2480.10, 2499.95},
		{55.5, 54.5, 55.0},
		{1, 0.5, 0.75},
	}
	for _, c := range cases {
		cpr := ComputeCPR(c.high, c.low, c.close)
		// tc mirrors bc around the pivot
		upper := cpr.TC - cpr.Pivot
		lower := cpr.Pivot - cpr.BC
		if math.Abs(upper-lower) > 0.011 { // rounding can shift each band by <=0.005
			t.Errorf("CPR(%v) asymmetric: tc-pivot=%.4f pivot-bc=%.4f", c, upper, lower)
		}
	}
}

func TestCPRFromSession(t *testing.T) {
	band := model.SessionBand{High: 110, Low: 90, Close: 106}
	if got := CPRFromSession(band); got != ComputeCPR(110, 90, 106) {
		t.Errorf("session band path disagrees with direct computation: %+v", got)
	}
}
