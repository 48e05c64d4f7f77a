package geom

import (
	"math"
	"testing"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func TestVec3_Sub(t *testing.T) {
	got := V(10, 10, 1).Sub(V(1, 2, 3))
	if got != V(9, 8, -2) {
		t.Errorf("Sub: got %+v, want {9 8 -2}", got)
	}
}

func TestVec3_Norms(t *testing.T) {
	v := V(3, 4, 12)
	if !floatEquals(v.Norm(), 13) {
		t.Errorf("Norm: got %v, want 13", v.Norm())
	}
	if !floatEquals(v.HorizontalNorm(), 5) {
		t.Errorf("HorizontalNorm: got %v, want 5", v.HorizontalNorm())
	}
}

func TestVec3_Axis(t *testing.T) {
	v := V(1, 2, 3)
	for i, want := range []float64{1, 2, 3} {
		if v.Axis(i) != want {
			t.Errorf("Axis(%d): got %v, want %v", i, v.Axis(i), want)
		}
	}

	w := v.WithAxis(1, -7)
	if w != V(1, -7, 3) {
		t.Errorf("WithAxis: got %+v", w)
	}
	if v.Y != 2 {
		t.Error("WithAxis must not mutate the receiver")
	}
}

func TestDistance(t *testing.T) {
	if d := Distance(V(1, 1, 1), V(1, 1, 1)); d != 0 {
		t.Errorf("Distance to self: got %v", d)
	}
	if d := Distance(V(0, 0, 0), V(0, 3, 4)); !floatEquals(d, 5) {
		t.Errorf("Distance: got %v, want 5", d)
	}
}
