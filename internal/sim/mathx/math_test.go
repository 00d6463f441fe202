package mathx

import (
	"math"
	"testing"
)

func TestFloorDivMod(t *testing.T) {
	if got := FloorDiv(-1, 16); got != -1 {
		t.Fatalf("FloorDiv(-1,16)=%d", got)
	}
	if got := Mod(-1, 16); got != 15 {
		t.Fatalf("Mod(-1,16)=%d", got)
	}
	if got := FloorDiv(31, 16); got != 1 {
		t.Fatalf("FloorDiv(31,16)=%d", got)
	}
}

func TestFloorInt(t *testing.T) {
	if got := FloorInt(-0.5); got != -1 {
		t.Fatalf("FloorInt(-0.5)=%d", got)
	}
	if got := FloorInt(63.999); got != 63 {
		t.Fatalf("FloorInt(63.999)=%d", got)
	}
}

func TestFinite(t *testing.T) {
	if !Finite(1, 2, 3) {
		t.Fatalf("expected finite")
	}
	if Finite(1, math.NaN()) || Finite(math.Inf(1)) {
		t.Fatalf("expected non-finite")
	}
}

func TestHash3Deterministic(t *testing.T) {
	if Hash3(7, 1, 2, 3) != Hash3(7, 1, 2, 3) {
		t.Fatalf("hash not deterministic")
	}
	if Hash3(7, 1, 2, 3) == Hash3(8, 1, 2, 3) {
		t.Fatalf("seed ignored")
	}
}
