package structure

import (
	"math"
	"math/rand"
	"testing"
)

func TestRollingWindowTracksExtremes(t *testing.T) {
	rw := mustDetector(t, TypeRollingWindow, Params{"window": 3}, nil)

	highs := []float64{10, 12, 11, 9, 8, 14}
	lows := []float64{5, 7, 6, 4, 3, 9}
	type want struct {
		hi    float64
		hiIdx int
		lo    float64
		loIdx int
		full  bool
	}
	wants := []want{
		{10, 0, 5, 0, false},
		{12, 1, 5, 0, false},
		{12, 1, 5, 0, true},
		{12, 1, 4, 3, true},
		{11, 2, 3, 4, true},
		{14, 5, 3, 4, true},
	}

	for i := range highs {
		rw.Update(mkBar(i, highs[i], lows[i]))
		w := wants[i]
		if got := floatOut(t, rw, "highest_high"); got != w.hi {
			t.Errorf("bar %d: highest_high = %v, want %v", i, got, w.hi)
		}
		if got := intOut(t, rw, "highest_idx"); got != w.hiIdx {
			t.Errorf("bar %d: highest_idx = %d, want %d", i, got, w.hiIdx)
		}
		if got := floatOut(t, rw, "lowest_low"); got != w.lo {
			t.Errorf("bar %d: lowest_low = %v, want %v", i, got, w.lo)
		}
		if got := intOut(t, rw, "lowest_idx"); got != w.loIdx {
			t.Errorf("bar %d: lowest_idx = %d, want %d", i, got, w.loIdx)
		}
		if got := boolOut(t, rw, "full"); got != w.full {
			t.Errorf("bar %d: full = %v, want %v", i, got, w.full)
		}
		if got := floatOut(t, rw, "range"); got != w.hi-w.lo {
			t.Errorf("bar %d: range = %v, want %v", i, got, w.hi-w.lo)
		}
	}
	if got := intOut(t, rw, "bars_seen"); got != 6 {
		t.Errorf("bars_seen = %d, want 6", got)
	}
}

func TestRollingWindowEmpty(t *testing.T) {
	rw := mustDetector(t, TypeRollingWindow, Params{"window": 5}, nil)
	if got := floatOut(t, rw, "highest_high"); !math.IsNaN(got) {
		t.Errorf("highest_high = %v before any bar, want NaN", got)
	}
	if got := intOut(t, rw, "lowest_idx"); got != -1 {
		t.Errorf("lowest_idx = %d before any bar, want -1", got)
	}
	if boolOut(t, rw, "full") {
		t.Error("full = true before any bar")
	}
}

func TestRollingWindowMatchesBruteForce(t *testing.T) {
	const windowSize = 7
	rw := mustDetector(t, TypeRollingWindow, Params{"window": windowSize}, nil)
	rng := rand.New(rand.NewSource(42))

	var highs, lows []float64
	for i := 0; i < 500; i++ {
		h := 100 + rng.Float64()*50
		l := h - 1 - rng.Float64()*10
		highs = append(highs, h)
		lows = append(lows, l)
		rw.Update(mkBar(i, h, l))

		start := i - windowSize + 1
		if start < 0 {
			start = 0
		}
		wantHi, wantLo := math.Inf(-1), math.Inf(1)
		for j := start; j <= i; j++ {
			wantHi = math.Max(wantHi, highs[j])
			wantLo = math.Min(wantLo, lows[j])
		}
		if got := floatOut(t, rw, "highest_high"); got != wantHi {
			t.Fatalf("bar %d: highest_high = %v, want %v", i, got, wantHi)
		}
		if got := floatOut(t, rw, "lowest_low"); got != wantLo {
			t.Fatalf("bar %d: lowest_low = %v, want %v", i, got, wantLo)
		}
	}
}

func TestRollingWindowValidation(t *testing.T) {
	if _, err := newRollingWindow("rw", Params{"window": 0}, nil); err == nil {
		t.Error("window = 0: expected a build error")
	}
	if _, err := newRollingWindow("rw", Params{}, nil); err == nil {
		t.Error("missing window: expected a build error")
	}
}
