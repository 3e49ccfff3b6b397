package highlight

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/kikiluvv/highlighter/internal/audio"
)

func profileOf(values ...float64) audio.Profile {
	return audio.Profile{Values: values, Window: time.Second}
}

func repeatPattern(pattern []float64, times int) []float64 {
	out := make([]float64, 0, len(pattern)*times)
	for i := 0; i < times; i++ {
		out = append(out, pattern...)
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSelectSeparatedPeaks(t *testing.T) {
	p := profileOf(repeatPattern([]float64{0.1, 0.1, 0.9, 0.1}, 30)...)

	sel, err := Select(p, SelectOptions{TargetCount: 2, Threshold: 0.7, MinSeparation: 30 * time.Second})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if sel.Strategy != StrategyThreshold {
		t.Errorf("expected threshold strategy, got %s", sel.Strategy)
	}
	if !equalInts(sel.Indices, []int{2, 34}) {
		t.Errorf("expected [2 34], got %v", sel.Indices)
	}
	if sel.Timestamps[1]-sel.Timestamps[0] < 30*time.Second {
		t.Errorf("highlights too close: %v", sel.Timestamps)
	}
}

func TestSelectPrefersEarlierPeakInCluster(t *testing.T) {
	values := make([]float64, 100)
	values[10] = 0.8
	values[12] = 1.0 // louder but within separation of index 10
	values[60] = 0.9

	sel, err := Select(profileOf(values...), SelectOptions{TargetCount: 2, Threshold: 0.5, MinSeparation: 30 * time.Second})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if !equalInts(sel.Indices, []int{10, 60}) {
		t.Errorf("expected [10 60], got %v", sel.Indices)
	}
}

func TestSelectFallbackWhenThresholdUnderYields(t *testing.T) {
	values := []float64{1, 5, 2, 9, 3, 8, 4}

	sel, err := Select(profileOf(values...), SelectOptions{TargetCount: 3, Threshold: 1.0})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if sel.Strategy != StrategyFallback {
		t.Errorf("expected fallback strategy, got %s", sel.Strategy)
	}
	// loudest three are 9 (3), 8 (5), 5 (1); returned ascending
	if !equalInts(sel.Indices, []int{1, 3, 5}) {
		t.Errorf("expected [1 3 5], got %v", sel.Indices)
	}
}

func TestSelectFallbackIgnoresSeparation(t *testing.T) {
	values := make([]float64, 50)
	values[20] = 10
	values[21] = 9
	values[22] = 8

	sel, err := Select(profileOf(values...), SelectOptions{TargetCount: 3, Threshold: 0.7, MinSeparation: 30 * time.Second})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if sel.Strategy != StrategyFallback {
		t.Errorf("expected fallback strategy, got %s", sel.Strategy)
	}
	if !equalInts(sel.Indices, []int{20, 21, 22}) {
		t.Errorf("expected [20 21 22], got %v", sel.Indices)
	}
}

func TestSelectFlatProfile(t *testing.T) {
	sel, err := Select(profileOf(0.4, 0.4, 0.4, 0.4, 0.4, 0.4), SelectOptions{TargetCount: 3, Threshold: 0.7})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if !sel.Degenerate {
		t.Error("expected degenerate flag for flat profile")
	}
	if sel.Strategy != StrategyFallback {
		t.Errorf("expected fallback strategy, got %s", sel.Strategy)
	}
	if !equalInts(sel.Indices, []int{0, 1, 2}) {
		t.Errorf("expected first three indices, got %v", sel.Indices)
	}
}

func TestSelectSilence(t *testing.T) {
	sel, err := Select(profileOf(make([]float64, 10)...), SelectOptions{TargetCount: 4, Threshold: 0.5})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if !equalInts(sel.Indices, []int{0, 1, 2, 3}) {
		t.Errorf("expected [0 1 2 3], got %v", sel.Indices)
	}
}

func TestSelectTargetExceedsProfile(t *testing.T) {
	sel, err := Select(profileOf(3, 1, 2), SelectOptions{TargetCount: 10, Threshold: 0.7})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if !equalInts(sel.Indices, []int{0, 1, 2}) {
		t.Errorf("expected every index once, got %v", sel.Indices)
	}
}

func TestSelectEmptyProfile(t *testing.T) {
	sel, err := Select(profileOf(), SelectOptions{TargetCount: 3, Threshold: 0.7})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if sel.Len() != 0 || sel.Strategy != StrategyNone {
		t.Errorf("expected empty selection, got %+v", sel)
	}
}

func TestSelectScalesTimestampsByWindow(t *testing.T) {
	values := make([]float64, 200)
	values[10] = 1
	values[150] = 1
	p := audio.Profile{Values: values, Window: 500 * time.Millisecond}

	sel, err := Select(p, SelectOptions{TargetCount: 2, Threshold: 0.5, MinSeparation: 30 * time.Second})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	want := []time.Duration{5 * time.Second, 75 * time.Second}
	for i := range want {
		if sel.Timestamps[i] != want[i] {
			t.Errorf("timestamp %d: expected %v, got %v", i, want[i], sel.Timestamps[i])
		}
	}
}

func TestSelectSeparationScalesWithWindow(t *testing.T) {
	// 30s at 500ms windows is 60 units, so index 40 is too close to 0
	values := make([]float64, 200)
	values[0] = 1
	values[40] = 1
	values[100] = 1
	p := audio.Profile{Values: values, Window: 500 * time.Millisecond}

	sel, err := Select(p, SelectOptions{TargetCount: 2, Threshold: 0.5, MinSeparation: 30 * time.Second})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if !equalInts(sel.Indices, []int{0, 100}) {
		t.Errorf("expected [0 100], got %v", sel.Indices)
	}
}

func TestSelectInvalidOptions(t *testing.T) {
	p := profileOf(1, 2, 3)

	if _, err := Select(p, SelectOptions{TargetCount: 0, Threshold: 0.5}); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("expected ErrInvalidTarget, got %v", err)
	}
	if _, err := Select(p, SelectOptions{TargetCount: 1, Threshold: 1.5}); !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("expected ErrInvalidThreshold, got %v", err)
	}
	if _, err := Select(p, SelectOptions{TargetCount: 1, Threshold: -0.1}); !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("expected ErrInvalidThreshold, got %v", err)
	}
}

func TestSelectProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 500; iter++ {
		n := 1 + rng.Intn(300)
		values := make([]float64, n)
		for i := range values {
			values[i] = rng.Float64() * 100
		}
		target := 1 + rng.Intn(12)
		threshold := rng.Float64()

		sel, err := Select(profileOf(values...), SelectOptions{
			TargetCount:   target,
			Threshold:     threshold,
			MinSeparation: 30 * time.Second,
		})
		if err != nil {
			t.Fatalf("iteration %d: %v", iter, err)
		}

		want := min(target, n)
		if sel.Len() != want {
			t.Fatalf("iteration %d: expected %d highlights, got %d", iter, want, sel.Len())
		}
		for i := 1; i < sel.Len(); i++ {
			if sel.Indices[i] <= sel.Indices[i-1] {
				t.Fatalf("iteration %d: not strictly ascending: %v", iter, sel.Indices)
			}
			if sel.Strategy == StrategyThreshold && sel.Indices[i]-sel.Indices[i-1] <= 30 {
				t.Fatalf("iteration %d: threshold peaks too close: %v", iter, sel.Indices)
			}
		}
		for _, idx := range sel.Indices {
			if idx < 0 || idx >= n {
				t.Fatalf("iteration %d: index %d out of range", iter, idx)
			}
		}
	}
}
