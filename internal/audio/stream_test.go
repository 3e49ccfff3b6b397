package audio

import (
	"testing"
	"time"

	"gonum.org/v1/gonum/floats"
)

func TestAccumulatorMatchesComputeProfile(t *testing.T) {
	samples := append(sine(1000, 3.7, 0.2), sine(1000, 2, 0.9)...)
	want := ComputeProfile(Waveform{Samples: samples, SampleRate: 1000}, time.Second)

	tests := []struct {
		name  string
		chunk int
	}{
		{"one sample at a time", 1},
		{"chunks smaller than a window", 333},
		{"chunks spanning windows", 2500},
		{"everything at once", len(samples)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewAccumulator(1000, time.Second)
			for start := 0; start < len(samples); start += tt.chunk {
				acc.Add(samples[start:min(start+tt.chunk, len(samples))])
			}

			got := acc.Profile()
			if got.Len() != want.Len() {
				t.Fatalf("expected %d windows, got %d", want.Len(), got.Len())
			}
			if got.Window != want.Window {
				t.Errorf("window = %v, want %v", got.Window, want.Window)
			}
			if !floats.EqualApprox(got.Values, want.Values, 1e-9) {
				t.Errorf("values = %v, want %v", got.Values, want.Values)
			}
			if acc.Samples() != int64(len(samples)) {
				t.Errorf("samples = %d, want %d", acc.Samples(), len(samples))
			}
		})
	}
}

func TestAccumulatorEmpty(t *testing.T) {
	acc := NewAccumulator(16000, 0)
	p := acc.Profile()
	if !p.Empty() {
		t.Errorf("expected empty profile, got %d windows", p.Len())
	}
	if p.Window != DefaultWindow {
		t.Errorf("expected default window, got %v", p.Window)
	}
}

func TestAccumulatorProfileIsSnapshot(t *testing.T) {
	acc := NewAccumulator(4, time.Second)
	acc.Add([]float64{1, 1, 1, 1, 2, 2})

	first := acc.Profile()
	if first.Len() != 2 || first.Values[1] != 2 {
		t.Fatalf("unexpected profile %v", first.Values)
	}

	acc.Add([]float64{2, 2})
	second := acc.Profile()
	if second.Len() != 2 || first.Values[1] != 2 || second.Values[1] != 2 {
		t.Errorf("profiles should not share state: %v / %v", first.Values, second.Values)
	}
}
