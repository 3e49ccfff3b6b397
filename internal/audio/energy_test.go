package audio

import (
	"math"
	"testing"
	"time"
)

func sine(sampleRate int, seconds float64, amplitude float64) []float64 {
	n := int(float64(sampleRate) * seconds)
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate))
	}
	return out
}

func TestComputeProfileLength(t *testing.T) {
	tests := []struct {
		name    string
		samples int
		rate    int
		window  time.Duration
		want    int
	}{
		{"exact multiple", 8000, 1000, time.Second, 8},
		{"short tail", 8001, 1000, time.Second, 9},
		{"shorter than one window", 10, 1000, time.Second, 1},
		{"half second window", 3000, 1000, 500 * time.Millisecond, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Waveform{Samples: make([]float64, tt.samples), SampleRate: tt.rate}
			p := ComputeProfile(w, tt.window)
			if p.Len() != tt.want {
				t.Errorf("expected %d windows, got %d", tt.want, p.Len())
			}
			for i, v := range p.Values {
				if v < 0 {
					t.Errorf("window %d has negative energy %f", i, v)
				}
			}
		})
	}
}

func TestComputeProfileRMS(t *testing.T) {
	// constant amplitude: RMS equals |amplitude|
	samples := []float64{0.5, -0.5, 0.5, -0.5, 2, 2, 2, 2, 3}
	p := ComputeProfile(Waveform{Samples: samples, SampleRate: 4}, time.Second)

	want := []float64{0.5, 2, 3}
	if p.Len() != len(want) {
		t.Fatalf("expected %d windows, got %d", len(want), p.Len())
	}
	for i := range want {
		if math.Abs(p.Values[i]-want[i]) > 1e-9 {
			t.Errorf("window %d: expected %f, got %f", i, want[i], p.Values[i])
		}
	}
}

func TestComputeProfileSine(t *testing.T) {
	p := ComputeProfile(Waveform{Samples: sine(8000, 3, 1.0), SampleRate: 8000}, time.Second)
	for i, v := range p.Values {
		if math.Abs(v-1/math.Sqrt2) > 1e-3 {
			t.Errorf("window %d: expected ~0.7071, got %f", i, v)
		}
	}
}

func TestComputeProfileEmpty(t *testing.T) {
	p := ComputeProfile(Waveform{SampleRate: 16000}, time.Second)
	if !p.Empty() {
		t.Errorf("expected empty profile, got %d windows", p.Len())
	}
	if p.Window != time.Second {
		t.Errorf("expected window to be preserved, got %v", p.Window)
	}
}

func TestComputeProfileDeterministic(t *testing.T) {
	w := Waveform{Samples: sine(1000, 5.5, 0.3), SampleRate: 1000}
	a := ComputeProfile(w, time.Second)
	b := ComputeProfile(w, time.Second)
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			t.Fatalf("profiles differ at %d", i)
		}
	}
}

func TestProfileOffset(t *testing.T) {
	p := Profile{Values: make([]float64, 10), Window: 500 * time.Millisecond}
	if got := p.Offset(4); got != 2*time.Second {
		t.Errorf("expected 2s, got %v", got)
	}
}

func TestNormalized(t *testing.T) {
	p := Profile{Values: []float64{2, 4, 6}, Window: time.Second}
	norm, ok := p.Normalized()
	if !ok {
		t.Fatal("expected normalization to succeed")
	}
	want := []float64{0, 0.5, 1}
	for i := range want {
		if math.Abs(norm[i]-want[i]) > 1e-12 {
			t.Errorf("index %d: expected %f, got %f", i, want[i], norm[i])
		}
	}
	if p.Values[0] != 2 {
		t.Error("normalization mutated the profile")
	}
}

func TestNormalizedDegenerate(t *testing.T) {
	p := Profile{Values: []float64{3, 3, 3}, Window: time.Second}
	norm, ok := p.Normalized()
	if ok {
		t.Error("expected degenerate normalization to report !ok")
	}
	for i, v := range norm {
		if v != 0 {
			t.Errorf("index %d: expected 0, got %f", i, v)
		}
	}
}
