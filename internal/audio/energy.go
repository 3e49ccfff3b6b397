package audio

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// DefaultWindow is the profiling window used when none is configured
const DefaultWindow = time.Second

// ErrEmptyWaveform marks input with no samples to profile
var ErrEmptyWaveform = errors.New("waveform contains no samples")

// Waveform is a mono sequence of amplitude samples at a known sample rate.
// The core only reads it.
type Waveform struct {
	Samples    []float64
	SampleRate int
}

// Profile holds one RMS value per fixed-size window of source audio.
// Index i starts at i*Window.
type Profile struct {
	Values []float64
	Window time.Duration
}

// Len returns the number of windows in the profile
func (p Profile) Len() int {
	return len(p.Values)
}

// Empty reports whether the profile has no windows
func (p Profile) Empty() bool {
	return len(p.Values) == 0
}

// Offset converts a window index to a time offset into the source media
func (p Profile) Offset(index int) time.Duration {
	return time.Duration(index) * p.Window
}

// Normalized rescales the profile to [0, 1] using (v-min)/(max-min).
// When every value is equal the scale is undefined: the result is all zeros
// and ok is false.
func (p Profile) Normalized() (normalized []float64, ok bool) {
	normalized = make([]float64, len(p.Values))
	if len(p.Values) == 0 {
		return normalized, false
	}

	lo := floats.Min(p.Values)
	hi := floats.Max(p.Values)
	if hi == lo {
		return normalized, false
	}

	copy(normalized, p.Values)
	floats.AddConst(-lo, normalized)
	floats.Scale(1/(hi-lo), normalized)
	return normalized, true
}

// ComputeProfile partitions the waveform into consecutive non-overlapping
// windows and returns the RMS amplitude of each. The last window may be short.
// An empty waveform yields an empty profile.
func ComputeProfile(w Waveform, window time.Duration) Profile {
	if window <= 0 {
		window = DefaultWindow
	}
	profile := Profile{Window: window}
	if len(w.Samples) == 0 || w.SampleRate <= 0 {
		return profile
	}

	frame := samplesPerWindow(w.SampleRate, window)
	count := (len(w.Samples) + frame - 1) / frame
	profile.Values = make([]float64, count)

	for i := 0; i < count; i++ {
		start := i * frame
		end := min(start+frame, len(w.Samples))
		profile.Values[i] = rms(w.Samples[start:end])
	}

	return profile
}

func samplesPerWindow(sampleRate int, window time.Duration) int {
	n := int(math.Round(float64(sampleRate) * window.Seconds()))
	if n < 1 {
		return 1
	}
	return n
}

// rms = sqrt(mean(x^2)) = ||x||2 / sqrt(n)
func rms(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	return floats.Norm(frame, 2) / math.Sqrt(float64(len(frame)))
}
