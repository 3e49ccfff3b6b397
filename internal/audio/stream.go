package audio

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Accumulator builds a Profile from samples that arrive in chunks. Only the
// running sum of the current window is kept, so memory grows with the
// number of windows rather than the number of samples.
type Accumulator struct {
	window  time.Duration
	frame   int
	sumSq   float64
	filled  int
	samples int64
	values  []float64
}

// NewAccumulator creates an accumulator for mono samples at sampleRate.
// A non-positive window falls back to DefaultWindow.
func NewAccumulator(sampleRate int, window time.Duration) *Accumulator {
	if window <= 0 {
		window = DefaultWindow
	}
	if sampleRate <= 0 {
		sampleRate = 1
	}
	return &Accumulator{
		window: window,
		frame:  samplesPerWindow(sampleRate, window),
	}
}

// Add feeds the next chunk of samples. The slice is not retained.
func (a *Accumulator) Add(samples []float64) {
	a.samples += int64(len(samples))
	for len(samples) > 0 {
		n := min(a.frame-a.filled, len(samples))
		chunk := samples[:n]
		a.sumSq += floats.Dot(chunk, chunk)
		a.filled += n
		samples = samples[n:]

		if a.filled == a.frame {
			a.flush()
		}
	}
}

// Samples returns how many samples have been added
func (a *Accumulator) Samples() int64 {
	return a.samples
}

// Profile returns the profile of everything added so far. A partly filled
// window becomes the short last value.
func (a *Accumulator) Profile() Profile {
	values := make([]float64, len(a.values), len(a.values)+1)
	copy(values, a.values)
	if a.filled > 0 {
		values = append(values, math.Sqrt(a.sumSq/float64(a.filled)))
	}
	return Profile{Values: values, Window: a.window}
}

func (a *Accumulator) flush() {
	a.values = append(a.values, math.Sqrt(a.sumSq/float64(a.filled)))
	a.sumSq = 0
	a.filled = 0
}
