package highlight

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kikiluvv/highlighter/internal/audio"
)

var (
	ErrInvalidTarget    = errors.New("target count must be at least 1")
	ErrInvalidThreshold = errors.New("threshold must be within [0, 1]")
)

// Strategy records which selection pass produced the highlights
type Strategy string

const (
	StrategyNone      Strategy = "none"
	StrategyThreshold Strategy = "threshold"
	StrategyFallback  Strategy = "fallback"
)

// DefaultMinSeparation is the minimum spacing between threshold peaks
const DefaultMinSeparation = 30 * time.Second

// SelectOptions configures highlight selection
type SelectOptions struct {
	TargetCount   int
	Threshold     float64
	MinSeparation time.Duration
}

// Selection is the ordered output of the selector
type Selection struct {
	// Indices into the energy profile, strictly ascending
	Indices []int
	// Timestamps are Indices scaled by the profile window
	Timestamps []time.Duration
	Strategy   Strategy
	// Degenerate is set when the profile had no dynamic range
	Degenerate bool
}

// Len returns the number of selected highlights
func (s Selection) Len() int {
	return len(s.Indices)
}

// Select picks up to TargetCount highlight positions from the profile.
//
// Peaks above the normalized threshold are accepted left to right, skipping
// any that fall within MinSeparation of the last accepted peak. If that pass
// under-yields, or the profile is flat, it is discarded and the TargetCount
// loudest windows are taken instead, ties broken by earliest index.
func Select(profile audio.Profile, opts SelectOptions) (Selection, error) {
	if opts.TargetCount < 1 {
		return Selection{}, ErrInvalidTarget
	}
	if math.IsNaN(opts.Threshold) || opts.Threshold < 0 || opts.Threshold > 1 {
		return Selection{}, fmt.Errorf("%w: %v", ErrInvalidThreshold, opts.Threshold)
	}
	if profile.Empty() {
		return Selection{Strategy: StrategyNone}, nil
	}

	normalized, ok := profile.Normalized()

	var (
		indices  []int
		strategy Strategy
	)
	if ok {
		indices = thresholdPeaks(normalized, opts.Threshold, separationUnits(opts.MinSeparation, profile.Window))
	}
	if !ok || len(indices) < opts.TargetCount {
		indices = loudest(profile.Values, opts.TargetCount)
		strategy = StrategyFallback
	} else {
		strategy = StrategyThreshold
	}

	if len(indices) > opts.TargetCount {
		indices = indices[:opts.TargetCount]
	}
	sort.Ints(indices)

	timestamps := make([]time.Duration, len(indices))
	for i, idx := range indices {
		timestamps[i] = profile.Offset(idx)
	}

	return Selection{
		Indices:    indices,
		Timestamps: timestamps,
		Strategy:   strategy,
		Degenerate: !ok,
	}, nil
}

// thresholdPeaks scans left to right so earlier peaks win inside a cluster
func thresholdPeaks(normalized []float64, threshold float64, separation int) []int {
	var peaks []int
	for i, v := range normalized {
		if v <= threshold {
			continue
		}
		if len(peaks) == 0 || i-peaks[len(peaks)-1] > separation {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// loudest returns the indices of the k highest raw values with no spacing rule
func loudest(values []float64, k int) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})
	if k < len(order) {
		order = order[:k]
	}
	return order
}

// separationUnits converts a minimum spacing to profile index units
func separationUnits(separation, window time.Duration) int {
	if separation <= 0 {
		separation = DefaultMinSeparation
	}
	if window <= 0 {
		window = audio.DefaultWindow
	}
	units := int((separation + window - 1) / window)
	return max(units, 1)
}
