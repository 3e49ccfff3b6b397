package highlight

import (
	"fmt"
	"time"

	"github.com/kikiluvv/highlighter/internal/audio"
	"github.com/kikiluvv/highlighter/internal/logging"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrEmptyInput is returned when the waveform has nothing to analyze
var ErrEmptyInput = fmt.Errorf("no audio to analyze: %w", audio.ErrEmptyWaveform)

// DetectorConfig configures highlight detection behavior
type DetectorConfig struct {
	Window        time.Duration
	TargetCount   int
	Threshold     float64
	MinSeparation time.Duration
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Window:        audio.DefaultWindow,
		TargetCount:   5,
		Threshold:     0.7,
		MinSeparation: DefaultMinSeparation,
	}
}

// Detection is the result of running the detector on one waveform
type Detection struct {
	Profile   audio.Profile
	Selection Selection
	// Score holds the normalized energy at each selected index
	Score []float64
}

// Detector finds loud passages in a waveform
type Detector struct {
	logger zerolog.Logger
	config DetectorConfig
}

// NewDetector creates a detector
func NewDetector(logger zerolog.Logger, cfg DetectorConfig) *Detector {
	if cfg.Window <= 0 {
		cfg.Window = audio.DefaultWindow
	}
	if cfg.MinSeparation <= 0 {
		cfg.MinSeparation = DefaultMinSeparation
	}
	return &Detector{
		logger: logging.WithComponent(logger, "highlight-detector"),
		config: cfg,
	}
}

// Config returns the detector configuration
func (d *Detector) Config() DetectorConfig {
	return d.config
}

// Detect profiles the waveform and selects highlight timestamps
func (d *Detector) Detect(w audio.Waveform) (*Detection, error) {
	profile := d.Profile(w)
	if profile.Empty() {
		return nil, ErrEmptyInput
	}
	return d.DetectProfile(profile)
}

// Profile computes the energy profile with the configured window
func (d *Detector) Profile(w audio.Waveform) audio.Profile {
	profile := audio.ComputeProfile(w, d.config.Window)

	d.logger.Debug().
		Int("samples", len(w.Samples)).
		Int("sample_rate", w.SampleRate).
		Dur("window", d.config.Window).
		Int("windows", profile.Len()).
		Msg("energy profile computed")

	return profile
}

// DetectProfile runs selection on an already computed profile
func (d *Detector) DetectProfile(profile audio.Profile) (*Detection, error) {
	if profile.Empty() {
		return nil, ErrEmptyInput
	}

	d.logger.Info().
		Int("windows", profile.Len()).
		Float64("mean_energy", stat.Mean(profile.Values, nil)).
		Float64("stddev_energy", stat.StdDev(profile.Values, nil)).
		Float64("max_energy", floats.Max(profile.Values)).
		Msg("starting highlight selection")

	sel, err := Select(profile, SelectOptions{
		TargetCount:   d.config.TargetCount,
		Threshold:     d.config.Threshold,
		MinSeparation: d.config.MinSeparation,
	})
	if err != nil {
		return nil, fmt.Errorf("highlight selection failed: %w", err)
	}

	if sel.Degenerate {
		d.logger.Warn().Msg("energy profile is flat, using loudest-window fallback")
	}

	normalized, _ := profile.Normalized()
	scores := make([]float64, sel.Len())
	for i, idx := range sel.Indices {
		scores[i] = normalized[idx]
	}

	d.logger.Info().
		Int("highlights", sel.Len()).
		Int("target", d.config.TargetCount).
		Str("strategy", string(sel.Strategy)).
		Msg("highlight selection complete")

	return &Detection{
		Profile:   profile,
		Selection: sel,
		Score:     scores,
	}, nil
}
