package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir string `yaml:"work_dir"`
	TempDir string `yaml:"temp_dir"`

	// Highlight detection settings
	Highlight HighlightConfig `yaml:"highlight"`

	// Bounds for user-tunable parameters
	Limits LimitsConfig `yaml:"limits"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Inbox watcher settings
	Watch WatchConfig `yaml:"watch"`
}

type HighlightConfig struct {
	TargetCount   int           `yaml:"target_count"`
	ClipDuration  time.Duration `yaml:"clip_duration"`
	Threshold     float64       `yaml:"threshold"`
	Window        time.Duration `yaml:"window"`
	MinSeparation time.Duration `yaml:"min_separation"`
}

// LimitsConfig bounds the parameters a user may choose
type LimitsConfig struct {
	MinTargetCount int           `yaml:"min_target_count"`
	MaxTargetCount int           `yaml:"max_target_count"`
	MinDuration    time.Duration `yaml:"min_duration"`
	MaxDuration    time.Duration `yaml:"max_duration"`
	MinThreshold   float64       `yaml:"min_threshold"`
	MaxThreshold   float64       `yaml:"max_threshold"`
}

type FFmpegConfig struct {
	BinaryPath  string `yaml:"binary_path"`
	ProbePath   string `yaml:"probe_path"`
	Threads     int    `yaml:"threads"`
	VideoCodec  string `yaml:"video_codec"`
	AudioCodec  string `yaml:"audio_codec"`
	CRF         int    `yaml:"crf"`
	Preset      string `yaml:"preset"`
	SampleRate  int    `yaml:"sample_rate"`
	ReEncodeAll bool   `yaml:"re_encode_final"`
}

type WatchConfig struct {
	Extensions []string      `yaml:"extensions"`
	Settle     time.Duration `yaml:"settle"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the highlight parameters against the configured limits
func (c *Config) Validate() error {
	var errs []error
	h, l := c.Highlight, c.Limits

	if l.MinTargetCount < 1 || l.MinTargetCount > l.MaxTargetCount {
		errs = append(errs, fmt.Errorf("target count limits [%d, %d] are invalid", l.MinTargetCount, l.MaxTargetCount))
	}
	if l.MinDuration <= 0 || l.MinDuration > l.MaxDuration {
		errs = append(errs, fmt.Errorf("duration limits [%v, %v] are invalid", l.MinDuration, l.MaxDuration))
	}
	if l.MinThreshold < 0 || l.MaxThreshold > 1 || l.MinThreshold > l.MaxThreshold {
		errs = append(errs, fmt.Errorf("threshold limits [%v, %v] are invalid", l.MinThreshold, l.MaxThreshold))
	}

	if err := c.CheckParams(h.TargetCount, h.ClipDuration, h.Threshold); err != nil {
		errs = append(errs, err)
	}
	if h.Window <= 0 {
		errs = append(errs, fmt.Errorf("window must be positive, got %v", h.Window))
	}
	if h.MinSeparation < h.Window {
		errs = append(errs, fmt.Errorf("min_separation %v must be at least one window (%v)", h.MinSeparation, h.Window))
	}
	if c.FFmpeg.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("ffmpeg sample_rate must be positive, got %d", c.FFmpeg.SampleRate))
	}

	return errors.Join(errs...)
}

// CheckParams validates user-chosen parameters against the limits
func (c *Config) CheckParams(targetCount int, duration time.Duration, threshold float64) error {
	l := c.Limits
	var errs []error
	if targetCount < l.MinTargetCount || targetCount > l.MaxTargetCount {
		errs = append(errs, fmt.Errorf("target count %d outside [%d, %d]", targetCount, l.MinTargetCount, l.MaxTargetCount))
	}
	if duration < l.MinDuration || duration > l.MaxDuration {
		errs = append(errs, fmt.Errorf("clip duration %v outside [%v, %v]", duration, l.MinDuration, l.MaxDuration))
	}
	if threshold < l.MinThreshold || threshold > l.MaxThreshold {
		errs = append(errs, fmt.Errorf("threshold %v outside [%v, %v]", threshold, l.MinThreshold, l.MaxThreshold))
	}
	return errors.Join(errs...)
}

// Default returns the reference configuration
func Default() *Config {
	return &Config{
		WorkDir: "./work",
		TempDir: "",
		Highlight: HighlightConfig{
			TargetCount:   5,
			ClipDuration:  30 * time.Second,
			Threshold:     0.7,
			Window:        time.Second,
			MinSeparation: 30 * time.Second,
		},
		Limits: LimitsConfig{
			MinTargetCount: 3,
			MaxTargetCount: 10,
			MinDuration:    15 * time.Second,
			MaxDuration:    60 * time.Second,
			MinThreshold:   0.5,
			MaxThreshold:   0.9,
		},
		FFmpeg: FFmpegConfig{
			BinaryPath:  "ffmpeg",
			ProbePath:   "ffprobe",
			Threads:     0,
			VideoCodec:  "libx264",
			AudioCodec:  "aac",
			CRF:         23,
			Preset:      "medium",
			SampleRate:  16000,
			ReEncodeAll: true,
		},
		Watch: WatchConfig{
			Extensions: []string{".mp4", ".avi", ".mov", ".mp3", ".wav"},
			Settle:     2 * time.Second,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./highlighter.yaml",
		"./config.yaml",
		filepath.Join(os.Getenv("HOME"), ".highlighter", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
