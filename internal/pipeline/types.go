package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/kikiluvv/highlighter/internal/clips"
	"github.com/kikiluvv/highlighter/internal/config"
	"github.com/kikiluvv/highlighter/internal/ffmpeg"
	"github.com/kikiluvv/highlighter/internal/highlight"
	"github.com/kikiluvv/highlighter/internal/session"
	"github.com/kikiluvv/highlighter/pkg/util"
)

// MediaTool decodes, cuts and joins media. *ffmpeg.Executor implements it.
type MediaTool interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
	DecodeAudio(ctx context.Context, path string, format ffmpeg.AudioFormat, sink ffmpeg.SampleSink) (time.Duration, error)
	ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
}

// Stage names used in StageError and progress events
const (
	StageProbe    = "probe"
	StageDecode   = "decode"
	StageDetect   = "detect"
	StageExtract  = "extract"
	StageAssemble = "assemble"
)

// StageError reports a collaborator failure that aborted a run
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ExtractionError reports one highlight whose clip could not be extracted.
// The run continues without it.
type ExtractionError struct {
	Index  int
	Window clips.Window
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("clip %d [%s - %s]: %v",
		e.Index+1, util.FormatClock(e.Window.Start), util.FormatClock(e.Window.End), e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// AnalyzeOptions are the user-tunable detection parameters
type AnalyzeOptions struct {
	TargetCount   int
	ClipDuration  time.Duration
	Threshold     float64
	Window        time.Duration
	MinSeparation time.Duration
}

// DefaultAnalyzeOptions takes the detection parameters from app config
func DefaultAnalyzeOptions(cfg *config.Config) AnalyzeOptions {
	return AnalyzeOptions{
		TargetCount:   cfg.Highlight.TargetCount,
		ClipDuration:  cfg.Highlight.ClipDuration,
		Threshold:     cfg.Highlight.Threshold,
		Window:        cfg.Highlight.Window,
		MinSeparation: cfg.Highlight.MinSeparation,
	}
}

func (o AnalyzeOptions) detectorConfig() highlight.DetectorConfig {
	return highlight.DetectorConfig{
		Window:        o.Window,
		TargetCount:   o.TargetCount,
		Threshold:     o.Threshold,
		MinSeparation: o.MinSeparation,
	}
}

// Analysis is the outcome of one analyze run
type Analysis struct {
	Project   *session.Project
	Detection *highlight.Detection
	// Failures lists skipped highlights in highlight order
	Failures []*ExtractionError
}

// Extracted returns the number of clips that were materialized
func (a *Analysis) Extracted() int {
	n := 0
	for _, c := range a.Project.Clips {
		if c.Materialized() {
			n++
		}
	}
	return n
}

// AssembleOptions configures the final encode
type AssembleOptions struct {
	// Output defaults to highlights_<unix> in Config.OutputDir
	Output string
}

// Config holds pipeline-specific configuration
type Config struct {
	OutputDir  string
	SampleRate int
	VideoCodec string
	AudioCodec string
	CRF        int
	Preset     string
	// ReEncode re-encodes the final output instead of stream copying
	ReEncode bool
}

// ConfigFrom derives pipeline settings from app config
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		OutputDir:  cfg.WorkDir,
		SampleRate: cfg.FFmpeg.SampleRate,
		VideoCodec: cfg.FFmpeg.VideoCodec,
		AudioCodec: cfg.FFmpeg.AudioCodec,
		CRF:        cfg.FFmpeg.CRF,
		Preset:     cfg.FFmpeg.Preset,
		ReEncode:   cfg.FFmpeg.ReEncodeAll,
	}
}
