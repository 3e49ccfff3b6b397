package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kikiluvv/highlighter/internal/audio"
	"github.com/kikiluvv/highlighter/internal/clips"
	"github.com/kikiluvv/highlighter/internal/ffmpeg"
	"github.com/kikiluvv/highlighter/internal/highlight"
	"github.com/kikiluvv/highlighter/internal/logging"
	"github.com/kikiluvv/highlighter/internal/progress"
	"github.com/kikiluvv/highlighter/internal/session"
	"github.com/kikiluvv/highlighter/pkg/util"
	"github.com/rs/zerolog"
)

// ErrNoAudio is returned for inputs without an audio stream
var ErrNoAudio = errors.New("input has no audio stream")

// Pipeline orchestrates detection, extraction and assembly.
// Stages run sequentially; one clip is extracted at a time.
type Pipeline struct {
	logger    zerolog.Logger
	config    Config
	tool      MediaTool
	observer  progress.Observer
	assembler *clips.Assembler
}

// New creates a new pipeline instance. A nil observer discards progress.
func New(logger zerolog.Logger, cfg Config, tool MediaTool, observer progress.Observer) *Pipeline {
	if observer == nil {
		observer = progress.Nop{}
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = ffmpeg.DefaultAnalysisFormat().SampleRate
	}

	return &Pipeline{
		logger:    logging.WithComponent(logger, "pipeline"),
		config:    cfg,
		tool:      tool,
		observer:  observer,
		assembler: clips.NewAssembler(logger, tool),
	}
}

// Analyze detects highlights in input and extracts one clip per highlight
// into ws. Clips that fail to extract are skipped and reported in
// Analysis.Failures. The project manifest is saved into the workspace.
func (p *Pipeline) Analyze(ctx context.Context, input string, ws *session.Workspace, opts AnalyzeOptions) (*Analysis, error) {
	if input == "" {
		return nil, fmt.Errorf("input path cannot be empty")
	}
	if err := ws.Err(); err != nil {
		return nil, err
	}
	if opts.ClipDuration <= 0 {
		return nil, fmt.Errorf("%w: clip duration %v", clips.ErrInvalidWindow, opts.ClipDuration)
	}

	logger := logging.WithSession(p.logger, ws.ID.String())
	logger.Info().
		Str("input", input).
		Int("target", opts.TargetCount).
		Dur("clip_duration", opts.ClipDuration).
		Float64("threshold", opts.Threshold).
		Msg("starting analysis pipeline")

	// Stage 1: media metadata
	p.observer.Stage(StageProbe)
	info, err := p.tool.ProbeVideo(ctx, input)
	if err != nil {
		return nil, &StageError{Stage: StageProbe, Err: err}
	}
	if !info.HasAudio {
		return nil, &StageError{Stage: StageProbe, Err: ErrNoAudio}
	}

	logger.Info().
		Dur("duration", info.Duration).
		Str("length", util.FormatClock(info.Duration)).
		Bool("has_video", info.HasVideo).
		Msg("media metadata extracted")

	// Stage 2: stream mono PCM into the energy profile
	p.observer.Stage(StageDecode)
	detector := highlight.NewDetector(logger, opts.detectorConfig())
	acc := audio.NewAccumulator(p.config.SampleRate, detector.Config().Window)
	decoded, err := p.tool.DecodeAudio(ctx, input, ffmpeg.AudioFormat{
		SampleRate: p.config.SampleRate,
		Channels:   1,
	}, acc.Add)
	if err != nil {
		return nil, &StageError{Stage: StageDecode, Err: err}
	}

	logger.Debug().
		Int64("samples", acc.Samples()).
		Dur("decoded", decoded).
		Msg("audio decoded")

	// Stage 3: highlight selection
	p.observer.Stage(StageDetect)
	detection, err := detector.DetectProfile(acc.Profile())
	if err != nil {
		return nil, &StageError{Stage: StageDetect, Err: err}
	}

	project := session.NewProject(ws, input)
	project.Duration = info.Duration
	project.HasVideo = info.HasVideo
	project.Window = detection.Profile.Window
	project.Energy = detection.Profile.Values
	project.Strategy = string(detection.Selection.Strategy)
	project.Highlights = detection.Selection.Timestamps

	// Stage 4: windows and sequential extraction
	p.observer.Stage(StageExtract)
	analysis := &Analysis{Project: project, Detection: detection}
	total := len(detection.Selection.Timestamps)

	for i, ts := range detection.Selection.Timestamps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		window, err := clips.BuildWindow(ts, opts.ClipDuration, info.Duration)
		clip := clips.New(i, ts, window, input)
		clip.Score = detection.Score[i]
		project.Clips = append(project.Clips, clip)

		p.observer.ClipStarted(i, total, clip.Label())
		if err == nil {
			err = p.extract(ctx, ws, input, info.HasVideo, clip)
		}
		p.observer.ClipFinished(i, err)

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			clip.Included = false
			analysis.Failures = append(analysis.Failures, &ExtractionError{Index: i, Window: window, Err: err})
			project.Failures = append(project.Failures, session.Failure{Index: i, Window: window, Error: err.Error()})
			logger.Warn().Int("index", i).Err(err).Msg("skipping highlight")
		}
	}

	if err := project.Save(ws.Path(session.ManifestName)); err != nil {
		return nil, err
	}

	logger.Info().
		Int("highlights", total).
		Int("extracted", analysis.Extracted()).
		Int("failed", len(analysis.Failures)).
		Msg("analysis pipeline complete")

	return analysis, nil
}

func (p *Pipeline) extract(ctx context.Context, ws *session.Workspace, input string, hasVideo bool, clip *clips.Clip) error {
	ext := ".mp4"
	if !hasVideo {
		ext = ".m4a"
	}
	out := ws.ClipPath(clip.Index, ext)

	err := p.tool.ExtractClip(ctx, input, ffmpeg.ClipOptions{
		Start:      clip.Window.Start,
		End:        clip.Window.End,
		Output:     out,
		AudioOnly:  !hasVideo,
		VideoCodec: p.config.VideoCodec,
		AudioCodec: p.config.AudioCodec,
		CRF:        p.config.CRF,
		Preset:     p.config.Preset,
		ProgressFunc: func(pr *ffmpeg.Progress) {
			if pr.Done {
				return
			}
			p.observer.ClipProgress(clip.Index, pr.OutTime(), clip.Duration())
		},
	})
	if err != nil {
		return err
	}

	clip.Path = out
	return nil
}

// Assemble concatenates the included clips of project, in highlight order,
// into one output file and returns its path.
func (p *Pipeline) Assemble(ctx context.Context, project *session.Project, opts AssembleOptions) (string, error) {
	if project == nil {
		return "", fmt.Errorf("project cannot be nil")
	}

	timeline := project.Manager().Timeline()
	if len(timeline) == 0 {
		return "", clips.ErrNoClips
	}

	output := opts.Output
	if output == "" {
		output = p.defaultOutput(project.HasVideo)
	}
	if err := util.EnsureDir(filepath.Dir(output)); err != nil {
		return "", &StageError{Stage: StageAssemble, Err: err}
	}

	p.logger.Info().
		Str("project", project.ID.String()).
		Int("clips", len(timeline)).
		Str("output", output).
		Msg("starting assembly")

	p.observer.Stage(StageAssemble)
	duration := timeline.Duration()

	out, err := p.assembler.Assemble(ctx, timeline, clips.AssembleOptions{
		Output:     output,
		ReEncode:   p.config.ReEncode,
		AudioOnly:  !project.HasVideo,
		VideoCodec: p.config.VideoCodec,
		AudioCodec: p.config.AudioCodec,
		CRF:        p.config.CRF,
		ProgressFunc: func(pr *ffmpeg.Progress) {
			if pr.Done {
				p.observer.Encoding(duration, duration)
				return
			}
			p.observer.Encoding(pr.OutTime(), duration)
		},
	})
	if err != nil {
		return "", &StageError{Stage: StageAssemble, Err: err}
	}

	return out, nil
}

func (p *Pipeline) defaultOutput(hasVideo bool) string {
	ext := ".mp4"
	if !hasVideo {
		ext = ".m4a"
	}
	return filepath.Join(p.config.OutputDir, fmt.Sprintf("highlights_%d%s", time.Now().Unix(), ext))
}
