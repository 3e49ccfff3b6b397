package clips

import (
	"context"
	"errors"
	"fmt"

	"github.com/kikiluvv/highlighter/internal/ffmpeg"
	"github.com/kikiluvv/highlighter/internal/logging"
	"github.com/rs/zerolog"
)

// ErrNoClips is returned when assembly is requested with nothing included
var ErrNoClips = errors.New("no clips selected for assembly")

// Concatenator joins media files in order
type Concatenator interface {
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
}

// AssembleOptions configures the final encode
type AssembleOptions struct {
	Output       string
	ReEncode     bool
	AudioOnly    bool
	VideoCodec   string
	AudioCodec   string
	CRF          int
	ProgressFunc ffmpeg.ProgressFunc
}

// Assembler concatenates a timeline into one output file
type Assembler struct {
	logger zerolog.Logger
	concat Concatenator
}

// NewAssembler creates an assembler backed by the given concatenator
func NewAssembler(logger zerolog.Logger, concat Concatenator) *Assembler {
	return &Assembler{
		logger: logging.WithComponent(logger, "assembler"),
		concat: concat,
	}
}

// Assemble writes the timeline clips, in the given order, to opts.Output.
// Input clips are not modified.
func (a *Assembler) Assemble(ctx context.Context, timeline Timeline, opts AssembleOptions) (string, error) {
	if len(timeline) == 0 {
		return "", ErrNoClips
	}
	if opts.Output == "" {
		return "", fmt.Errorf("output path is required")
	}

	inputs := make([]string, 0, len(timeline))
	for _, c := range timeline {
		if !c.Materialized() {
			return "", fmt.Errorf("clip %s has no extracted segment", c.ID)
		}
		inputs = append(inputs, c.Path)
	}

	a.logger.Info().
		Int("clips", len(timeline)).
		Dur("duration", timeline.Duration()).
		Str("output", opts.Output).
		Msg("assembling highlights")

	err := a.concat.Concat(ctx, ffmpeg.ConcatOptions{
		Inputs:       inputs,
		Output:       opts.Output,
		ReEncode:     opts.ReEncode,
		AudioOnly:    opts.AudioOnly,
		VideoCodec:   opts.VideoCodec,
		AudioCodec:   opts.AudioCodec,
		CRF:          opts.CRF,
		ProgressFunc: opts.ProgressFunc,
	})
	if err != nil {
		return "", fmt.Errorf("assembly failed: %w", err)
	}

	a.logger.Info().Str("output", opts.Output).Msg("assembly complete")
	return opts.Output, nil
}
