package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConcatOptions defines concatenation parameters
type ConcatOptions struct {
	Inputs       []string
	Output       string
	ReEncode     bool
	AudioOnly    bool
	VideoCodec   string
	AudioCodec   string
	CRF          int
	ProgressFunc ProgressFunc
}

// Concat merges multiple media files into one, in input order
func (e *Executor) Concat(ctx context.Context, opts ConcatOptions) error {
	if len(opts.Inputs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Info().
		Int("inputs", len(opts.Inputs)).
		Str("output", opts.Output).
		Bool("re_encode", opts.ReEncode).
		Msg("concatenating clips")

	// list file lives next to the output so it shares the session lifecycle
	concatFile, err := writeConcatList(filepath.Dir(opts.Output), opts.Inputs)
	if err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}
	defer os.Remove(concatFile)

	runOpts := RunOptions{
		Args:            concatArgs(concatFile, opts),
		ProgressHandler: opts.ProgressFunc,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("concatenating")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("concat failed: %w", err)
	}
	return nil
}

func concatArgs(listFile string, opts ConcatOptions) []string {
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
	}

	if opts.ReEncode {
		if opts.AudioOnly {
			args = append(args, "-vn")
		} else {
			codec := opts.VideoCodec
			if codec == "" {
				codec = DefaultVideoCodec
			}
			args = append(args, "-c:v", codec)

			crf := opts.CRF
			if crf == 0 {
				crf = DefaultCRF
			}
			args = append(args, "-crf", fmt.Sprintf("%d", crf))
		}

		audioCodec := opts.AudioCodec
		if audioCodec == "" {
			audioCodec = DefaultAudioCodec
		}
		args = append(args, "-c:a", audioCodec)
	} else {
		args = append(args, "-c", "copy")
	}

	return append(args, opts.Output)
}

// writeConcatList generates the file list for the ffmpeg concat demuxer
func writeConcatList(dir string, inputs []string) (string, error) {
	tmpFile, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			return "", err
		}
		if _, err := fmt.Fprintf(tmpFile, "file '%s'\n", escapeConcatPath(absPath)); err != nil {
			return "", err
		}
	}

	return tmpFile.Name(), nil
}

// escapeConcatPath quotes single quotes for the concat demuxer
func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
