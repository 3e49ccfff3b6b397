package ffmpeg

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// AudioFormat defines the raw PCM layout requested from the decoder
type AudioFormat struct {
	SampleRate int
	Channels   int
}

// DefaultAnalysisFormat returns mono 16 kHz, enough for loudness analysis
func DefaultAnalysisFormat() AudioFormat {
	return AudioFormat{
		SampleRate: 16000,
		Channels:   1, // mono
	}
}

// SampleSink receives decoded mono samples in chunks. The slice is reused
// once the call returns.
type SampleSink func(samples []float64)

// DecodeAudio streams the audio stream of input to sink as mono samples and
// returns the decoded length. The whole waveform is never held in memory.
func (e *Executor) DecodeAudio(ctx context.Context, input string, format AudioFormat, sink SampleSink) (time.Duration, error) {
	if input == "" {
		return 0, fmt.Errorf("input path is required")
	}
	if sink == nil {
		return 0, fmt.Errorf("sample sink is required")
	}
	if format.SampleRate <= 0 {
		format.SampleRate = DefaultAnalysisFormat().SampleRate
	}
	if format.Channels <= 0 {
		format.Channels = 1
	}

	e.logger.Info().
		Str("input", input).
		Int("sample_rate", format.SampleRate).
		Int("channels", format.Channels).
		Msg("decoding audio")

	args := []string{
		"-i", input,
		"-vn", // no video
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", fmt.Sprintf("%d", format.SampleRate),
		"-ac", fmt.Sprintf("%d", format.Channels),
		"pipe:1",
	}

	pcm := newPCMWriter(format.Channels, sink)
	opts := RunOptions{
		Args:   args,
		Stdout: pcm,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("audio decode")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return 0, fmt.Errorf("audio decode failed: %w", err)
	}

	duration := time.Duration(pcm.frames) * time.Second / time.Duration(format.SampleRate)
	e.logger.Info().
		Int64("samples", pcm.frames).
		Dur("duration", duration).
		Msg("audio decode complete")

	return duration, nil
}

// pcmWriter turns little-endian float32 frames into mono samples. A frame
// split across writes is carried over to the next one.
type pcmWriter struct {
	channels int
	sink     SampleSink
	pending  []byte
	buf      []float64
	frames   int64
}

func newPCMWriter(channels int, sink SampleSink) *pcmWriter {
	return &pcmWriter{channels: channels, sink: sink}
}

func (w *pcmWriter) frameSize() int {
	return 4 * w.channels
}

func (w *pcmWriter) Write(p []byte) (int, error) {
	n := len(p)
	size := w.frameSize()

	if len(w.pending) > 0 {
		need := size - len(w.pending)
		if len(p) < need {
			w.pending = append(w.pending, p...)
			return n, nil
		}
		w.pending = append(w.pending, p[:need]...)
		w.emit(w.pending)
		w.pending = w.pending[:0]
		p = p[need:]
	}

	whole := len(p) - len(p)%size
	w.emit(p[:whole])
	w.pending = append(w.pending, p[whole:]...)
	return n, nil
}

func (w *pcmWriter) emit(data []byte) {
	size := w.frameSize()
	frames := len(data) / size
	if frames == 0 {
		return
	}

	w.buf = w.buf[:0]
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < w.channels; ch++ {
			off := i*size + ch*4
			sum += float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4])))
		}
		w.buf = append(w.buf, sum/float64(w.channels))
	}

	w.frames += int64(frames)
	w.sink(w.buf)
}
