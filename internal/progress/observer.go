package progress

import (
	"time"

	"github.com/kikiluvv/highlighter/internal/logging"
	"github.com/rs/zerolog"
)

// Observer receives progress events from the pipeline.
// Calls arrive from one goroutine at a time.
type Observer interface {
	// Stage marks the start of a named pipeline stage
	Stage(name string)
	// ClipStarted is called before highlight index (0-based) of total is extracted
	ClipStarted(index, total int, label string)
	// ClipProgress reports the position within the clip being extracted
	ClipProgress(index int, done, total time.Duration)
	// ClipFinished is called after the extraction attempt, err is nil on success
	ClipFinished(index int, err error)
	// Encoding reports the position of the final encode
	Encoding(done, total time.Duration)
	// Finish flushes any output. No events follow it.
	Finish()
}

// Nop discards all events
type Nop struct{}

func (Nop) Stage(string)                                   {}
func (Nop) ClipStarted(int, int, string)                   {}
func (Nop) ClipProgress(int, time.Duration, time.Duration) {}
func (Nop) ClipFinished(int, error)                        {}
func (Nop) Encoding(time.Duration, time.Duration)          {}
func (Nop) Finish()                                        {}

// LogObserver writes progress events to a zerolog logger
type LogObserver struct {
	logger   zerolog.Logger
	last     int
	lastClip int
}

// NewLogObserver creates an observer that logs under the progress component
func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{
		logger:   logging.WithComponent(logger, "progress"),
		last:     -1,
		lastClip: -1,
	}
}

func (o *LogObserver) Stage(name string) {
	o.logger.Info().Str("stage", name).Msg("stage started")
}

func (o *LogObserver) ClipStarted(index, total int, label string) {
	o.logger.Info().
		Int("index", index).
		Int("total", total).
		Str("clip", label).
		Msg("extracting highlight")
}

// ClipProgress logs at most once per quarter of a clip
func (o *LogObserver) ClipProgress(index int, done, total time.Duration) {
	if total <= 0 {
		return
	}
	step := min(percent(done, total)/25, 4)
	if step == o.lastClip {
		return
	}
	o.lastClip = step
	o.logger.Debug().Int("index", index).Int("percent", step*25).Msg("extracting")
}

func (o *LogObserver) ClipFinished(index int, err error) {
	o.lastClip = -1
	if err != nil {
		o.logger.Warn().Int("index", index).Err(err).Msg("highlight skipped")
		return
	}
	o.logger.Debug().Int("index", index).Msg("highlight extracted")
}

// Encoding logs at most once per 10% step
func (o *LogObserver) Encoding(done, total time.Duration) {
	if total <= 0 {
		return
	}
	pct := percent(done, total)
	step := pct / 10
	if step == o.last {
		return
	}
	o.last = step
	o.logger.Debug().Int("percent", pct).Msg("encoding")
}

func (o *LogObserver) Finish() {
	o.last = -1
	o.lastClip = -1
}

func percent(done, total time.Duration) int {
	return min(int(100*done/total), 100)
}

// Multi fans events out to several observers in order
type Multi []Observer

func (m Multi) Stage(name string) {
	for _, o := range m {
		o.Stage(name)
	}
}

func (m Multi) ClipStarted(index, total int, label string) {
	for _, o := range m {
		o.ClipStarted(index, total, label)
	}
}

func (m Multi) ClipProgress(index int, done, total time.Duration) {
	for _, o := range m {
		o.ClipProgress(index, done, total)
	}
}

func (m Multi) ClipFinished(index int, err error) {
	for _, o := range m {
		o.ClipFinished(index, err)
	}
}

func (m Multi) Encoding(done, total time.Duration) {
	for _, o := range m {
		o.Encoding(done, total)
	}
}

func (m Multi) Finish() {
	for _, o := range m {
		o.Finish()
	}
}
