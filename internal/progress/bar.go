package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// clipUnits subdivides one clip on the extraction bar
const clipUnits = 100

// BarObserver renders extraction and encoding progress as terminal bars
type BarObserver struct {
	mu         sync.Mutex
	p          *mpb.Progress
	clips      *mpb.Bar
	encode     *mpb.Bar
	clipPos    int64
	lastTick   time.Time
	encodeDone bool
	finished   bool
}

// NewBarObserver creates bars writing to out, typically stderr
func NewBarObserver(out io.Writer) *BarObserver {
	return &BarObserver{
		p: mpb.New(
			mpb.WithOutput(out),
			mpb.WithWidth(64),
		),
	}
}

// Writer prints lines above the running bars. Point the logger at it so
// log output does not tear the bars.
func (o *BarObserver) Writer() io.Writer {
	return o.p
}

func (o *BarObserver) Stage(string) {}

func (o *BarObserver) ClipStarted(index, total int, label string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.clips == nil {
		o.clips = o.p.AddBar(int64(total*clipUnits),
			mpb.PrependDecorators(
				decor.Name("Extracting: "),
				decor.Any(func(s decor.Statistics) string {
					return fmt.Sprintf("%d / %d", s.Current/clipUnits, total)
				}),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.EwmaETA(decor.ET_STYLE_GO, 30),
			),
		)
	}
	o.clipPos = int64(index * clipUnits)
	o.lastTick = time.Now()
}

// ClipProgress advances the extraction bar within the current clip
func (o *BarObserver) ClipProgress(index int, done, total time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.clips == nil || total <= 0 {
		return
	}
	within := min(int64(done*clipUnits/total), clipUnits-1)
	o.advance(int64(index*clipUnits) + within)
}

func (o *BarObserver) ClipFinished(index int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.clips == nil {
		return
	}
	o.advance(int64((index + 1) * clipUnits))
}

// advance moves the clips bar forward, feeding the ETA average
func (o *BarObserver) advance(pos int64) {
	if pos <= o.clipPos {
		return
	}
	now := time.Now()
	o.clips.EwmaSetCurrent(pos, now.Sub(o.lastTick))
	o.clipPos = pos
	o.lastTick = now
}

func (o *BarObserver) Encoding(done, total time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if total <= 0 || o.encodeDone {
		return
	}
	if o.encode == nil {
		o.encode = o.p.AddBar(total.Milliseconds(),
			mpb.PrependDecorators(
				decor.Name("Encoding:   "),
				decor.Any(func(decor.Statistics) string {
					return total.Round(time.Second).String()
				}),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
			),
		)
	}

	if done >= total {
		o.encode.SetCurrent(total.Milliseconds())
		o.encodeDone = true
		return
	}
	o.encode.SetCurrent(done.Milliseconds())
}

// Finish aborts incomplete bars and waits for rendering to stop
func (o *BarObserver) Finish() {
	o.mu.Lock()
	if o.finished {
		o.mu.Unlock()
		return
	}
	o.finished = true
	for _, bar := range []*mpb.Bar{o.clips, o.encode} {
		if bar != nil && !bar.Completed() {
			bar.Abort(false)
		}
	}
	o.mu.Unlock()

	o.p.Wait()
}
