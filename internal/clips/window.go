package clips

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned when a window cannot be built from the inputs
var ErrInvalidWindow = errors.New("invalid clip window")

// Window is a bounded interval [Start, End) within the source media
type Window struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Length returns End - Start
func (w Window) Length() time.Duration {
	return w.End - w.Start
}

// BuildWindow centers a window of the requested duration on the anchor and
// clamps it to [0, total]. Length lost to one boundary is recovered from the
// other side, so the window is exactly duration long whenever total allows,
// and covers the whole media otherwise. An anchor past the end yields the
// tail of the media.
func BuildWindow(anchor, duration, total time.Duration) (Window, error) {
	if duration <= 0 {
		return Window{}, fmt.Errorf("%w: duration %v must be positive", ErrInvalidWindow, duration)
	}
	if total <= 0 {
		return Window{}, fmt.Errorf("%w: total duration %v must be positive", ErrInvalidWindow, total)
	}

	start := anchor - duration/2
	end := start + duration

	if start < 0 {
		start = 0
		if end-start < duration && end < total {
			end = min(total, start+duration)
		}
	}

	if end > total {
		end = total
		if end-start < duration && start > 0 {
			start = max(0, end-duration)
		}
	}

	return Window{Start: start, End: end}, nil
}
