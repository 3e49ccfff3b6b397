package clips

import (
	"fmt"
	"time"

	"github.com/kikiluvv/highlighter/pkg/util"
)

// Clip is a highlight window together with its materialized segment.
// Included is owned by the presentation layer and read by the assembler.
type Clip struct {
	ID        string        `json:"id"`
	Index     int           `json:"index"`
	Anchor    time.Duration `json:"anchor"`
	Window    Window        `json:"window"`
	Score     float64       `json:"score"`
	SourceURL string        `json:"source"`
	Path      string        `json:"path"`
	Included  bool          `json:"included"`
}

// New creates an included clip for the highlight at position index
func New(index int, anchor time.Duration, window Window, source string) *Clip {
	return &Clip{
		ID:        fmt.Sprintf("clip_%d", index),
		Index:     index,
		Anchor:    anchor,
		Window:    window,
		SourceURL: source,
		Included:  true,
	}
}

// Duration returns the window length
func (c *Clip) Duration() time.Duration {
	return c.Window.Length()
}

// Label returns the display name, e.g. "clip 2 (1:35)"
func (c *Clip) Label() string {
	return fmt.Sprintf("clip %d (%s)", c.Index+1, util.FormatClock(c.Anchor))
}

// Materialized reports whether the clip has an extracted segment
func (c *Clip) Materialized() bool {
	return c.Path != ""
}

// Timeline is an ordered list of clips to concatenate
type Timeline []*Clip

// Duration returns the summed window length of the timeline
func (t Timeline) Duration() time.Duration {
	var total time.Duration
	for _, c := range t {
		total += c.Duration()
	}
	return total
}

// Manager holds the clips of one session in highlight order
type Manager struct {
	clips []*Clip
}

// NewManager creates a new clip manager
func NewManager(clips ...*Clip) *Manager {
	m := &Manager{
		clips: make([]*Clip, 0, len(clips)),
	}
	for _, c := range clips {
		m.Add(c)
	}
	return m
}

// Add adds a clip to the manager
func (m *Manager) Add(clip *Clip) {
	m.clips = append(m.clips, clip)
}

// Get retrieves a clip by ID
func (m *Manager) Get(id string) *Clip {
	for _, clip := range m.clips {
		if clip.ID == id {
			return clip
		}
	}
	return nil
}

// All returns all clips
func (m *Manager) All() []*Clip {
	return m.clips
}

// Len returns the number of clips
func (m *Manager) Len() int {
	return len(m.clips)
}

// SetIncluded toggles inclusion of the clip at position i
func (m *Manager) SetIncluded(i int, included bool) error {
	if i < 0 || i >= len(m.clips) {
		return fmt.Errorf("clip %d out of range [0, %d)", i, len(m.clips))
	}
	m.clips[i].Included = included
	return nil
}

// Timeline returns the included, materialized clips in highlight order.
// Selection order never reorders the result.
func (m *Manager) Timeline() Timeline {
	timeline := make(Timeline, 0, len(m.clips))
	for _, c := range m.clips {
		if c.Included && c.Materialized() {
			timeline = append(timeline, c)
		}
	}
	return timeline
}
