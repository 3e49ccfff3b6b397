package clips

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/kikiluvv/highlighter/internal/ffmpeg"
	"github.com/rs/zerolog"
)

type fakeConcat struct {
	calls []ffmpeg.ConcatOptions
	err   error
}

func (f *fakeConcat) Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error {
	f.calls = append(f.calls, opts)
	return f.err
}

func testManager() *Manager {
	m := NewManager()
	for i, anchor := range []time.Duration{10 * sec, 50 * sec, 90 * sec} {
		c := New(i, anchor, Window{Start: anchor - 5*sec, End: anchor + 5*sec}, "input.mp4")
		c.Path = "clip_" + string(rune('a'+i)) + ".mp4"
		m.Add(c)
	}
	return m
}

func TestManagerTimelineKeepsHighlightOrder(t *testing.T) {
	m := testManager()
	if err := m.SetIncluded(1, false); err != nil {
		t.Fatalf("SetIncluded failed: %v", err)
	}
	// re-including in a different order must not reorder the timeline
	if err := m.SetIncluded(2, false); err != nil {
		t.Fatal(err)
	}
	if err := m.SetIncluded(2, true); err != nil {
		t.Fatal(err)
	}

	tl := m.Timeline()
	if len(tl) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(tl))
	}
	if tl[0].ID != "clip_0" || tl[1].ID != "clip_2" {
		t.Errorf("unexpected order: %s, %s", tl[0].ID, tl[1].ID)
	}
	if tl.Duration() != 20*sec {
		t.Errorf("expected 20s timeline, got %v", tl.Duration())
	}
}

func TestManagerSkipsUnmaterialized(t *testing.T) {
	m := testManager()
	m.All()[0].Path = ""

	if got := len(m.Timeline()); got != 2 {
		t.Errorf("expected 2 materialized clips, got %d", got)
	}
}

func TestManagerGetAndRange(t *testing.T) {
	m := testManager()
	if c := m.Get("clip_1"); c == nil || c.Anchor != 50*sec {
		t.Errorf("Get returned %+v", c)
	}
	if m.Get("missing") != nil {
		t.Error("expected nil for unknown id")
	}
	if err := m.SetIncluded(3, true); err == nil {
		t.Error("expected out of range error")
	}
}

func TestAssemblerEmptyTimeline(t *testing.T) {
	fc := &fakeConcat{}
	a := NewAssembler(zerolog.New(io.Discard), fc)

	_, err := a.Assemble(context.Background(), nil, AssembleOptions{Output: "out.mp4"})
	if !errors.Is(err, ErrNoClips) {
		t.Fatalf("expected ErrNoClips, got %v", err)
	}
	if len(fc.calls) != 0 {
		t.Error("concatenation must not be attempted with no clips")
	}
}

func TestAssemblerPreservesOrder(t *testing.T) {
	fc := &fakeConcat{}
	a := NewAssembler(zerolog.New(io.Discard), fc)
	m := testManager()
	tl := m.Timeline()
	tl[0], tl[2] = tl[2], tl[0]

	out, err := a.Assemble(context.Background(), tl, AssembleOptions{Output: "out.mp4", ReEncode: true, VideoCodec: "libx264"})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if out != "out.mp4" {
		t.Errorf("expected out.mp4, got %s", out)
	}
	if len(fc.calls) != 1 {
		t.Fatalf("expected 1 concat call, got %d", len(fc.calls))
	}
	want := []string{"clip_c.mp4", "clip_b.mp4", "clip_a.mp4"}
	got := fc.calls[0].Inputs
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("input %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if !fc.calls[0].ReEncode || fc.calls[0].VideoCodec != "libx264" {
		t.Errorf("encode options not forwarded: %+v", fc.calls[0])
	}
	if m.All()[0].Path != "clip_a.mp4" {
		t.Error("assembly mutated input clips")
	}
}

func TestAssemblerPropagatesFailure(t *testing.T) {
	fc := &fakeConcat{err: errors.New("boom")}
	a := NewAssembler(zerolog.New(io.Discard), fc)

	_, err := a.Assemble(context.Background(), testManager().Timeline(), AssembleOptions{Output: "out.mp4"})
	if err == nil || !errors.Is(err, fc.err) {
		t.Errorf("expected wrapped concat error, got %v", err)
	}
}

func TestAssemblerRequiresOutput(t *testing.T) {
	a := NewAssembler(zerolog.New(io.Discard), &fakeConcat{})
	if _, err := a.Assemble(context.Background(), testManager().Timeline(), AssembleOptions{}); err == nil {
		t.Error("expected error for missing output")
	}
}

func TestClipLabel(t *testing.T) {
	c := New(1, 95*sec, Window{Start: 70 * sec, End: 100 * sec}, "input.mp4")
	if got := c.Label(); got != "clip 2 (1:35)" {
		t.Errorf("Label() = %q", got)
	}
}
