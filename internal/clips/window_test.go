package clips

import (
	"errors"
	"testing"
	"time"
)

const sec = time.Second

func TestBuildWindow(t *testing.T) {
	tests := []struct {
		name     string
		anchor   time.Duration
		duration time.Duration
		total    time.Duration
		want     Window
	}{
		{"centered", 50 * sec, 30 * sec, 100 * sec, Window{35 * sec, 65 * sec}},
		{"start clamped and end extended", 5 * sec, 30 * sec, 100 * sec, Window{0, 30 * sec}},
		{"end clamped and start pulled back", 95 * sec, 30 * sec, 100 * sec, Window{70 * sec, 100 * sec}},
		{"anchor at zero", 0, 30 * sec, 100 * sec, Window{0, 30 * sec}},
		{"last second", 99 * sec, 30 * sec, 100 * sec, Window{70 * sec, 100 * sec}},
		{"media shorter than clip", 5 * sec, 30 * sec, 20 * sec, Window{0, 20 * sec}},
		{"media shorter than clip near end", 15 * sec, 30 * sec, 20 * sec, Window{0, 20 * sec}},
		{"media equals clip", 10 * sec, 30 * sec, 30 * sec, Window{0, 30 * sec}},
		{"odd duration", 50 * sec, 15 * sec, 100 * sec, Window{42500 * time.Millisecond, 57500 * time.Millisecond}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildWindow(tt.anchor, tt.duration, tt.total)
			if err != nil {
				t.Fatalf("BuildWindow failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected [%v, %v], got [%v, %v]", tt.want.Start, tt.want.End, got.Start, got.End)
			}
		})
	}
}

func TestBuildWindowProperties(t *testing.T) {
	for _, total := range []time.Duration{10 * sec, 31 * sec, 100 * sec, 3600 * sec} {
		for _, duration := range []time.Duration{15 * sec, 30 * sec, 45 * sec, 60 * sec} {
			for anchor := time.Duration(0); anchor < total; anchor += sec {
				w, err := BuildWindow(anchor, duration, total)
				if err != nil {
					t.Fatalf("anchor=%v duration=%v total=%v: %v", anchor, duration, total, err)
				}
				if w.Start < 0 || w.End > total || w.Start >= w.End {
					t.Fatalf("anchor=%v duration=%v total=%v: window [%v, %v] out of bounds",
						anchor, duration, total, w.Start, w.End)
				}
				want := duration
				if total < duration {
					want = total
				}
				if w.Length() != want {
					t.Fatalf("anchor=%v duration=%v total=%v: expected length %v, got %v",
						anchor, duration, total, want, w.Length())
				}
			}
		}
	}
}

func TestBuildWindowInvalid(t *testing.T) {
	if _, err := BuildWindow(0, 0, 100*sec); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow for zero duration, got %v", err)
	}
	if _, err := BuildWindow(0, 30*sec, 0); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow for zero total, got %v", err)
	}
}

func TestBuildWindowAnchorPastEnd(t *testing.T) {
	tests := []struct {
		anchor time.Duration
		want   Window
	}{
		{100 * sec, Window{Start: 70 * sec, End: 100 * sec}},
		{200 * sec, Window{Start: 70 * sec, End: 100 * sec}},
	}

	for _, tt := range tests {
		w, err := BuildWindow(tt.anchor, 30*sec, 100*sec)
		if err != nil {
			t.Fatalf("anchor=%v: unexpected error %v", tt.anchor, err)
		}
		if w != tt.want {
			t.Errorf("anchor=%v: expected %+v, got %+v", tt.anchor, tt.want, w)
		}
	}
}
