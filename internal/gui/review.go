package gui

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/kikiluvv/highlighter/internal/clips"
	"github.com/kikiluvv/highlighter/internal/session"
	"github.com/kikiluvv/highlighter/pkg/util"
)

// AssembleFunc builds the final output from the included clips of project
type AssembleFunc func(ctx context.Context, project *session.Project) (string, error)

// Review lists the highlights of one project, lets the user preview and
// pick which clips to keep and triggers assembly.
type Review struct {
	window   fyne.Window
	project  *session.Project
	manager  *clips.Manager
	assemble AssembleFunc
	cleanup  func() error
	open     func(*url.URL) error

	checks         []*widget.Check
	plays          []*widget.Button
	status         *widget.Label
	assembleButton *widget.Button
	cleanupButton  *widget.Button

	// assembling is set while a background assembly runs and closed
	// after its result is shown
	assembling chan struct{}
	released   bool
}

// Run opens the review window and blocks until it is closed
func Run(project *session.Project, assemble AssembleFunc, cleanup func() error) {
	a := app.NewWithID("highlighter")
	r := NewReview(a, project, assemble, cleanup)
	r.window.ShowAndRun()
}

// NewReview builds the review window without showing it
func NewReview(a fyne.App, project *session.Project, assemble AssembleFunc, cleanup func() error) *Review {
	r := &Review{
		project:  project,
		manager:  project.Manager(),
		assemble: assemble,
		cleanup:  cleanup,
		open:     a.OpenURL,
	}

	r.window = a.NewWindow("Highlights: " + filepath.Base(project.Input))
	r.window.Resize(fyne.NewSize(600, 400))
	r.window.SetContent(r.build())
	return r
}

// Window returns the underlying fyne window
func (r *Review) Window() fyne.Window {
	return r.window
}

func (r *Review) build() fyne.CanvasObject {
	header := widget.NewLabel(fmt.Sprintf("%s  length %s  %d highlights",
		filepath.Base(r.project.Input), util.FormatClock(r.project.Duration), r.manager.Len()))

	rows := container.NewVBox()
	for i, c := range r.manager.All() {
		check := widget.NewCheck(c.Label(), nil)
		check.Checked = c.Included
		check.OnChanged = func(on bool) {
			r.manager.SetIncluded(i, on)
			r.refresh()
		}

		play := widget.NewButtonWithIcon("Play", theme.MediaPlayIcon(), func() {
			r.onPlay(c)
		})

		if !c.Materialized() {
			check.Disable()
			play.Disable()
		}
		r.checks = append(r.checks, check)
		r.plays = append(r.plays, play)

		score := widget.NewProgressBar()
		score.SetValue(c.Score)
		rows.Add(container.NewBorder(nil, nil, check, play, score))
	}
	if r.manager.Len() == 0 {
		rows.Add(widget.NewLabel("No highlights found"))
	}

	r.status = widget.NewLabel("")
	r.assembleButton = widget.NewButton("Assemble", r.onAssemble)
	r.cleanupButton = widget.NewButton("Clear temporary files", r.onCleanup)
	if r.cleanup == nil {
		r.cleanupButton.Disable()
	}
	r.refresh()

	footer := container.NewVBox(
		r.status,
		container.NewHBox(r.assembleButton, r.cleanupButton),
	)
	return container.NewBorder(header, footer, nil, nil, container.NewVScroll(rows))
}

// refresh updates the selection summary and button state
func (r *Review) refresh() {
	timeline := r.manager.Timeline()
	r.status.SetText(fmt.Sprintf("%d of %d clips selected (%s)",
		len(timeline), r.manager.Len(), util.FormatClock(timeline.Duration())))

	if len(timeline) == 0 || r.busy() {
		r.assembleButton.Disable()
	} else {
		r.assembleButton.Enable()
	}
}

func (r *Review) busy() bool {
	return r.assembling != nil
}

// lock freezes the selection and the workspace while an assembly reads them
func (r *Review) lock(locked bool) {
	for i, c := range r.manager.All() {
		if locked || !c.Materialized() {
			r.checks[i].Disable()
		} else {
			r.checks[i].Enable()
		}
	}

	if locked || r.cleanup == nil || r.released {
		r.cleanupButton.Disable()
	} else {
		r.cleanupButton.Enable()
	}
}

func (r *Review) onPlay(c *clips.Clip) {
	if !c.Materialized() {
		return
	}
	u, err := url.Parse(storage.NewFileURI(c.Path).String())
	if err == nil {
		err = r.open(u)
	}
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to open %s: %w", c.Label(), err), r.window)
	}
}

func (r *Review) onAssemble() {
	if r.busy() {
		return
	}

	snapshot := r.project.Snapshot()
	done := make(chan struct{})
	r.assembling = done
	r.lock(true)
	r.assembleButton.Disable()
	r.status.SetText("Assembling...")

	go func() {
		out, err := r.run(context.Background(), snapshot)
		fyne.Do(func() {
			r.assembling = nil
			r.finish(out, err)
			close(done)
		})
	}()
}

// Assemble runs the assemble callback on a copy of the current selection
func (r *Review) Assemble(ctx context.Context) (string, error) {
	return r.run(ctx, r.project.Snapshot())
}

func (r *Review) run(ctx context.Context, snapshot *session.Project) (string, error) {
	if len(snapshot.Manager().Timeline()) == 0 {
		return "", clips.ErrNoClips
	}
	return r.assemble(ctx, snapshot)
}

func (r *Review) finish(out string, err error) {
	r.lock(false)
	r.refresh()
	if err != nil {
		r.status.SetText("Assembly failed")
		dialog.ShowError(err, r.window)
		return
	}
	r.status.SetText("Saved " + out)
}

func (r *Review) onCleanup() {
	if r.busy() {
		return
	}
	if err := r.cleanup(); err != nil {
		dialog.ShowError(err, r.window)
		return
	}
	r.released = true

	// extracted segments are gone with the workspace
	for i, c := range r.manager.All() {
		c.Path = ""
		r.checks[i].Disable()
		r.plays[i].Disable()
	}
	r.cleanupButton.Disable()
	r.refresh()
	r.status.SetText("Temporary files removed")
}
