package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kikiluvv/highlighter/internal/logging"
	"github.com/kikiluvv/highlighter/pkg/util"
	"github.com/rs/zerolog"
)

// Handler processes one new recording. Calls are sequential.
type Handler func(ctx context.Context, path string) error

// Options configures which files are picked up
type Options struct {
	Extensions []string
	// Settle is how long a file must go without writes before it is handled
	Settle time.Duration
}

// Watcher runs a handler on recordings dropped into an inbox directory
type Watcher struct {
	logger  zerolog.Logger
	dir     string
	opts    Options
	handler Handler
	fs      *fsnotify.Watcher

	pending map[string]time.Time
	done    map[string]bool
}

// New starts watching dir. Files created after New returns are seen by Run.
func New(logger zerolog.Logger, dir string, opts Options, handler Handler) (*Watcher, error) {
	if opts.Settle <= 0 {
		opts.Settle = 2 * time.Second
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		logger:  logging.WithComponent(logger, "watch").With().Str("dir", dir).Logger(),
		dir:     dir,
		opts:    opts,
		handler: handler,
		fs:      fs,
		pending: make(map[string]time.Time),
		done:    make(map[string]bool),
	}, nil
}

// Run dispatches settled files until ctx is cancelled, then closes the watcher
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	tick := max(w.opts.Settle/4, 50*time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	w.logger.Info().Strs("extensions", w.opts.Extensions).Msg("watching for recordings")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !w.accepts(event.Name) {
				continue
			}
			// every write restarts the settle timer
			w.pending[event.Name] = time.Now()

		case now := <-ticker.C:
			w.dispatch(ctx, now)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			w.logger.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (w *Watcher) accepts(path string) bool {
	if w.done[path] {
		return false
	}
	// skip our own output if the inbox doubles as work dir
	if strings.HasPrefix(filepath.Base(path), "highlights_") {
		return false
	}
	if len(w.opts.Extensions) > 0 && !util.HasExtension(path, w.opts.Extensions) {
		return false
	}
	return true
}

// dispatch hands settled files to the handler in name order. Files left
// when ctx is cancelled stay pending.
func (w *Watcher) dispatch(ctx context.Context, now time.Time) {
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.opts.Settle {
			ready = append(ready, path)
		}
	}
	slices.Sort(ready)

	for _, path := range ready {
		if ctx.Err() != nil {
			return
		}
		delete(w.pending, path)

		if !util.FileExists(path) {
			continue
		}
		w.done[path] = true

		w.logger.Info().Str("file", path).Msg("new recording")
		if err := w.handler(ctx, path); err != nil {
			w.logger.Error().Err(err).Str("file", path).Msg("failed to process recording")
		}
	}
}
