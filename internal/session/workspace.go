package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/kikiluvv/highlighter/pkg/util"
)

// ErrReleased is returned when a released workspace is used
var ErrReleased = errors.New("workspace already released")

// Workspace is the scratch directory owned by one analysis session.
// It is acquired before a run and released explicitly by the caller.
type Workspace struct {
	ID       uuid.UUID
	Dir      string
	released bool
}

// Acquire creates a fresh workspace under root, or the system temp dir
// when root is empty.
func Acquire(root string) (*Workspace, error) {
	if root != "" {
		if err := util.EnsureDir(root); err != nil {
			return nil, fmt.Errorf("failed to create workspace root: %w", err)
		}
	}

	id := uuid.New()
	dir, err := os.MkdirTemp(root, "highlighter-"+id.String()[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return &Workspace{ID: id, Dir: dir}, nil
}

// Open reattaches to a workspace left behind by an earlier run
func Open(id uuid.UUID, dir string) (*Workspace, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s is not a directory", dir)
	}
	return &Workspace{ID: id, Dir: dir}, nil
}

// ClipPath returns the path for the extracted segment of highlight index
func (w *Workspace) ClipPath(index int, ext string) string {
	return w.Path(fmt.Sprintf("clip_%02d%s", index, ext))
}

// Path joins name onto the workspace directory
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Err returns ErrReleased once the workspace has been released
func (w *Workspace) Err() error {
	if w == nil {
		return errors.New("no workspace")
	}
	if w.released {
		return ErrReleased
	}
	return nil
}

// Release removes the workspace and everything in it. Safe to call twice.
func (w *Workspace) Release() error {
	if w.released {
		return nil
	}
	w.released = true
	if err := os.RemoveAll(w.Dir); err != nil {
		return fmt.Errorf("failed to release workspace %s: %w", w.Dir, err)
	}
	return nil
}
