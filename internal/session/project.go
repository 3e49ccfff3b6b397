package session

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kikiluvv/highlighter/internal/clips"
)

// ManifestName is the file a project is saved under inside its workspace
const ManifestName = "project.json"

// Failure records a highlight whose clip could not be extracted
type Failure struct {
	Index  int          `json:"index"`
	Window clips.Window `json:"window"`
	Error  string       `json:"error"`
}

// Project is the persisted result of one analysis run
type Project struct {
	ID        uuid.UUID     `json:"id"`
	Input     string        `json:"input"`
	Duration  time.Duration `json:"duration"`
	HasVideo  bool          `json:"has_video"`
	Workspace string        `json:"workspace"`

	// Energy profile, one value per Window
	Window time.Duration `json:"window"`
	Energy []float64     `json:"energy"`

	Strategy   string          `json:"strategy"`
	Highlights []time.Duration `json:"highlights"`
	Clips      []*clips.Clip   `json:"clips"`
	Failures   []Failure       `json:"failures,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProject creates an empty project bound to a workspace
func NewProject(ws *Workspace, input string) *Project {
	now := time.Now()
	return &Project{
		ID:        ws.ID,
		Input:     input,
		Workspace: ws.Dir,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Manager wraps the project clips. Toggles made through it are visible
// to the project, so a later Save persists them.
func (p *Project) Manager() *clips.Manager {
	return clips.NewManager(p.Clips...)
}

// Snapshot copies the project and its clips, so the copy can be read by a
// background task while the original keeps being edited.
func (p *Project) Snapshot() *Project {
	cp := *p
	cp.Clips = make([]*clips.Clip, len(p.Clips))
	for i, c := range p.Clips {
		clip := *c
		cp.Clips[i] = &clip
	}
	cp.Failures = append([]Failure(nil), p.Failures...)
	return &cp
}

// Save writes the project manifest as indented JSON
func (p *Project) Save(path string) error {
	p.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write project: %w", err)
	}
	return nil
}

// Load reads a project manifest
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project: %w", err)
	}

	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse project %s: %w", path, err)
	}
	return &p, nil
}

// OpenWorkspace reattaches to the workspace the project was analyzed in
func (p *Project) OpenWorkspace() (*Workspace, error) {
	return Open(p.ID, p.Workspace)
}
