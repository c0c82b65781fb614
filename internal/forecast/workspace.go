package forecast

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Workspaces hands out one private directory per forecast request, so
// concurrent requests never share intermediate files.
type Workspaces struct {
	root string
	keep bool
}

// NewWorkspaces creates the manager; root is created lazily
func NewWorkspaces(root string, keep bool) *Workspaces {
	return &Workspaces{root: root, keep: keep}
}

// Root returns the parent directory
func (w *Workspaces) Root() string { return w.root }

// Workspace is a request-scoped directory
type Workspace struct {
	ID   string
	Dir  string
	keep bool
}

// Create allocates a fresh workspace
func (w *Workspaces) Create() (*Workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(w.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{ID: id, Dir: dir, keep: w.keep}, nil
}

// Path returns a file path inside the workspace
func (ws *Workspace) Path(name string) string {
	return filepath.Join(ws.Dir, name)
}

// Release removes the workspace unless artifacts are kept
func (ws *Workspace) Release() error {
	if ws.keep {
		return nil
	}
	return os.RemoveAll(ws.Dir)
}

// Sweep removes workspaces last modified before now-olderThan.
// Returns how many were removed.
func (w *Workspaces) Sweep(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(w.root)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list workspaces: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := uuid.Parse(e.Name()); err != nil {
			continue // not ours
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(w.root, e.Name())); err != nil {
			return removed, fmt.Errorf("remove workspace %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
