package forecast

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaces(t *testing.T) {
	root := filepath.Join(t.TempDir(), "work")
	w := NewWorkspaces(root, false)

	a, err := w.Create()
	require.NoError(t, err)
	b, err := w.Create()
	require.NoError(t, err)

	assert.NotEqual(t, a.Dir, b.Dir)
	assert.Equal(t, filepath.Join(a.Dir, "ventas.json"), a.Path("ventas.json"))
	assert.DirExists(t, a.Dir)

	require.NoError(t, a.Release())
	assert.NoDirExists(t, a.Dir)
	assert.DirExists(t, b.Dir)
}

func TestWorkspaces_Keep(t *testing.T) {
	w := NewWorkspaces(t.TempDir(), true)
	ws, err := w.Create()
	require.NoError(t, err)
	require.NoError(t, ws.Release())
	assert.DirExists(t, ws.Dir)
}

func TestWorkspaces_Sweep(t *testing.T) {
	root := t.TempDir()
	w := NewWorkspaces(root, true)

	old, err := w.Create()
	require.NoError(t, err)
	fresh, err := w.Create()
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old.Dir, past, past))

	foreign := filepath.Join(root, "not-a-workspace")
	require.NoError(t, os.Mkdir(foreign, 0o755))
	require.NoError(t, os.Chtimes(foreign, past, past))

	removed, err := w.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoDirExists(t, old.Dir)
	assert.DirExists(t, fresh.Dir)
	assert.DirExists(t, foreign)
}

func TestWorkspaces_SweepMissingRoot(t *testing.T) {
	removed, err := NewWorkspaces(filepath.Join(t.TempDir(), "none"), false).Sweep(time.Minute)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
