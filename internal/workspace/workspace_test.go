package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AddGetList(t *testing.T) {
	home := t.TempDir()
	wsDir := filepath.Join(home, "myflows")

	reg, err := New(home)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(wsDir, 0o755))
	require.NoError(t, reg.Add("myflows", wsDir))

	got, err := reg.Get("myflows")
	require.NoError(t, err)
	assert.Equal(t, "myflows", got.Name)
	abs, _ := filepath.Abs(wsDir)
	assert.Equal(t, abs, got.RootDirectory)

	all, err := reg.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "myflows", all[0].Name)
}

func TestRegistry_AddRejectsMissingDirectory(t *testing.T) {
	home := t.TempDir()
	reg, err := New(home)
	require.NoError(t, err)

	err = reg.Add("nope", filepath.Join(home, "does-not-exist"))
	assert.Error(t, err)
}

func TestRegistry_GetUnknownWorkspaceErrors(t *testing.T) {
	home := t.TempDir()
	reg, err := New(home)
	require.NoError(t, err)

	_, err = reg.Get("ghost")
	assert.Error(t, err)
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	home := t.TempDir()
	wsDir := filepath.Join(home, "a")
	require.NoError(t, os.MkdirAll(wsDir, 0o755))

	reg, err := New(home)
	require.NoError(t, err)
	require.NoError(t, reg.Add("a", wsDir))

	require.NoError(t, reg.Remove("a"))
	require.NoError(t, reg.Remove("a")) // second remove is a no-op, not an error

	all, err := reg.List()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRegistry_ListSortsByName(t *testing.T) {
	home := t.TempDir()
	reg, err := New(home)
	require.NoError(t, err)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		dir := filepath.Join(home, name)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, reg.Add(name, dir))
	}

	all, err := reg.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, []string{all[0].Name, all[1].Name, all[2].Name})
}
