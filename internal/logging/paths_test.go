package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathManager_BaseDir(t *testing.T) {
	pm := NewPathManager("/var/log/samplem-bridge")
	assert.Equal(t, "/var/log/samplem-bridge", pm.BaseDir())
}

func TestPathManager_RunLogPath(t *testing.T) {
	pm := NewPathManager("/var/log/samplem-bridge")
	assert.Equal(t, "/var/log/samplem-bridge/abc123.log", pm.RunLogPath("abc123"))
}

func TestPathManager_EnsureRunLog(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "nested", "logs")
	pm := NewPathManager(baseDir)

	path, err := pm.EnsureRunLog("run1")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(baseDir, "run1.log"), path)

	info, err := os.Stat(baseDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPathManager_LogExists(t *testing.T) {
	pm := NewPathManager(t.TempDir())

	assert.False(t, pm.LogExists("run1"))

	path, err := pm.EnsureRunLog("run1")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("test"), 0o644))

	assert.True(t, pm.LogExists("run1"))
}

func TestPathManager_RemoveRunLog(t *testing.T) {
	pm := NewPathManager(t.TempDir())

	path, err := pm.EnsureRunLog("run1")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("test"), 0o644))

	require.NoError(t, pm.RemoveRunLog("run1"))
	assert.False(t, pm.LogExists("run1"))

	// Removing non-existent should not error
	require.NoError(t, pm.RemoveRunLog("nonexistent"))
}

func TestPathManager_ListRunLogs(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		pm := NewPathManager(filepath.Join(t.TempDir(), "missing"))

		runs, err := pm.ListRunLogs()
		require.NoError(t, err)
		assert.Nil(t, runs)
	})

	t.Run("lists transcripts only", func(t *testing.T) {
		pm := NewPathManager(t.TempDir())
		for _, run := range []string{"gamma", "alpha", "beta"} {
			path, err := pm.EnsureRunLog(run)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(path, []byte("test"), 0o644))
		}
		require.NoError(t, os.WriteFile(filepath.Join(pm.BaseDir(), "other.txt"), []byte("x"), 0o644))
		require.NoError(t, os.Mkdir(filepath.Join(pm.BaseDir(), "dir.log"), 0o755))

		runs, err := pm.ListRunLogs()
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "beta", "gamma"}, runs)
	})
}
