package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/kotas/myqueue/common"
	"github.com/stretchr/testify/require"
)

func skipUnlessLinux(t *testing.T) {
	if runtime.GOOS != common.LinuxOS {
		t.Skip("data dir layout is checked on linux only")
	}
}

func TestPossibleDBPaths(t *testing.T) {
	skipUnlessLinux(t)
	dataHome := t.TempDir()
	homeDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)
	t.Setenv("HOME", homeDir)

	require.Equal(t, []string{
		filepath.Join(dataHome, "myqueue", "myqueue.db"),
		filepath.Join(homeDir, ".local", "share", "myqueue", "myqueue.db"),
		filepath.Join(homeDir, "myqueue", "myqueue.db"),
	}, possibleDBPaths())
}

func TestGetOrCreateDefaultDBPath_CreatesPreferredDir(t *testing.T) {
	skipUnlessLinux(t)
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)
	t.Setenv("HOME", t.TempDir())

	path, err := GetOrCreateDefaultDBPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dataHome, "myqueue", "myqueue.db"), path)
	require.DirExists(t, filepath.Dir(path))
	require.NoFileExists(t, path)
}

func TestGetOrCreateDefaultDBPath_PrefersExistingFile(t *testing.T) {
	skipUnlessLinux(t)
	homeDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("HOME", homeDir)

	existing := filepath.Join(homeDir, "myqueue", "myqueue.db")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0755))
	require.NoError(t, os.WriteFile(existing, nil, 0644))

	path, err := GetOrCreateDefaultDBPath()
	require.NoError(t, err)
	require.Equal(t, existing, path)
}

func TestGetOrCreateDefaultDBPath_MultipleFiles(t *testing.T) {
	skipUnlessLinux(t)
	dataHome := t.TempDir()
	homeDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)
	t.Setenv("HOME", homeDir)

	for _, dir := range []string{dataHome, homeDir} {
		path := filepath.Join(dir, "myqueue", "myqueue.db")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, nil, 0644))
	}

	_, err := GetOrCreateDefaultDBPath()
	require.ErrorContains(t, err, "multiple database files found")
}
