package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/kotas/myqueue/common"
)

const (
	myqueueDir    = "myqueue"
	myqueueDbFile = "myqueue.db"
)

// GetOrCreateDefaultDBPath returns the SQLite file used when no DSN is configured.
// An existing file wins over the preferred location, so changed env vars don't hide an old database.
func GetOrCreateDefaultDBPath() (string, error) {
	var existingPaths []string
	for _, path := range possibleDBPaths() {
		if _, err := os.Stat(path); err == nil {
			existingPaths = append(existingPaths, path)
		}
	}

	if len(existingPaths) > 1 {
		return "", fmt.Errorf("multiple database files found at: %v. Please remove duplicates manually", existingPaths)
	}
	if len(existingPaths) == 1 {
		return existingPaths[0], nil
	}

	preferredPath := possibleDBPaths()[0]
	dir := filepath.Dir(preferredPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return preferredPath, nil
}

// possibleDBPaths lists candidate locations, preferred first. It is never empty.
func possibleDBPaths() []string {
	var dataDirs []string
	homeDir, _ := os.UserHomeDir()

	switch runtime.GOOS {
	case common.WindowsOS:
		dataDirs = append(dataDirs, os.Getenv("APPDATA"), os.Getenv("LOCALAPPDATA"), homeDir)
	case common.MacOS:
		if homeDir != "" {
			dataDirs = append(dataDirs, filepath.Join(homeDir, "Library", "Application Support"))
		}
		dataDirs = append(dataDirs, homeDir)
	default:
		dataDirs = append(dataDirs, os.Getenv("XDG_DATA_HOME"))
		if homeDir != "" {
			dataDirs = append(dataDirs, filepath.Join(homeDir, ".local", "share"))
		}
		dataDirs = append(dataDirs, homeDir)
	}

	var paths []string
	for _, dataDir := range dataDirs {
		if dataDir != "" {
			paths = append(paths, toDbFilePath(dataDir))
		}
	}
	if len(paths) == 0 {
		paths = append(paths, toDbFilePath(""))
	}
	return paths
}

func toDbFilePath(dataDir string) string {
	return filepath.Join(dataDir, myqueueDir, myqueueDbFile)
}
