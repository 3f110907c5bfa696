// Package paths resolves where llmfill keeps its files on disk.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "llmfill"

// DefaultDirPerm is the default permission for newly created directories (private).
const DefaultDirPerm = 0o700

// ConfigHome returns the XDG config home directory.
// On Linux: ~/.config
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func ConfigHome() string {
	return xdg.ConfigHome
}

// AppDir returns the llmfill configuration directory.
// Returns: <ConfigHome>/llmfill/
func AppDir() string {
	return filepath.Join(ConfigHome(), AppName)
}

// ConfigPath returns the path of the persisted configuration document.
// Returns: <ConfigHome>/llmfill/config.json
func ConfigPath() string {
	return filepath.Join(AppDir(), "config.json")
}

// BackupDir returns the side location for pre-migration snapshots. It is
// deliberately never the primary config slot.
// Returns: <ConfigHome>/llmfill/backups/
func BackupDir() string {
	return filepath.Join(AppDir(), "backups")
}

// LogPath returns the default log file location.
// Returns: <StateHome>/llmfill/llmfill.log
func LogPath() string {
	return filepath.Join(xdg.StateHome, AppName, AppName+".log")
}

// EnsureDir creates the directory and any necessary parents with specified
// permissions. If perm is 0, DefaultDirPerm (0700) is used. Idempotent.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}
