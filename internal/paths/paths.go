// Package paths resolves where larder keeps its configuration and data.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "larder"

// Directory names used relative to the working directory.
const (
	DefaultConfigDirName = ".larder"
	DefaultDataDirName   = ".larder-db"
	ConfigFileName       = "config.yaml"
)

// Environment overrides.
const (
	EnvConfigDir = "LARDER_CONFIG_DIR"
	EnvDataDir   = "LARDER_DATA_DIR"
)

// platformDir can be swapped in tests.
var platformDir = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// userDir returns the per-user directory for AppName. On Linux it honors
// xdgVar and falls back to home/fallback; elsewhere it uses the platform
// config directory for both configuration and data.
func userDir(xdgVar string, fallback ...string) (string, error) {
	if platformDir.goos != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, AppName)...), nil
}

// UserConfigDir returns the per-user configuration directory, e.g.
// ~/.config/larder on Linux.
func UserConfigDir() (string, error) {
	return userDir("XDG_CONFIG_HOME", ".config")
}

// UserDataDir returns the per-user data directory, e.g.
// ~/.local/share/larder on Linux.
func UserDataDir() (string, error) {
	return userDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir picks the configuration directory: flag, then
// LARDER_CONFIG_DIR, then ./.larder.
func ResolveConfigDir(flag string) (string, error) {
	return firstAbs(flag, os.Getenv(EnvConfigDir), DefaultConfigDirName)
}

// ResolveDataDir picks the data directory: flag, then the data_dir value of
// config.yaml, then LARDER_DATA_DIR, then ./.larder-db.
func ResolveDataDir(flag, configured string) (string, error) {
	return firstAbs(flag, configured, os.Getenv(EnvDataDir), DefaultDataDirName)
}

// ConfigFile returns the path of config.yaml inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

func firstAbs(candidates ...string) (string, error) {
	for _, c := range candidates {
		if c != "" {
			return filepath.Abs(c)
		}
	}
	return os.Getwd()
}
