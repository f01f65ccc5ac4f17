package paths

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withPlatform overrides platform detection for one test.
func withPlatform(t *testing.T, goos, home, userConfig string) {
	t.Helper()
	saved := platformDir
	t.Cleanup(func() { platformDir = saved })
	platformDir.goos = goos
	platformDir.homeDir = func() (string, error) { return home, nil }
	platformDir.userConfigDir = func() (string, error) { return userConfig, nil }
}

func TestUserDirs(t *testing.T) {
	t.Run("linux honors XDG", func(t *testing.T) {
		withPlatform(t, "linux", "/home/u", "")
		t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
		t.Setenv("XDG_DATA_HOME", "/xdg/data")

		got, err := UserConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/xdg/config/larder", got)
		got, err = UserDataDir()
		require.NoError(t, err)
		assert.Equal(t, "/xdg/data/larder", got)
	})

	t.Run("linux falls back to home", func(t *testing.T) {
		withPlatform(t, "linux", "/home/u", "")
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("XDG_DATA_HOME", "")

		got, err := UserConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/home/u/.config/larder", got)
		got, err = UserDataDir()
		require.NoError(t, err)
		assert.Equal(t, "/home/u/.local/share/larder", got)
	})

	t.Run("darwin uses the platform config dir", func(t *testing.T) {
		withPlatform(t, "darwin", "/Users/u", "/Users/u/Library/Application Support")

		got, err := UserDataDir()
		require.NoError(t, err)
		assert.Equal(t, "/Users/u/Library/Application Support/larder", got)
	})

	t.Run("platform error propagates", func(t *testing.T) {
		withPlatform(t, "windows", "", "")
		platformDir.userConfigDir = func() (string, error) { return "", errors.New("no appdata") }
		_, err := UserConfigDir()
		assert.Error(t, err)
	})
}

func TestResolveConfigDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name string
		flag string
		env  string
		want string
	}{
		{"flag wins over env", "/explicit/config", "/env/config", "/explicit/config"},
		{"env when flag empty", "", "/env/config", "/env/config"},
		{"working directory default", "", "", filepath.Join(cwd, DefaultConfigDirName)},
		{"relative flag becomes absolute", "rel/config", "", filepath.Join(cwd, "rel/config")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.env)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name       string
		flag       string
		configured string
		env        string
		want       string
	}{
		{"flag wins over all", "/flag/data", "/config/data", "/env/data", "/flag/data"},
		{"config.yaml wins over env", "", "/config/data", "/env/data", "/config/data"},
		{"env when flag and config empty", "", "", "/env/data", "/env/data"},
		{"working directory default", "", "", "", filepath.Join(cwd, DefaultDataDirName)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.env)
			got, err := ResolveDataDir(tt.flag, tt.configured)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigFile(t *testing.T) {
	assert.Equal(t, filepath.Join("/cfg", "config.yaml"), ConfigFile("/cfg"))
}
