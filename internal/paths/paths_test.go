package paths

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHome points the platform lookups at dir for the duration of the test.
func fakeHome(t *testing.T, dir string) {
	t.Helper()
	saved := platformDir
	platformDir.homeDir = func() (string, error) { return dir, nil }
	platformDir.userConfigDir = func() (string, error) { return filepath.Join(dir, "AppData"), nil }
	t.Cleanup(func() { platformDir = saved })
}

func TestDefaultDirs_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}
	fakeHome(t, "/home/u")

	t.Run("XDG variables win", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-config/pfs", got)

		got, err = DefaultDataDir()
		require.NoError(t, err)
		assert.Equal(t, "/tmp/xdg-data/pfs", got)
	})

	t.Run("home fallbacks", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("XDG_DATA_HOME", "")

		got, err := DefaultConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/home/u/.config/pfs", got)

		got, err = DefaultDataDir()
		require.NoError(t, err)
		assert.Equal(t, "/home/u/.local/share/pfs", got)
	})

	t.Run("home lookup failure", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		platformDir.homeDir = func() (string, error) { return "", errors.New("no home") }
		_, err := DefaultConfigDir()
		assert.Error(t, err)
	})
}

func TestDefaultDirs_NonLinux(t *testing.T) {
	if runtime.GOOS == "linux" {
		t.Skip("non-linux test")
	}
	fakeHome(t, "/u")

	cfg, err := DefaultConfigDir()
	require.NoError(t, err)
	data, err := DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/u", "AppData", "pfs"), cfg)
	assert.Equal(t, cfg, data)
}

func TestResolveConfigDir(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		envVal  string
		wantSub string // substring the result must contain
	}{
		{name: "flag wins over env", flag: "/explicit/config", envVal: "/env/config", wantSub: "/explicit/config"},
		{name: "env wins when flag empty", envVal: "/env/config", wantSub: "/env/config"},
		{name: "platform default when both empty", wantSub: AppName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.envVal)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Contains(t, got, tt.wantSub)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	fakeHome(t, "/home/u")
	t.Setenv("XDG_DATA_HOME", "/xdg")
	platformDefault, err := DefaultDataDir()
	require.NoError(t, err)

	tests := []struct {
		name          string
		flag          string
		configYAMLVal string
		envVal        string
		want          string
	}{
		{name: "flag wins over all", flag: "/flag/data", configYAMLVal: "/config/data", envVal: "/env/data", want: "/flag/data"},
		{name: "config.yaml wins over env", configYAMLVal: "/config/data", envVal: "/env/data", want: "/config/data"},
		{name: "env wins when flag and config empty", envVal: "/env/data", want: "/env/data"},
		{name: "platform default when all empty", want: platformDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.envVal)
			got, err := ResolveDataDir(tt.flag, tt.configYAMLVal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveBackupDir(t *testing.T) {
	got, err := ResolveBackupDir("/flag", "/cfg", "/data")
	require.NoError(t, err)
	assert.Equal(t, "/flag", got)

	got, err = ResolveBackupDir("", "/cfg", "/data")
	require.NoError(t, err)
	assert.Equal(t, "/cfg", got)

	got, err = ResolveBackupDir("", "", "/data")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data", BackupDirName), got)
}

func TestResolve_RelativeBecomesAbsolute(t *testing.T) {
	t.Setenv(EnvConfigDir, "relative/env")
	t.Setenv(EnvDataDir, "")

	for name, resolve := range map[string]func() (string, error){
		"config env":  func() (string, error) { return ResolveConfigDir("") },
		"config flag": func() (string, error) { return ResolveConfigDir("relative/path") },
		"data flag":   func() (string, error) { return ResolveDataDir("relative/path", "") },
		"data config": func() (string, error) { return ResolveDataDir("", "relative/config") },
		"backup flag": func() (string, error) { return ResolveBackupDir("rel", "", "/data") },
	} {
		t.Run(name, func(t *testing.T) {
			got, err := resolve()
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)
		})
	}
}
