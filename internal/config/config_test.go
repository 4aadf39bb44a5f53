package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(t *testing.T) (*Loader, string) {
	t.Helper()
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	loader, err := NewLoader()
	require.NoError(t, err)
	return loader, tmpHome
}

func validConfig() *Config {
	return &Config{
		Executable: ExecutableConfig{Name: "samplem", WaitDelay: time.Second},
		Defaults:   DefaultsConfig{Layout: "flat"},
		Events:     EventsConfig{QueueSize: 8},
		Storage:    StorageConfig{History: "/tmp/history.json", Logs: "/tmp/logs"},
	}
}

func TestLoader_Load_CreatesDefaultIfMissing(t *testing.T) {
	loader, tmpHome := newTestLoader(t)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "samplem", cfg.Executable.Name)
	assert.Equal(t, []string{"/opt/homebrew/bin/samplem", "/usr/local/bin/samplem"}, cfg.Executable.FallbackPaths)
	assert.Equal(t, 5*time.Second, cfg.Executable.WaitDelay)
	assert.True(t, cfg.Defaults.Normalize)
	assert.False(t, cfg.Defaults.Trim)
	assert.Equal(t, "flat", cfg.Defaults.Layout)
	assert.Equal(t, 1024, cfg.Events.QueueSize)
	assert.Equal(t, filepath.Join(tmpHome, DefaultDataDir, "history.json"), cfg.Storage.History)
	assert.Equal(t, filepath.Join(tmpHome, DefaultDataDir, "logs"), cfg.Storage.Logs)

	_, err = os.Stat(loader.Path())
	assert.NoError(t, err)
}

func TestLoader_Load_ReadsExistingConfig(t *testing.T) {
	loader, tmpHome := newTestLoader(t)

	configDir := filepath.Join(tmpHome, ".config", "samplem-bridge")
	require.NoError(t, os.MkdirAll(configDir, 0755))

	configContent := `
executable:
  name: /opt/samplem/bin/samplem
  fallback_paths:
    - ~/bin/samplem
  wait_delay: 250ms
defaults:
  normalize: false
  trim: true
  layout: keep
events:
  queue_size: 64
storage:
  history: ~/custom/history.json
  logs: ~/custom/logs
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0644))

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "/opt/samplem/bin/samplem", cfg.Executable.Name)
	assert.Equal(t, []string{filepath.Join(tmpHome, "bin", "samplem")}, cfg.Executable.FallbackPaths)
	assert.Equal(t, 250*time.Millisecond, cfg.Executable.WaitDelay)
	assert.False(t, cfg.Defaults.Normalize)
	assert.True(t, cfg.Defaults.Trim)
	assert.Equal(t, "keep", cfg.Defaults.Layout)
	assert.Equal(t, 64, cfg.Events.QueueSize)
	assert.Equal(t, filepath.Join(tmpHome, "custom", "history.json"), cfg.Storage.History)
	assert.Equal(t, filepath.Join(tmpHome, "custom", "logs"), cfg.Storage.Logs)
}

func TestLoader_Load_RejectsInvalidFile(t *testing.T) {
	loader, tmpHome := newTestLoader(t)

	configDir := filepath.Join(tmpHome, ".config", "samplem-bridge")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("events:\n  queue_size: 0\n"), 0644))

	_, err := loader.Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "QueueSize")
}

func TestLoader_Load_EnvVarOverride(t *testing.T) {
	loader, _ := newTestLoader(t)
	t.Setenv("SAMPLEM_BRIDGE_DEFAULTS_LAYOUT", "flat-prefix")
	t.Setenv("SAMPLEM_BRIDGE_EVENTS_QUEUE_SIZE", "32")
	t.Setenv("SAMPLEM_BIN", "/custom/samplem")

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "flat-prefix", cfg.Defaults.Layout)
	assert.Equal(t, 32, cfg.Events.QueueSize)
	assert.Equal(t, "/custom/samplem", cfg.Executable.Name)
}

func TestLoader_Path(t *testing.T) {
	loader, tmpHome := newTestLoader(t)

	expected := filepath.Join(tmpHome, ".config", "samplem-bridge", "config.yaml")
	assert.Equal(t, expected, loader.Path())
}

func TestLoader_Get(t *testing.T) {
	loader, _ := newTestLoader(t)
	_, err := loader.Load()
	require.NoError(t, err)

	t.Run("valid key returns value", func(t *testing.T) {
		val, err := loader.Get("defaults.layout")
		require.NoError(t, err)
		assert.Equal(t, "flat", val)
	})

	t.Run("invalid key returns error", func(t *testing.T) {
		_, err := loader.Get("invalid.key")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestLoader_Set(t *testing.T) {
	loader, _ := newTestLoader(t)
	_, err := loader.Load()
	require.NoError(t, err)

	t.Run("sets string key", func(t *testing.T) {
		require.NoError(t, loader.Set("defaults.layout", "keep"))

		val, err := loader.Get("defaults.layout")
		require.NoError(t, err)
		assert.Equal(t, "keep", val)
	})

	t.Run("sets typed keys from strings", func(t *testing.T) {
		require.NoError(t, loader.Set("defaults.trim", "true"))
		require.NoError(t, loader.Set("events.queue_size", "16"))
		require.NoError(t, loader.Set("executable.wait_delay", "2s"))

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.True(t, cfg.Defaults.Trim)
		assert.Equal(t, 16, cfg.Events.QueueSize)
		assert.Equal(t, 2*time.Second, cfg.Executable.WaitDelay)
	})

	t.Run("persists to file", func(t *testing.T) {
		require.NoError(t, loader.Set("executable.name", "/usr/bin/samplem"))

		data, err := os.ReadFile(loader.Path())
		require.NoError(t, err)
		assert.Contains(t, string(data), "/usr/bin/samplem")
	})

	t.Run("rejects invalid key", func(t *testing.T) {
		err := loader.Set("invalid.key", "value")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("rejects undecodable value and keeps previous", func(t *testing.T) {
		err := loader.Set("events.queue_size", "lots")
		assert.ErrorIs(t, err, ErrInvalidValue)

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, 16, cfg.Events.QueueSize)
	})

	t.Run("rejects value failing validation", func(t *testing.T) {
		err := loader.Set("events.queue_size", "0")
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("rejects empty executable", func(t *testing.T) {
		err := loader.Set("executable.name", "")
		assert.ErrorIs(t, err, ErrInvalidValue)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("missing executable name", func(t *testing.T) {
		cfg := validConfig()
		cfg.Executable.Name = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Name")
	})

	t.Run("empty fallback path", func(t *testing.T) {
		cfg := validConfig()
		cfg.Executable.FallbackPaths = []string{"/usr/bin/samplem", ""}
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative wait delay", func(t *testing.T) {
		cfg := validConfig()
		cfg.Executable.WaitDelay = -time.Second
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero queue size", func(t *testing.T) {
		cfg := validConfig()
		cfg.Events.QueueSize = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown layout is allowed", func(t *testing.T) {
		cfg := validConfig()
		cfg.Defaults.Layout = "by-date"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing storage", func(t *testing.T) {
		cfg := validConfig()
		cfg.Storage = StorageConfig{}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "History")
	})
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"executable.name is valid", "executable.name", nil},
		{"executable.fallback_paths is valid", "executable.fallback_paths", nil},
		{"executable.wait_delay is valid", "executable.wait_delay", nil},
		{"defaults.layout is valid", "defaults.layout", nil},
		{"events.queue_size is valid", "events.queue_size", nil},
		{"storage.history is valid", "storage.history", nil},
		{"storage is valid", "storage", nil},
		{"unknown.key returns error", "unknown.key", ErrInvalidKey},
		{"empty key returns error", "", ErrInvalidKey},
		{"random key returns error", "foo", ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()

	assert.Contains(t, keys, "defaults.normalize")
	assert.Contains(t, keys, "storage.logs")
	for _, k := range keys {
		assert.NoError(t, ValidateKey(k))
	}
}

func TestLoader_expandPath(t *testing.T) {
	tmpHome := "/home/test"
	loader := &Loader{homeDir: tmpHome}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"expands ~/ prefix", "~/foo", filepath.Join(tmpHome, "foo")},
		{"expands ~ alone", "~", tmpHome},
		{"preserves absolute path", "/absolute/path", "/absolute/path"},
		{"preserves relative path", "relative/path", "relative/path"},
		{"handles nested paths", "~/foo/bar/baz", filepath.Join(tmpHome, "foo", "bar", "baz")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, loader.expandPath(tt.input))
		})
	}
}
