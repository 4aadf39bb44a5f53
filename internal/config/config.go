// Package config provides configuration management for samplem-bridge.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultConfigDir  = ".config/samplem-bridge"
	DefaultConfigFile = "config.yaml"
	DefaultDataDir    = ".local/share/samplem-bridge"
)

// Sentinel errors for configuration operations.
var (
	ErrInvalidKey   = errors.New("invalid configuration key")
	ErrInvalidValue = errors.New("invalid configuration value")
	ErrNoEditor     = errors.New("$EDITOR environment variable not set")
)

// validKeys is built once from Config struct reflection.
var validKeys = buildValidKeys()

// validate is the shared validator instance.
var validate = validator.New()

// Config represents the full samplem-bridge configuration.
type Config struct {
	Executable ExecutableConfig `mapstructure:"executable" yaml:"executable"`
	Defaults   DefaultsConfig   `mapstructure:"defaults" yaml:"defaults"`
	Events     EventsConfig     `mapstructure:"events" yaml:"events"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
}

// ExecutableConfig controls how the samplem binary is found and stopped.
type ExecutableConfig struct {
	Name          string        `mapstructure:"name" yaml:"name" validate:"required"`
	FallbackPaths []string      `mapstructure:"fallback_paths" yaml:"fallback_paths" validate:"dive,required"`
	WaitDelay     time.Duration `mapstructure:"wait_delay" yaml:"wait_delay" validate:"gte=0"`
}

// DefaultsConfig holds the repack options used when flags are not given.
type DefaultsConfig struct {
	Normalize bool   `mapstructure:"normalize" yaml:"normalize"`
	Trim      bool   `mapstructure:"trim" yaml:"trim"`
	Layout    string `mapstructure:"layout" yaml:"layout" validate:"required"`
}

// EventsConfig sizes the per-run event queue.
type EventsConfig struct {
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size" validate:"min=1"`
}

// StorageConfig holds storage location configuration.
type StorageConfig struct {
	History string `mapstructure:"history" yaml:"history" validate:"required"`
	Logs    string `mapstructure:"logs" yaml:"logs" validate:"required"`
}

// Validate checks the configuration for errors using struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Loader provides configuration loading and saving.
type Loader struct {
	v       *viper.Viper
	path    string
	homeDir string
}

// NewLoader creates a new configuration loader.
func NewLoader() (*Loader, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}

	configPath := filepath.Join(home, DefaultConfigDir, DefaultConfigFile)

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// SAMPLEM_BRIDGE_EXECUTABLE_NAME, SAMPLEM_BRIDGE_DEFAULTS_LAYOUT, ...
	v.SetEnvPrefix("SAMPLEM_BRIDGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	//nolint:errcheck // BindEnv only fails with zero arguments
	v.BindEnv("executable.name", "SAMPLEM_BRIDGE_EXECUTABLE_NAME", "SAMPLEM_BIN")

	l := &Loader{
		v:       v,
		path:    configPath,
		homeDir: home,
	}

	// Set defaults before any config reading
	l.setDefaults()

	return l, nil
}

// setDefaults sets all default configuration values using Viper.
func (l *Loader) setDefaults() {
	l.v.SetDefault("executable.name", "samplem")
	l.v.SetDefault("executable.fallback_paths", []string{"/opt/homebrew/bin/samplem", "/usr/local/bin/samplem"})
	l.v.SetDefault("executable.wait_delay", "5s")
	l.v.SetDefault("defaults.normalize", true)
	l.v.SetDefault("defaults.trim", false)
	l.v.SetDefault("defaults.layout", "flat")
	l.v.SetDefault("events.queue_size", 1024)
	l.v.SetDefault("storage.history", "~/"+DefaultDataDir+"/history.json")
	l.v.SetDefault("storage.logs", "~/"+DefaultDataDir+"/logs")
}

// Load reads the configuration file, creating defaults if it doesn't exist.
func (l *Loader) Load() (*Config, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		if err := l.createDefault(); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Storage.History = l.expandPath(cfg.Storage.History)
	cfg.Storage.Logs = l.expandPath(cfg.Storage.Logs)
	for i, p := range cfg.Executable.FallbackPaths {
		cfg.Executable.FallbackPaths[i] = l.expandPath(p)
	}

	return &cfg, nil
}

// Path returns the configuration file path.
func (l *Loader) Path() string {
	return l.path
}

// Get returns a configuration value by dot-notation key.
func (l *Loader) Get(key string) (any, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return l.v.Get(key), nil
}

// Set sets a configuration value by dot-notation key and writes the file.
// The value is rejected, and the previous one kept, if the resulting
// configuration does not decode or validate.
func (l *Loader) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	prev := l.v.Get(key)
	l.v.Set(key, value)

	cfg, err := l.decode()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		l.v.Set(key, prev)
		return fmt.Errorf("%w: %s=%q: %w", ErrInvalidValue, key, value, err)
	}

	return l.v.WriteConfig()
}

// createDefault writes the default configuration file using Viper.
func (l *Loader) createDefault() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	return l.v.SafeWriteConfigAs(l.path)
}

// expandPath replaces ~ with the home directory.
func (l *Loader) expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(l.homeDir, path[2:])
	}
	if path == "~" {
		return l.homeDir
	}
	return path
}

// ValidateKey checks if a key is a valid configuration key.
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	if validKeys[key] {
		return nil
	}

	return fmt.Errorf("%w: %s", ErrInvalidKey, key)
}

// Keys returns every valid dot-notation key.
func Keys() []string {
	keys := make([]string, 0, len(validKeys))
	for k := range validKeys {
		keys = append(keys, k)
	}
	return keys
}

// buildValidKeys builds the set of valid keys from Config struct using reflection.
func buildValidKeys() map[string]bool {
	keys := make(map[string]bool)
	addKeysFromType(reflect.TypeOf(Config{}), "", keys)
	return keys
}

// addKeysFromType recursively adds keys from a struct type.
func addKeysFromType(t reflect.Type, prefix string, keys map[string]bool) {
	for i := range t.NumField() {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		keys[key] = true

		if field.Type.Kind() == reflect.Struct {
			addKeysFromType(field.Type, key, keys)
		}
	}
}
