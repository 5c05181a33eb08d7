// Package config loads the born-ops configuration file.
//
//	[log]
//	level = "info"
//
//	[symbolic]
//	allow_dynamic_output_shapes = true
//
//	[dispatch]
//	trace = false
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/born-ml/customop/internal/logging"
)

// Environment overrides, applied after the file.
const (
	EnvLogLevel      = logging.EnvLogLevel
	EnvDynamicShapes = "BORN_OPS_DYNAMIC_SHAPES"
)

// Config is the born-ops configuration file.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Symbolic SymbolicConfig `toml:"symbolic"`
	Dispatch DispatchConfig `toml:"dispatch"`
}

// LogConfig is the [log] section.
type LogConfig struct {
	Level string `toml:"level"`
}

// SymbolicConfig is the [symbolic] section. AllowDynamicOutputShapes
// decides whether abstract kernels may create unbacked sizes.
type SymbolicConfig struct {
	AllowDynamicOutputShapes bool `toml:"allow_dynamic_output_shapes"`
}

// DispatchConfig is the [dispatch] section. Trace logs every kernel
// selection at info level.
type DispatchConfig struct {
	Trace bool `toml:"trace"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Log:      LogConfig{Level: "info"},
		Symbolic: SymbolicConfig{AllowDynamicOutputShapes: true},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty or missing path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadToml(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if raw := strings.TrimSpace(os.Getenv(EnvLogLevel)); raw != "" {
		cfg.Log.Level = raw
	}
	if raw := strings.TrimSpace(os.Getenv(EnvDynamicShapes)); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvDynamicShapes, raw, err)
		}
		cfg.Symbolic.AllowDynamicOutputShapes = v
	}
	return nil
}

// Validate checks field values.
func Validate(cfg Config) error {
	if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error, off", cfg.Log.Level)
	}
	return nil
}
