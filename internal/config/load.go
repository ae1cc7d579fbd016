package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/simscene/internal/logger"
)

// FileName is the config file name looked up in standard locations.
const FileName = "simscene.yaml"

// EnvConfig names the environment variable that points at a config file.
// It is consulted after the -config flag and before the standard locations.
const EnvConfig = "SIMSCENE_CONFIG"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Load loads configuration with priority: defaults < file < flags.
// The merged result is validated before it is returned.
func Load() (*Config, error) {
	cfg := Default()

	configPath := ConfigPath()
	if configPath == "" {
		configPath = os.Getenv(EnvConfig)
	}
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that would only fail later, mid-export.
func (c *Config) Validate() error {
	if c.Export.Output == "" {
		return fmt.Errorf("%w: export.output is empty", ErrInvalidConfig)
	}
	if ext := strings.ToLower(filepath.Ext(c.Export.Output)); ext != ".glb" {
		return fmt.Errorf("%w: export.output %q is not a .glb file", ErrInvalidConfig, c.Export.Output)
	}

	for i, v := range c.Material.BaseColor {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: material.base_color[%d] = %g outside [0, 1]", ErrInvalidConfig, i, v)
		}
	}
	if c.Material.Metallic < 0 || c.Material.Metallic > 1 {
		return fmt.Errorf("%w: material.metallic = %g outside [0, 1]", ErrInvalidConfig, c.Material.Metallic)
	}
	if c.Material.Roughness < 0 || c.Material.Roughness > 1 {
		return fmt.Errorf("%w: material.roughness = %g outside [0, 1]", ErrInvalidConfig, c.Material.Roughness)
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		filepath.Join(".", FileName),
		filepath.Join(ConfigDir(), FileName),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "SimScene")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "SimScene")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "simscene")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "simscene")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
// Unknown keys are rejected so that typos do not silently fall back to defaults.
func loadFromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
