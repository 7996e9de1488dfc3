// Package config loads and saves livecanvas configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"livecanvas/internal/render"
)

// Config holds all livecanvas configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Authored source document
	Source SourceConfig `yaml:"source"`

	// Code generation
	Codegen CodegenConfig `yaml:"codegen"`

	// Element origin registry
	Registry RegistryConfig `yaml:"registry"`

	// Render surface
	Render render.Config `yaml:"render"`

	// Scheduler
	Session SessionConfig `yaml:"session"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig identifies the authored component file.
type SourceConfig struct {
	Path      string `yaml:"path"`       // authored .js file
	OwnSymbol string `yaml:"own_symbol"` // the component's exported symbol
	// Watch enables reloading the session when the file is edited
	// externally.
	Watch bool `yaml:"watch"`
}

// CodegenConfig tunes the construction idiom the generator emits.
type CodegenConfig struct {
	SharedModule string `yaml:"shared_module"` // shared element factory module
	MixinModule  string `yaml:"mixin_module"`  // mixin import that always survives
}

// RegistryConfig selects where element origins come from.
type RegistryConfig struct {
	Driver string `yaml:"driver"` // json, sqlite
	Path   string `yaml:"path"`
}

// SessionConfig tunes the scheduler.
type SessionConfig struct {
	Debounce string `yaml:"debounce"` // decoration coalescing window
}

// LoggingConfig configures category file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "livecanvas",
		Version: "0.3.0",

		Source: SourceConfig{
			Path:  "src/pages/Page.js",
			Watch: true,
		},

		Codegen: CodegenConfig{
			SharedModule: "@canvas/elements",
			MixinModule:  "@canvas/live",
		},

		Registry: RegistryConfig{
			Driver: "json",
			Path:   ".canvas/elements.json",
		},

		Render: render.DefaultConfig(),

		Session: SessionConfig{
			Debounce: "250ms",
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("CANVAS_DEBUGGER_URL"); url != "" {
		c.Render.DebuggerURL = url
	}
	if path := os.Getenv("CANVAS_REGISTRY"); path != "" {
		c.Registry.Path = path
	}
	if path := os.Getenv("CANVAS_SOURCE"); path != "" {
		c.Source.Path = path
	}
	if os.Getenv("CANVAS_DEBUG") != "" {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
}

// GetDebounce returns the scheduler debounce window as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Session.Debounce)
	if err != nil || d <= 0 {
		return 250 * time.Millisecond
	}
	return d
}
