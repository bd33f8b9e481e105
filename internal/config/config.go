// internal/config/config.go
//
// This package handles configuration and the .switchboard directory structure.
// Every project that uses switchboard gets a .switchboard/ folder in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// ProjectDirName is the directory created in each project.
	ProjectDirName = ".switchboard"

	// EnvPrefix namespaces the environment overrides.
	EnvPrefix = "SWITCHBOARD"

	defaultSettingsFile = "settings.yaml"
	defaultPluginsDir   = "plugins"
	defaultLogFile      = "logs/switchboard.log"
	defaultLogLevel     = "info"
)

const defaultProjectConfigYAML = `# switchboard project configuration
version: 1

# Settings file holding the component gates (relative to .switchboard/).
settings_file: settings.yaml

# Directory scanned for YAML and Go component plugins (relative to .switchboard/).
plugins_dir: plugins

log:
  level: info
  file: logs/switchboard.log

builtins:
  # Built-in component ids that should not be registered.
  disabled: []
`

const defaultSettingsYAML = `# component gates; a component with a key listed here is activated only when
# the first key it declares is true.
roll:
  enabled: true
motd:
  enabled: false
`

// LogConfig controls the logbook.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// BuiltinsConfig selects which builtin components register.
type BuiltinsConfig struct {
	Disabled []string `yaml:"disabled,omitempty"`
}

// ProjectConfig models .switchboard/config.yaml.
type ProjectConfig struct {
	Version      int            `yaml:"version"`
	SettingsFile string         `yaml:"settings_file"`
	PluginsDir   string         `yaml:"plugins_dir"`
	Log          LogConfig      `yaml:"log"`
	Builtins     BuiltinsConfig `yaml:"builtins"`
}

// EnvOverrides are read from SWITCHBOARD_* variables and win over the file.
type EnvOverrides struct {
	LogLevel     string `envconfig:"LOG_LEVEL"`
	LogFile      string `envconfig:"LOG_FILE"`
	SettingsFile string `envconfig:"SETTINGS_FILE"`
	PluginsDir   string `envconfig:"PLUGINS_DIR"`
}

// Config holds the runtime configuration for one project.
type Config struct {
	// ProjectDir is the directory the user ran switchboard from.
	ProjectDir string

	// StateDir is ProjectDir/.switchboard.
	StateDir string

	Project ProjectConfig
}

// InitDir creates the .switchboard directory structure and writes default
// config and settings files when they are missing.
//
// Structure created:
// .switchboard/
// ├── config.yaml
// ├── settings.yaml
// ├── logs/
// └── plugins/
func InitDir(projectDir string) error {
	stateDir := filepath.Join(projectDir, ProjectDirName)
	dirs := []string{
		stateDir,
		filepath.Join(stateDir, "logs"),
		filepath.Join(stateDir, defaultPluginsDir),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	if err := ensureFile(filepath.Join(stateDir, "config.yaml"), defaultProjectConfigYAML); err != nil {
		return err
	}
	return ensureFile(filepath.Join(stateDir, defaultSettingsFile), defaultSettingsYAML)
}

// Load reads .switchboard/config.yaml under projectDir, applies environment
// overrides and validates the result. A missing file yields the defaults.
func Load(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", projectDir, err)
	}
	cfg := &Config{
		ProjectDir: abs,
		StateDir:   filepath.Join(abs, ProjectDirName),
		Project:    defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	var env EnvOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	cfg.Project.applyEnv(env)
	cfg.Project.normalize()
	if err := cfg.Project.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.StateDir, "config.yaml")
}

// SettingsPath returns the absolute path of the settings file.
func (c *Config) SettingsPath() string {
	return resolvePath(c.StateDir, c.Project.SettingsFile)
}

// PluginsDir returns the absolute plugin directory.
func (c *Config) PluginsDir() string {
	return resolvePath(c.StateDir, c.Project.PluginsDir)
}

// LogPath returns the absolute log file path.
func (c *Config) LogPath() string {
	return resolvePath(c.StateDir, c.Project.Log.File)
}

// LogLevel returns the configured log level.
func (c *Config) LogLevel() string {
	return c.Project.Log.Level
}

// DisabledBuiltins returns the builtin ids that should not register.
func (c *Config) DisabledBuiltins() []string {
	return append([]string(nil), c.Project.Builtins.Disabled...)
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	parsed := defaultProjectConfig()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version:      1,
		SettingsFile: defaultSettingsFile,
		PluginsDir:   defaultPluginsDir,
		Log: LogConfig{
			Level: defaultLogLevel,
			File:  defaultLogFile,
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Log.Level) == "" {
		pc.Log.Level = defaultLogLevel
	}
}

func (pc *ProjectConfig) applyEnv(env EnvOverrides) {
	if v := strings.TrimSpace(env.LogLevel); v != "" {
		pc.Log.Level = v
	}
	if v := strings.TrimSpace(env.LogFile); v != "" {
		pc.Log.File = v
	}
	if v := strings.TrimSpace(env.SettingsFile); v != "" {
		pc.SettingsFile = v
	}
	if v := strings.TrimSpace(env.PluginsDir); v != "" {
		pc.PluginsDir = v
	}
}

func (pc *ProjectConfig) normalize() {
	pc.SettingsFile = strings.TrimSpace(pc.SettingsFile)
	pc.PluginsDir = strings.TrimSpace(pc.PluginsDir)
	pc.Log.File = strings.TrimSpace(pc.Log.File)
	pc.Log.Level = strings.ToLower(strings.TrimSpace(pc.Log.Level))
	disabled := pc.Builtins.Disabled[:0]
	for _, id := range pc.Builtins.Disabled {
		if id = strings.TrimSpace(id); id != "" {
			disabled = append(disabled, id)
		}
	}
	pc.Builtins.Disabled = disabled
}

// Validate checks the version and required paths.
func (pc ProjectConfig) Validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.SettingsFile == "" {
		return fmt.Errorf("settings_file is required")
	}
	if pc.PluginsDir == "" {
		return fmt.Errorf("plugins_dir is required")
	}
	if pc.Log.File == "" {
		return fmt.Errorf("log.file is required")
	}
	switch pc.Log.Level {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("log.level %q is not one of trace, debug, info, warn, error, disabled", pc.Log.Level)
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureFile(path, contents string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
