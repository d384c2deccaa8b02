package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for xcodemcp.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Session  SessionConfig  `json:"session"`
	Executor ExecutorConfig `json:"executor"`
	Audit    AuditConfig    `json:"audit"`
	Metrics  MetricsConfig  `json:"metrics"`
	Tools    ToolsConfig    `json:"tools"`
}

type GeneralConfig struct {
	Workspace string `json:"workspace"` // project directory tools run in
	LogLevel  string `json:"logLevel"`
	LogFile   string `json:"logFile,omitempty"` // optional log file path
}

// SessionConfig controls where session defaults come from and whether they
// outlive the process.
type SessionConfig struct {
	Persist       bool   `json:"persist"`
	DBPath        string `json:"dbPath"`
	ProjectConfig string `json:"projectConfig"` // YAML file, relative to the workspace
}

type ExecutorConfig struct {
	TimeoutSeconds int               `json:"timeoutSeconds"`
	MaxOutputBytes int               `json:"maxOutputBytes"`
	Shell          string            `json:"shell"`
	Env            map[string]string `json:"env,omitempty"` // added to every command, e.g. DEVELOPER_DIR
}

type AuditConfig struct {
	Enabled bool `json:"enabled"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

type ToolsConfig struct {
	Disabled []string `json:"disabled,omitempty"`
}

// DefaultConfigDir returns the default config directory (~/.xcodemcp).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".xcodemcp"
	}
	return filepath.Join(home, ".xcodemcp")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.Workspace = ExpandPath(cfg.General.Workspace)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Session.DBPath = ExpandPath(cfg.Session.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty; an unset VAR
// without a default is left as is.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		hasDefault := len(groups) >= 3 && groups[2] != ""

		val, exists := os.LookupEnv(groups[1])
		if !exists || val == "" {
			if hasDefault {
				return groups[2]
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	if cfg.General.Workspace == "" {
		errs = append(errs, "general.workspace is required")
	}

	if (cfg.Session.Persist || cfg.Audit.Enabled) && cfg.Session.DBPath == "" {
		errs = append(errs, "session.dbPath is required when session.persist or audit.enabled is set")
	}

	if cfg.Executor.TimeoutSeconds < 1 || cfg.Executor.TimeoutSeconds > 7200 {
		errs = append(errs, "executor.timeoutSeconds must be between 1 and 7200")
	}
	if cfg.Executor.MaxOutputBytes < 1024 {
		errs = append(errs, "executor.maxOutputBytes must be >= 1024")
	}
	if cfg.Executor.Shell == "" {
		errs = append(errs, "executor.shell is required")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ProjectConfigPath resolves session.projectConfig against the workspace.
func (c *Config) ProjectConfigPath() string {
	p := ExpandPath(c.Session.ProjectConfig)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.General.Workspace, p)
}
