package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig is the per-project YAML file checked in next to the Xcode
// project, typically .xcodemcp/config.yaml:
//
//	sessionDefaults:
//	  workspacePath: App.xcworkspace
//	  scheme: App
//	  simulatorName: iPhone 16
//	disabledTools: [launch_app_device]
type ProjectConfig struct {
	SessionDefaults map[string]any `yaml:"sessionDefaults"`
	DisabledTools   []string       `yaml:"disabledTools"`
}

// LoadProject reads a project config. A missing file yields an empty config.
func LoadProject(path string) (*ProjectConfig, error) {
	pc := &ProjectConfig{}
	if path == "" {
		return pc, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return pc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read project config %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(ExpandEnvVars(string(data))), pc); err != nil {
		return nil, fmt.Errorf("parse project config %s: %w", path, err)
	}
	return pc, nil
}

// SaveProject writes pc as YAML, creating parent directories.
func SaveProject(path string, pc *ProjectConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create project config directory: %w", err)
	}
	data, err := yaml.Marshal(pc)
	if err != nil {
		return fmt.Errorf("cannot marshal project config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// DisabledTools merges the global and project disable lists.
func DisabledTools(cfg *Config, pc *ProjectConfig) []string {
	out := append([]string(nil), cfg.Tools.Disabled...)
	if pc != nil {
		out = append(out, pc.DisabledTools...)
	}
	return out
}
