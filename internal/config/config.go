// Package config loads CoreConfig, the set of operator-tunable values the
// core otherwise treats as named constants (repeat-command thresholds, the
// turn output budget, exec timeouts and output caps, read-code line/byte
// caps). A user-level YAML file supplies defaults across projects; a
// project-level JSON file overrides them per-repo, following the standard
// merge precedence (project overrides user overrides built-in default).
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// CoreConfig carries the tunables the core otherwise treats as named constants.
type CoreConfig struct {
	RepeatMaxRepeats      int `yaml:"repeat_max_repeats,omitempty" json:"repeat_max_repeats,omitempty"`
	RepeatWindowSeconds   int `yaml:"repeat_window_seconds,omitempty" json:"repeat_window_seconds,omitempty"`
	RepeatPreviewBytes    int `yaml:"repeat_preview_bytes,omitempty" json:"repeat_preview_bytes,omitempty"`
	TurnOutputMaxBytes    int `yaml:"turn_output_max_bytes,omitempty" json:"turn_output_max_bytes,omitempty"`
	ExecDefaultTimeoutMS  int `yaml:"exec_default_timeout_ms,omitempty" json:"exec_default_timeout_ms,omitempty"`
	ExecGenericOutputMaxBytes int `yaml:"exec_generic_output_max_bytes,omitempty" json:"exec_generic_output_max_bytes,omitempty"`
	ExecRipgrepOutputMaxBytes int `yaml:"exec_ripgrep_output_max_bytes,omitempty" json:"exec_ripgrep_output_max_bytes,omitempty"`
	ReadCodeDefaultMaxLines   int `yaml:"read_code_default_max_lines,omitempty" json:"read_code_default_max_lines,omitempty"`
	ReadCodeSmallFileMaxLines int `yaml:"read_code_small_file_max_lines,omitempty" json:"read_code_small_file_max_lines,omitempty"`
}

// Default returns the documented built-in default values.
func Default() CoreConfig {
	return CoreConfig{
		RepeatMaxRepeats:          3,
		RepeatWindowSeconds:       120,
		RepeatPreviewBytes:        256,
		TurnOutputMaxBytes:        24 * 1024,
		ExecDefaultTimeoutMS:      10_000,
		ExecGenericOutputMaxBytes: 6 * 1024,
		ExecRipgrepOutputMaxBytes: 8 * 1024,
		ReadCodeDefaultMaxLines:   160,
		ReadCodeSmallFileMaxLines: 400,
	}
}

// RepeatWindow returns RepeatWindowSeconds as a time.Duration.
func (c CoreConfig) RepeatWindow() time.Duration {
	return time.Duration(c.RepeatWindowSeconds) * time.Second
}

// ExecDefaultTimeout returns ExecDefaultTimeoutMS as a time.Duration.
func (c CoreConfig) ExecDefaultTimeout() time.Duration {
	return time.Duration(c.ExecDefaultTimeoutMS) * time.Millisecond
}

// Manager loads the user-level and project-level overrides and merges them
// against Default().
type Manager struct {
	userConfig    CoreConfig
	projectConfig CoreConfig
	merged        CoreConfig
}

// NewManager returns a Manager seeded with Default(); Load overrides it.
func NewManager() *Manager {
	return &Manager{merged: Default()}
}

// Load reads core.yaml from userConfigDir and settings.json from
// projectDir/.agentcore, then merges project over user over default. A
// missing file at either path is not an error.
func (m *Manager) Load(userConfigDir, projectDir string) error {
	if err := loadYAML(filepath.Join(userConfigDir, "core.yaml"), &m.userConfig); err != nil {
		return err
	}
	if err := loadJSON(filepath.Join(projectDir, ".agentcore", "settings.json"), &m.projectConfig); err != nil {
		return err
	}
	m.merge()
	return nil
}

func loadYAML(path string, out *CoreConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, out)
}

func loadJSON(path string, out *CoreConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, out)
}

func (m *Manager) merge() {
	d := Default()
	m.merged = CoreConfig{
		RepeatMaxRepeats:          pickInt(m.userConfig.RepeatMaxRepeats, m.projectConfig.RepeatMaxRepeats, d.RepeatMaxRepeats),
		RepeatWindowSeconds:       pickInt(m.userConfig.RepeatWindowSeconds, m.projectConfig.RepeatWindowSeconds, d.RepeatWindowSeconds),
		RepeatPreviewBytes:        pickInt(m.userConfig.RepeatPreviewBytes, m.projectConfig.RepeatPreviewBytes, d.RepeatPreviewBytes),
		TurnOutputMaxBytes:        pickInt(m.userConfig.TurnOutputMaxBytes, m.projectConfig.TurnOutputMaxBytes, d.TurnOutputMaxBytes),
		ExecDefaultTimeoutMS:      pickInt(m.userConfig.ExecDefaultTimeoutMS, m.projectConfig.ExecDefaultTimeoutMS, d.ExecDefaultTimeoutMS),
		ExecGenericOutputMaxBytes: pickInt(m.userConfig.ExecGenericOutputMaxBytes, m.projectConfig.ExecGenericOutputMaxBytes, d.ExecGenericOutputMaxBytes),
		ExecRipgrepOutputMaxBytes: pickInt(m.userConfig.ExecRipgrepOutputMaxBytes, m.projectConfig.ExecRipgrepOutputMaxBytes, d.ExecRipgrepOutputMaxBytes),
		ReadCodeDefaultMaxLines:   pickInt(m.userConfig.ReadCodeDefaultMaxLines, m.projectConfig.ReadCodeDefaultMaxLines, d.ReadCodeDefaultMaxLines),
		ReadCodeSmallFileMaxLines: pickInt(m.userConfig.ReadCodeSmallFileMaxLines, m.projectConfig.ReadCodeSmallFileMaxLines, d.ReadCodeSmallFileMaxLines),
	}
}

func pickInt(user, project, defaultValue int) int {
	if project != 0 {
		return project
	}
	if user != 0 {
		return user
	}
	return defaultValue
}

// Get returns the merged configuration.
func (m *Manager) Get() CoreConfig {
	return m.merged
}

// SaveUserConfig writes the in-memory user config to userConfigDir/core.yaml.
func (m *Manager) SaveUserConfig(userConfigDir string) error {
	if err := os.MkdirAll(userConfigDir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(m.userConfig)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(userConfigDir, "core.yaml"), data, 0644)
}

// SaveProjectConfig writes the in-memory project config to
// projectDir/.agentcore/settings.json.
func (m *Manager) SaveProjectConfig(projectDir string) error {
	dir := filepath.Join(projectDir, ".agentcore")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.projectConfig, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "settings.json"), data, 0644)
}
