package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither flags nor the config file set a value.
var defaultToolCommand = []string{"python3", "-m", "autoops.tools.runs"}

const (
	defaultRunDir    = ".rungate"
	defaultHistoryDB = "history.db"
)

// Settings holds persistent CLI defaults loaded from a config file.
type Settings struct {
	// External tool invocation
	ToolCommand []string          `yaml:"tool_command"` // argv prefix of the run CLI
	ToolDir     string            `yaml:"tool_dir"`     // working directory for tool invocations
	ToolEnv     map[string]string `yaml:"tool_env"`     // extra env vars for the tool

	// Local artifacts
	RunDir    string `yaml:"run_dir"`    // transcript/report directories, default .rungate
	HistoryDB string `yaml:"history_db"` // acceptance history database path

	// Watch mode
	DropDir  string `yaml:"drop_dir"`  // directory watched for *.runid files
	PollMode bool   `yaml:"poll_mode"` // poll instead of fsnotify
}

// LoadSettings reads a YAML config file into Settings.
// If the file does not exist, it returns zero-value Settings and nil error.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &s, nil
}

// ResolvedToolCommand returns the configured tool argv prefix, falling back
// to the stock autoops invocation.
func (s *Settings) ResolvedToolCommand() []string {
	if len(s.ToolCommand) > 0 {
		return s.ToolCommand
	}
	return defaultToolCommand
}

// ResolvedRunDir returns the run artifact directory, default ".rungate".
func (s *Settings) ResolvedRunDir() string {
	if s.RunDir != "" {
		return s.RunDir
	}
	return defaultRunDir
}

// ResolvedHistoryDB returns the history database path, default
// "<run_dir>/history.db".
func (s *Settings) ResolvedHistoryDB() string {
	if s.HistoryDB != "" {
		return s.HistoryDB
	}
	return filepath.Join(s.ResolvedRunDir(), defaultHistoryDB)
}

// EnvSlice converts ToolEnv to KEY=VALUE form, sorted for determinism.
func (s *Settings) EnvSlice() []string {
	if len(s.ToolEnv) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.ToolEnv))
	for k, v := range s.ToolEnv {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
